package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"studentcare-chat/internal/domain"
)

type fakeDynamo struct {
	putErr       error
	queryOut     *dynamodb.QueryOutput
	queryErr     error
	lastPutInput *dynamodb.PutItemInput
	lastQueryIn  *dynamodb.QueryInput
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQueryIn = in
	return f.queryOut, f.queryErr
}

var testNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func makeItem(id, content string, isBot bool, created time.Time) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":            &types.AttributeValueMemberS{Value: sessionPK("s1")},
		"SK":            &types.AttributeValueMemberS{Value: msgSK(created, id)},
		"id":            &types.AttributeValueMemberS{Value: id},
		"sessionId":     &types.AttributeValueMemberS{Value: "s1"},
		"content":       &types.AttributeValueMemberS{Value: content},
		"isBotResponse": &types.AttributeValueMemberBOOL{Value: isBot},
		"createdAt":     &types.AttributeValueMemberS{Value: created.Format(time.RFC3339Nano)},
	}
}

func mustNewDynamo(t *testing.T, db *fakeDynamo) *DynamoStore {
	t.Helper()
	s, err := NewDynamo(db, "chat-history")
	require.NoError(t, err)
	s.now = func() time.Time { return testNow }
	return s
}

func TestNewDynamo_Validates(t *testing.T) {
	_, err := NewDynamo(nil, "t")
	require.Error(t, err)
	_, err = NewDynamo(&fakeDynamo{}, " ")
	require.Error(t, err)
}

func TestSaveMessage_HappyPath(t *testing.T) {
	db := &fakeDynamo{}
	s := mustNewDynamo(t, db)
	err := s.SaveMessage(context.Background(), domain.HistoryMessage{
		ID: "m1", SessionID: "s1", Content: "I feel overwhelmed", CreatedAt: testNow,
	})
	require.NoError(t, err)

	in := db.lastPutInput
	require.Equal(t, "chat-history", *in.TableName)
	require.Equal(t, "attribute_not_exists(PK) AND attribute_not_exists(SK)", *in.ConditionExpression)
	require.Equal(t, "SESSION#s1", in.Item["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "MSG#2026-10-18T09:30:00.000000000Z#m1", in.Item["SK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "I feel overwhelmed", in.Item["content"].(*types.AttributeValueMemberS).Value)
	require.False(t, in.Item["isBotResponse"].(*types.AttributeValueMemberBOOL).Value)
	require.Equal(t, "1794907800", in.Item["ttl"].(*types.AttributeValueMemberN).Value)
}

func TestSaveMessage_Errors(t *testing.T) {
	s := mustNewDynamo(t, &fakeDynamo{})
	err := s.SaveMessage(context.Background(), domain.HistoryMessage{ID: "m1"})
	require.ErrorContains(t, err, "required")

	s = mustNewDynamo(t, &fakeDynamo{putErr: errors.New("ProvisionedThroughputExceededException")})
	err = s.SaveMessage(context.Background(), domain.HistoryMessage{ID: "m1", SessionID: "s1", CreatedAt: testNow})
	require.ErrorContains(t, err, "SaveMessage")
}

func TestListMessages_ReordersToChronological(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		makeItem("m2", "That sounds really stressful...", true, testNow.Add(time.Second)),
		makeItem("m1", "I feel overwhelmed with exams", false, testNow),
	}}}
	s := mustNewDynamo(t, db)

	msgs, err := s.ListMessages(context.Background(), "s1", 20)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "m1", msgs[0].ID)
	require.False(t, msgs[0].IsBotResponse)
	require.Equal(t, "m2", msgs[1].ID)
	require.True(t, msgs[1].IsBotResponse)
	require.True(t, msgs[0].CreatedAt.Equal(testNow))

	require.Equal(t, "PK = :pk AND begins_with(SK, :prefix)", *db.lastQueryIn.KeyConditionExpression)
	require.False(t, *db.lastQueryIn.ScanIndexForward)
	require.Equal(t, int32(20), *db.lastQueryIn.Limit)
	require.Equal(t, "SESSION#s1", db.lastQueryIn.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value)
}

func TestListMessages_Errors(t *testing.T) {
	s := mustNewDynamo(t, &fakeDynamo{queryErr: errors.New("ResourceNotFoundException")})
	_, err := s.ListMessages(context.Background(), "s1", 20)
	require.ErrorContains(t, err, "ListMessages query")

	item := makeItem("m1", "hi", false, testNow)
	delete(item, "content")
	s = mustNewDynamo(t, &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}})
	_, err = s.ListMessages(context.Background(), "s1", 20)
	require.ErrorContains(t, err, "content")

	item = makeItem("m1", "hi", false, testNow)
	item["createdAt"] = &types.AttributeValueMemberS{Value: "yesterday"}
	s = mustNewDynamo(t, &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}})
	_, err = s.ListMessages(context.Background(), "s1", 20)
	require.ErrorContains(t, err, "parse createdAt")
}

func TestListMessages_MissingBotFlagDefaultsToStudent(t *testing.T) {
	item := makeItem("m1", "hi", true, testNow)
	delete(item, "isBotResponse")
	s := mustNewDynamo(t, &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}})
	msgs, err := s.ListMessages(context.Background(), "s1", 20)
	require.NoError(t, err)
	require.False(t, msgs[0].IsBotResponse)
}

func TestMsgSK_SortsByTimeWithinOneSecond(t *testing.T) {
	base := time.Date(2026, 10, 18, 9, 30, 5, 0, time.UTC)
	ordered := []time.Time{
		base,
		base.Add(100 * time.Millisecond),
		base.Add(120 * time.Millisecond),
		base.Add(500 * time.Millisecond),
		base.Add(time.Second),
	}
	for i := 1; i < len(ordered); i++ {
		prev := msgSK(ordered[i-1], "x")
		next := msgSK(ordered[i], "x")
		require.Less(t, prev, next, "%s should sort before %s", prev, next)
	}
}

func TestMsgSK_NormalizesToUTC(t *testing.T) {
	local := testNow.In(time.FixedZone("CEST", 2*60*60))
	require.Equal(t, msgSK(testNow, "m1"), msgSK(local, "m1"))
}
