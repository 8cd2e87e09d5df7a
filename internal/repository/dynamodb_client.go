package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"studentcare-chat/internal/domain"
)

const (
	skPrefixMsg = "MSG#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL

	// sortKeyLayout is fixed width so key order matches time order.
	sortKeyLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore keeps chat history in a single DynamoDB table keyed by session.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

func NewDynamo(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName, now: time.Now}, nil
}

func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

// msgSK orders messages by creation time; the ID suffix keeps keys unique
// when two lines share a timestamp.
func msgSK(ts time.Time, id string) string {
	return skPrefixMsg + ts.UTC().Format(sortKeyLayout) + "#" + id
}

// SaveMessage writes one history line. Existing keys are never overwritten.
func (s *DynamoStore) SaveMessage(ctx context.Context, msg domain.HistoryMessage) error {
	if msg.SessionID == "" || msg.ID == "" {
		return errors.New("repository: SaveMessage: session ID and message ID are required")
	}
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                s.messageItem(msg),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: SaveMessage: %w", err)
	}
	return nil
}

// ListMessages returns up to limit of the newest messages in chronological order.
func (s *DynamoStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.HistoryMessage, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixMsg},
		},
		// Read newest first so LIMIT favors the most recent lines.
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ListMessages query: %w", err)
	}

	msgs := make([]domain.HistoryMessage, 0, len(out.Items))
	for _, item := range out.Items {
		msg, err := itemToMessage(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListMessages unmarshal: %w", err)
		}
		msgs = append(msgs, msg)
	}
	reverse(msgs)
	return msgs, nil
}

func (s *DynamoStore) messageItem(msg domain.HistoryMessage) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":            &types.AttributeValueMemberS{Value: sessionPK(msg.SessionID)},
		"SK":            &types.AttributeValueMemberS{Value: msgSK(msg.CreatedAt, msg.ID)},
		"id":            &types.AttributeValueMemberS{Value: msg.ID},
		"sessionId":     &types.AttributeValueMemberS{Value: msg.SessionID},
		"content":       &types.AttributeValueMemberS{Value: msg.Content},
		"isBotResponse": &types.AttributeValueMemberBOOL{Value: msg.IsBotResponse},
		"createdAt":     &types.AttributeValueMemberS{Value: msg.CreatedAt.UTC().Format(time.RFC3339Nano)},
		"ttl":           &types.AttributeValueMemberN{Value: strconv.FormatInt(s.now().Add(ttlDuration).Unix(), 10)},
	}
}

func itemToMessage(item map[string]types.AttributeValue) (domain.HistoryMessage, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.HistoryMessage{}, err
	}
	sessionID, err := strAttr(item, "sessionId")
	if err != nil {
		return domain.HistoryMessage{}, err
	}
	content, err := strAttr(item, "content")
	if err != nil {
		return domain.HistoryMessage{}, err
	}
	created, err := strAttr(item, "createdAt")
	if err != nil {
		return domain.HistoryMessage{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return domain.HistoryMessage{}, fmt.Errorf("repository: parse createdAt: %w", err)
	}
	isBot, _ := boolAttr(item, "isBotResponse") // absent means a student line

	return domain.HistoryMessage{
		ID:            id,
		SessionID:     sessionID,
		Content:       content,
		IsBotResponse: isBot,
		CreatedAt:     createdAt,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func boolAttr(item map[string]types.AttributeValue, key string) (bool, error) {
	v, ok := item[key]
	if !ok {
		return false, fmt.Errorf("repository: missing attribute %q", key)
	}
	b, ok := v.(*types.AttributeValueMemberBOOL)
	if !ok {
		return false, fmt.Errorf("repository: attribute %q is not a boolean", key)
	}
	return b.Value, nil
}

func reverse(msgs []domain.HistoryMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
