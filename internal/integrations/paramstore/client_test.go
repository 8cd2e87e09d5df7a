package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	getOut *ssm.GetParameterOutput
	getErr error
	lastIn *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastIn = in
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func withValue(v string) *fakeAPI {
	return &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("p"), Value: strPtr(v), Type: types.ParameterTypeSecureString,
	}}}
}

func mustNew(t *testing.T, api ssmAPI) *Client {
	t.Helper()
	c, err := New(api)
	require.NoError(t, err)
	return c
}

func TestGetParameter_RequestsDecryption(t *testing.T) {
	api := withValue(`{"token":"sk-abc"}`)
	v, err := mustNew(t, api).GetParameter(context.Background(), " /studentcare/openai-token ")
	require.NoError(t, err)
	require.Equal(t, `{"token":"sk-abc"}`, v)
	require.Equal(t, "/studentcare/openai-token", *api.lastIn.Name)
	require.True(t, *api.lastIn.WithDecryption)
}

func TestGetParameter_Failures(t *testing.T) {
	_, err := mustNew(t, &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p")}}}).
		GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "missing value")

	_, err = mustNew(t, &fakeAPI{getErr: errors.New("boom")}).GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")

	_, err = mustNew(t, &fakeAPI{}).GetParameter(context.Background(), "  ")
	require.ErrorContains(t, err, "required")

	_, err = (&Client{}).GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "not initialized")
}

func TestGetToken(t *testing.T) {
	cases := []struct {
		name    string
		value   string
		want    string
		wantErr string
	}{
		{name: "json payload", value: `{"token":"sk-from-json"}`, want: "sk-from-json"},
		{name: "bare token", value: "  sk-bare-token\n", want: "sk-bare-token"},
		{name: "empty json token", value: `{"token":""}`, wantErr: "is empty"},
		{name: "malformed json", value: `{"token":`, wantErr: "unmarshal token payload"},
		{name: "blank value", value: "   ", wantErr: "is empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := mustNew(t, withValue(tc.value)).GetToken(context.Background(), "p")
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "must not be nil")
}
