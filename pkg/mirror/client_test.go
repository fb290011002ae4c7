package mirror

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodedMessage(sequence int64, payload string) TopicMessage {
	return TopicMessage{
		ConsensusTimestamp: fmt.Sprintf("1700000000.%09d", sequence),
		Message:            base64.StdEncoding.EncodeToString([]byte(payload)),
		PayerAccountID:     "0.0.2",
		SequenceNumber:     sequence,
		TopicID:            "0.0.700",
	}
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Config{Network: "testnet", BaseURL: server.URL})
	require.NoError(t, err)
	return client
}

func TestNewClientBaseURL(t *testing.T) {
	cases := []struct {
		name    string
		config  Config
		want    string
		wantErr string
	}{
		{name: "testnet default", config: Config{Network: "testnet"}, want: "https://testnet.mirrornode.hedera.com"},
		{name: "mainnet default", config: Config{Network: "MAINNET"}, want: "https://mainnet-public.mirrornode.hedera.com"},
		{name: "custom trims slash", config: Config{Network: "testnet", BaseURL: "https://mirror.example.com/"}, want: "https://mirror.example.com"},
		{name: "unsupported network", config: Config{Network: "badnet"}, wantErr: "unsupported"},
		{name: "bad scheme", config: Config{Network: "testnet", BaseURL: "ftp://mirror.example.com"}, wantErr: "scheme must be http or https"},
		{name: "missing host", config: Config{Network: "testnet", BaseURL: "https://"}, wantErr: "host is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(tc.config)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, client.BaseURL())
		})
	}
}

func TestGetTopicInfoReadsRegistryMemo(t *testing.T) {
	var seenAuth, seenHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/topics/0.0.700", r.URL.Path)
		seenAuth = r.Header.Get("Authorization")
		seenHeader = r.Header.Get("X-Registry")
		_ = json.NewEncoder(w).Encode(TopicInfo{TopicID: "0.0.700", Memo: "hcs-12:1:60:2"})
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Network: "testnet",
		BaseURL: server.URL,
		APIKey:  " secret ",
		Headers: map[string]string{"X-Registry": "assembly"},
	})
	require.NoError(t, err)

	info, err := client.GetTopicInfo(context.Background(), "0.0.700")
	require.NoError(t, err)
	assert.Equal(t, "hcs-12:1:60:2", info.Memo)
	assert.Equal(t, "Bearer secret", seenAuth)
	assert.Equal(t, "assembly", seenHeader)

	_, err = client.GetTopicInfo(context.Background(), "  ")
	require.ErrorContains(t, err, "topic ID is required")
}

func TestGetTopicMessagesFollowsPages(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.DebugLevel)

	var serverURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := topicMessagesResponse{}
		if r.URL.Query().Get("page") == "2" {
			response.Messages = []TopicMessage{encodedMessage(3, `{"p":"hcs-12","op":"update"}`)}
		} else {
			assert.Equal(t, "gt:0", r.URL.Query().Get("sequencenumber"))
			assert.Equal(t, "asc", r.URL.Query().Get("order"))
			assert.Equal(t, "2", r.URL.Query().Get("limit"))
			response.Messages = []TopicMessage{
				encodedMessage(1, `{"p":"hcs-12","op":"register"}`),
				encodedMessage(2, `{"p":"hcs-12","op":"add-action"}`),
			}
			response.Links.Next = serverURL + "/api/v1/topics/0.0.700/messages?page=2"
		}
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()
	serverURL = server.URL

	client, err := NewClient(Config{Network: "testnet", BaseURL: server.URL, Logger: &logger})
	require.NoError(t, err)

	messages, err := client.GetTopicMessages(context.Background(), "0.0.700", MessageQueryOptions{
		SequenceNumber: "gt:0",
		Limit:          2,
		Order:          "asc",
	})
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for index, message := range messages {
		assert.Equal(t, int64(index+1), message.SequenceNumber)
	}
	assert.Contains(t, logs.String(), `"component":"mirror"`)
	assert.Contains(t, logs.String(), "fetched topic messages")
}

func TestGetTopicMessagesFailures(t *testing.T) {
	t.Run("missing topic", func(t *testing.T) {
		client, err := NewClient(Config{Network: "testnet"})
		require.NoError(t, err)
		_, err = client.GetTopicMessages(context.Background(), "", MessageQueryOptions{})
		require.ErrorContains(t, err, "topic ID is required")
	})
	t.Run("server error", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		})
		_, err := client.GetTopicMessages(context.Background(), "0.0.700", MessageQueryOptions{})
		require.ErrorContains(t, err, "status 502")
	})
	t.Run("invalid json", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{"))
		})
		_, err := client.GetTopicMessages(context.Background(), "0.0.700", MessageQueryOptions{})
		require.ErrorContains(t, err, "failed to decode mirror node response")
	})
	t.Run("cancelled context", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			t.Error("no request expected")
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.GetTopicMessages(ctx, "0.0.700", MessageQueryOptions{})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestGetTopicMessageBySequence(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		response := topicMessagesResponse{}
		if r.URL.Query().Get("sequencenumber") == "eq:4" {
			response.Messages = []TopicMessage{encodedMessage(4, `{"p":"hcs-12","op":"add-block"}`)}
		}
		_ = json.NewEncoder(w).Encode(response)
	})
	ctx := context.Background()

	message, err := client.GetTopicMessageBySequence(ctx, "0.0.700", 4)
	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Equal(t, int64(4), message.SequenceNumber)

	message, err = client.GetTopicMessageBySequence(ctx, "0.0.700", 5)
	require.NoError(t, err)
	assert.Nil(t, message)

	_, err = client.GetTopicMessageBySequence(ctx, "0.0.700", 0)
	require.ErrorContains(t, err, "sequence must be positive")
}

func TestDecodeMessagePayloads(t *testing.T) {
	message := encodedMessage(1, `{"p":"hcs-12","op":"register","name":"counter-app"}`)

	data, err := DecodeMessageData(message)
	require.NoError(t, err)
	assert.Contains(t, string(data), "counter-app")

	var payload struct {
		Protocol string `json:"p"`
		Name     string `json:"name"`
	}
	require.NoError(t, DecodeMessageJSON(message, &payload))
	assert.Equal(t, "hcs-12", payload.Protocol)
	assert.Equal(t, "counter-app", payload.Name)

	_, err = DecodeMessageData(TopicMessage{Message: " "})
	require.ErrorContains(t, err, "message payload is empty")

	err = DecodeMessageJSON(TopicMessage{Message: "%%%"}, &payload)
	require.Error(t, err)

	err = DecodeMessageJSON(encodedMessage(2, "plain text"), &payload)
	require.ErrorContains(t, err, "failed to decode topic message JSON")
}

func TestResolveURL(t *testing.T) {
	client, err := NewClient(Config{Network: "testnet", BaseURL: "https://mirror.example.com"})
	require.NoError(t, err)

	assert.Equal(t, "https://mirror.example.com/api/v1/topics", client.resolveURL("api/v1/topics"))
	assert.Equal(t, "https://mirror.example.com/api/v1/topics", client.resolveURL("/api/v1/topics"))
	assert.Equal(t, "https://other.example.com/next", client.resolveURL("https://other.example.com/next"))
}
