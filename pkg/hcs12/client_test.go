package hcs12

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashgraph-online/hashlinks-sdk-go/pkg/mirror"
	"github.com/hashgraph/hedera-sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mirrorMessage(t *testing.T, sequence int64, payload string) mirror.TopicMessage {
	t.Helper()
	return mirror.TopicMessage{
		ConsensusTimestamp: "1700000000.000000001",
		Message:            base64.StdEncoding.EncodeToString([]byte(payload)),
		PayerAccountID:     "0.0.2",
		SequenceNumber:     sequence,
		TopicID:            "0.0.700",
	}
}

func newMirrorBackedClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	privateKey, err := hedera.PrivateKeyGenerateEd25519()
	require.NoError(t, err)
	client, err := NewClient(ClientConfig{
		Network:            "testnet",
		OperatorAccountID:  "0.0.1",
		OperatorPrivateKey: privateKey.String(),
		MirrorBaseURL:      server.URL,
	})
	require.NoError(t, err)
	return client
}

func TestClientGetEntriesSkipsInvalidMessages(t *testing.T) {
	client := newMirrorBackedClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/topics/0.0.700/messages", r.URL.Path)
		assert.Equal(t, "gt:3", r.URL.Query().Get("sequencenumber"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []mirror.TopicMessage{
				mirrorMessage(t, 4, `{"p":"hcs-12","op":"register","name":"counter-app","version":"1.0.0"}`),
				mirrorMessage(t, 5, `{"p":"hcs-2","op":"register"}`),
				mirrorMessage(t, 6, `not json`),
				mirrorMessage(t, 7, `{"p":"hcs-12","op":"add-block","block_t_id":"0.0.6205816"}`),
			},
			"links": map[string]any{"next": ""},
		})
	})

	entries, err := client.GetEntries(context.Background(), "0.0.700", QueryOptions{SequenceNumber: "gt:3"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "4", entries[0].ID)
	assert.Equal(t, "0.0.2", entries[0].Submitter)
	assert.Equal(t, "counter-app", entries[0].Data["name"])
	assert.Equal(t, int64(7), entries[1].SequenceNumber)
}

func TestClientGetEntryBySequence(t *testing.T) {
	client := newMirrorBackedClient(t, func(w http.ResponseWriter, r *http.Request) {
		messages := []mirror.TopicMessage{}
		switch r.URL.Query().Get("sequencenumber") {
		case "eq:2":
			messages = append(messages, mirrorMessage(t, 2, `{"p":"hcs-12","op":"update","description":"v2"}`))
		case "eq:3":
			messages = append(messages, mirrorMessage(t, 3, `{"p":"hcs-12","op":"add-action"}`))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"messages": messages})
	})
	ctx := context.Background()

	entry, found, err := client.GetEntry(ctx, "0.0.700", 2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v2", entry.Data["description"])

	_, found, err = client.GetEntry(ctx, "0.0.700", 9)
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = client.GetEntry(ctx, "0.0.700", 3)
	require.ErrorContains(t, err, "add-action requires valid t_id")

	_, _, err = client.GetEntry(ctx, "0.0.700", 0)
	require.Error(t, err)
}

func TestClientResolvePublicKey(t *testing.T) {
	client := newTestClient(t)
	privateKey, err := hedera.PrivateKeyGenerateEd25519()
	require.NoError(t, err)

	key, err := client.resolvePublicKey("ignored", true)
	require.NoError(t, err)
	assert.Equal(t, client.operatorKey.PublicKey().String(), key.String())

	key, err = client.resolvePublicKey("  ", false)
	require.NoError(t, err)
	assert.Nil(t, key)

	key, err = client.resolvePublicKey(privateKey.PublicKey().String(), false)
	require.NoError(t, err)
	assert.Equal(t, privateKey.PublicKey().String(), key.String())

	key, err = client.resolvePublicKey(privateKey.String(), false)
	require.NoError(t, err)
	assert.NotNil(t, key)

	_, err = client.resolvePublicKey("not-a-key", false)
	require.ErrorContains(t, err, "failed to parse key as public")
}

func TestClientCreateRegistryTopicRejectsBadKeys(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.CreateRegistryTopic(ctx, CreateRegistryTopicOptions{
		RegistryType: RegistryTypeAction,
		AdminKey:     "not-a-key",
	})
	require.ErrorContains(t, err, "invalid admin key")

	_, err = client.CreateRegistryTopic(ctx, CreateRegistryTopicOptions{
		RegistryType: RegistryTypeAction,
		SubmitKey:    "0xzz",
	})
	require.ErrorContains(t, err, "invalid submit key")
}
