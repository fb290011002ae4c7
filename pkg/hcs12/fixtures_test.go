package hcs12

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/hashgraph-online/hashlinks-sdk-go/pkg/mirror"
)

type fakeTopicReader struct {
	mutex    sync.Mutex
	messages map[string][]mirror.TopicMessage
	memos    map[string]string
	err      error
	calls    []mirror.MessageQueryOptions
}

func newFakeTopicReader() *fakeTopicReader {
	return &fakeTopicReader{
		messages: map[string][]mirror.TopicMessage{},
		memos:    map[string]string{},
	}
}

func (reader *fakeTopicReader) GetTopicMessages(
	ctx context.Context,
	topicID string,
	options mirror.MessageQueryOptions,
) ([]mirror.TopicMessage, error) {
	reader.mutex.Lock()
	defer reader.mutex.Unlock()
	reader.calls = append(reader.calls, options)
	if reader.err != nil {
		return nil, reader.err
	}
	var after int64
	if value, found := strings.CutPrefix(options.SequenceNumber, "gt:"); found {
		after, _ = strconv.ParseInt(value, 10, 64)
	}
	result := make([]mirror.TopicMessage, 0)
	for _, message := range reader.messages[topicID] {
		if message.SequenceNumber > after {
			result = append(result, message)
		}
	}
	return result, nil
}

func (reader *fakeTopicReader) GetTopicInfo(ctx context.Context, topicID string) (mirror.TopicInfo, error) {
	reader.mutex.Lock()
	defer reader.mutex.Unlock()
	if reader.err != nil {
		return mirror.TopicInfo{}, reader.err
	}
	return mirror.TopicInfo{TopicID: topicID, Memo: reader.memos[topicID]}, nil
}

// push appends payload to topicID as the next sequence number.
func (reader *fakeTopicReader) push(t *testing.T, topicID string, payload any) {
	t.Helper()
	var raw []byte
	switch typed := payload.(type) {
	case string:
		raw = []byte(typed)
	case []byte:
		raw = typed
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to encode fixture: %v", err)
		}
		raw = encoded
	}
	reader.mutex.Lock()
	defer reader.mutex.Unlock()
	sequence := int64(len(reader.messages[topicID]) + 1)
	reader.messages[topicID] = append(reader.messages[topicID], mirror.TopicMessage{
		TopicID:            topicID,
		SequenceNumber:     sequence,
		ConsensusTimestamp: fmt.Sprintf("1700000000.%09d", sequence),
		PayerAccountID:     "0.0.2",
		Message:            base64.StdEncoding.EncodeToString(raw),
	})
}

type fakeSubmitter struct {
	mutex    sync.Mutex
	next     int64
	messages map[string][]any
	memos    []string
	err      error
}

func (submitter *fakeSubmitter) SubmitMessage(
	ctx context.Context,
	topicID string,
	payload any,
	transactionMemo string,
) (SubmitMessageResult, error) {
	submitter.mutex.Lock()
	defer submitter.mutex.Unlock()
	if submitter.err != nil {
		return SubmitMessageResult{}, submitter.err
	}
	if submitter.messages == nil {
		submitter.messages = map[string][]any{}
	}
	submitter.next++
	submitter.messages[topicID] = append(submitter.messages[topicID], payload)
	submitter.memos = append(submitter.memos, transactionMemo)
	return SubmitMessageResult{Success: true, SequenceNumber: submitter.next}, nil
}

type staticContent map[string][]byte

func (content staticContent) RetrieveContent(ctx context.Context, reference string) ([]byte, error) {
	topicID, err := ParseContentReference(reference)
	if err != nil {
		return nil, err
	}
	stored, ok := content[topicID]
	if !ok {
		return nil, ErrContentNotFound
	}
	return stored, nil
}

func testActionRegistration(name string) ActionRegistration {
	return ActionRegistration{
		P:        Protocol,
		Op:       string(OperationRegister),
		TID:      "0.0.5001",
		Hash:     HashBytes([]byte(name + "-info")),
		WasmHash: HashBytes([]byte(name + "-wasm")),
		Name:     name,
		Version:  "1.0.0",
	}
}

func testBlockRegistration(name string, version string) BlockRegistration {
	return BlockRegistration{
		P:        Protocol,
		Op:       string(OperationRegister),
		Name:     name,
		Version:  version,
		Title:    "Test Block",
		Category: "interactive",
		Template: "<div>{{attributes.label}}</div>",
	}
}

func stringPointer(value string) *string {
	return &value
}

// wasmModuleExporting returns a minimal module whose single no-op function is exported under
// each of names. Section sizes must stay below 128 bytes.
func wasmModuleExporting(names ...string) []byte {
	module := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	module = append(module, 0x01, 0x04, 0x01, 0x60, 0x00, 0x00)
	module = append(module, 0x03, 0x02, 0x01, 0x00)

	exports := []byte{byte(len(names))}
	for _, name := range names {
		exports = append(exports, byte(len(name)))
		exports = append(exports, name...)
		exports = append(exports, 0x00, 0x00)
	}
	module = append(module, 0x07, byte(len(exports)))
	module = append(module, exports...)

	return append(module, 0x0a, 0x04, 0x01, 0x02, 0x00, 0x0b)
}
