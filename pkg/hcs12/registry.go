package hcs12

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashgraph-online/hashlinks-sdk-go/pkg/mirror"
	"github.com/rs/zerolog"
)

const syncPageLimit = 100

// TopicReader is the mirror-node view of a topic. *mirror.Client implements it.
type TopicReader interface {
	GetTopicMessages(ctx context.Context, topicID string, options mirror.MessageQueryOptions) ([]mirror.TopicMessage, error)
	GetTopicInfo(ctx context.Context, topicID string) (mirror.TopicInfo, error)
}

// MessageSubmitter appends a message to a topic. *Client implements it.
type MessageSubmitter interface {
	SubmitMessage(ctx context.Context, topicID string, payload any, transactionMemo string) (SubmitMessageResult, error)
}

// Document is a registration that can be stored in a Registry.
type Document interface {
	Header() MessageHeader
	Validate() error
}

// EntryLookup is the read side of a registry used by the engine.
type EntryLookup[T Document] interface {
	GetEntry(id string) (RegistryEntry[T], bool)
}

type RegistryConfig struct {
	TopicID           string
	Reader            TopicReader
	Submitter         MessageSubmitter
	Content           ContentRetriever
	OperatorAccountID string
	Logger            *zerolog.Logger
}

type registryHooks[T Document] struct {
	normalize func(T) T
	resolve   func(ctx context.Context, content ContentRetriever, document T) (T, error)
}

// Registry is an append-only, topic-backed store of one registration type. Entries are
// materialized into memory from Register calls and from Sync; they are never edited or removed.
type Registry[T Document] struct {
	registryType RegistryType
	topicID      string
	reader       TopicReader
	submitter    MessageSubmitter
	content      ContentRetriever
	operatorID   string
	logger       zerolog.Logger
	hooks        registryHooks[T]

	mutex   sync.RWMutex
	entries map[string]RegistryEntry[T]
	order   []string
	cursor  int64
}

func newRegistry[T Document](registryType RegistryType, config RegistryConfig, hooks registryHooks[T]) *Registry[T] {
	logger := resolveLogger(config.Logger).With().
		Str("registry", string(registryType)).
		Str("topic_id", config.TopicID).
		Logger()
	return &Registry[T]{
		registryType: registryType,
		topicID:      strings.TrimSpace(config.TopicID),
		reader:       config.Reader,
		submitter:    config.Submitter,
		content:      config.Content,
		operatorID:   strings.TrimSpace(config.OperatorAccountID),
		logger:       logger,
		hooks:        hooks,
		entries:      map[string]RegistryEntry[T]{},
		order:        make([]string, 0),
	}
}

// RegistryType returns the kind of registrations held.
func (r *Registry[T]) RegistryType() RegistryType {
	return r.registryType
}

// TopicID returns the backing topic, or "" for an in-memory registry.
func (r *Registry[T]) TopicID() string {
	return r.topicID
}

// Register validates document, submits it to the registry topic when one is configured and
// stores the resulting entry. The returned ID is the ledger sequence number when the
// submission reported one, otherwise a local placeholder.
func (r *Registry[T]) Register(ctx context.Context, document T) (string, error) {
	if r.hooks.normalize != nil {
		document = r.hooks.normalize(document)
	}
	if err := validateRegistration(document); err != nil {
		return "", err
	}

	entryID := ""
	var sequenceNumber int64
	if r.submitter != nil && r.topicID != "" {
		result, err := r.submitter.SubmitMessage(ctx, r.topicID, document, DefaultTransactionMemo(OperationRegister, r.registryType))
		if err != nil {
			return "", fmt.Errorf("failed to submit %s registration: %w", r.registryType, err)
		}
		if !result.Success && result.Error != "" {
			return "", fmt.Errorf("failed to submit %s registration: %s", r.registryType, result.Error)
		}
		if result.SequenceNumber > 0 {
			sequenceNumber = result.SequenceNumber
			entryID = strconv.FormatInt(result.SequenceNumber, 10)
		}
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if entryID != "" {
		if _, exists := r.entries[entryID]; exists {
			return entryID, nil
		}
	} else {
		entryID = r.newLocalIDLocked()
	}

	r.appendLocked(RegistryEntry[T]{
		ID:             entryID,
		SequenceNumber: sequenceNumber,
		Timestamp:      consensusTimestamp(time.Now()),
		Submitter:      r.operatorID,
		Data:           document,
	})
	r.logger.Debug().Str("entry_id", entryID).Msg("registered entry")
	return entryID, nil
}

// GetEntry returns the entry stored under id.
func (r *Registry[T]) GetEntry(id string) (RegistryEntry[T], bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	entry, exists := r.entries[strings.TrimSpace(id)]
	return entry, exists
}

// ListEntries returns all entries in insertion/log order.
func (r *Registry[T]) ListEntries() []RegistryEntry[T] {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	entries := make([]RegistryEntry[T], 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, r.entries[id])
	}
	return entries
}

// Len returns the number of materialized entries.
func (r *Registry[T]) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.order)
}

// Sync reads the registry topic from the stored cursor and merges entries not yet known
// locally. On failure it returns a *SyncError and leaves local state untouched.
func (r *Registry[T]) Sync(ctx context.Context) error {
	if r.reader == nil || r.topicID == "" {
		return nil
	}

	r.mutex.RLock()
	cursor := r.cursor
	r.mutex.RUnlock()

	sequenceFilter := ""
	if cursor > 0 {
		sequenceFilter = fmt.Sprintf("gt:%d", cursor)
	}
	messages, err := r.reader.GetTopicMessages(ctx, r.topicID, mirror.MessageQueryOptions{
		SequenceNumber: sequenceFilter,
		Limit:          syncPageLimit,
		Order:          "asc",
	})
	if err != nil {
		syncErr := &SyncError{RegistryType: r.registryType, TopicID: r.topicID, Err: err}
		r.logger.Warn().Err(err).Msg("registry sync failed, keeping local state")
		return syncErr
	}

	decoded := make([]RegistryEntry[T], 0, len(messages))
	maxSequence := cursor
	for _, message := range messages {
		if message.SequenceNumber > maxSequence {
			maxSequence = message.SequenceNumber
		}
		document, decodeErr := r.decodeMessage(message)
		if decodeErr != nil {
			if !errors.Is(decodeErr, ErrForeignProtocol) {
				r.logger.Debug().
					Err(decodeErr).
					Int64("sequence_number", message.SequenceNumber).
					Msg("skipping registry message")
			}
			continue
		}
		if r.hooks.resolve != nil && r.content != nil {
			resolved, resolveErr := r.hooks.resolve(ctx, r.content, document)
			if resolveErr != nil {
				r.logger.Warn().
					Err(resolveErr).
					Int64("sequence_number", message.SequenceNumber).
					Msg("failed to dereference stored content")
			} else {
				document = resolved
			}
		}
		if validateErr := validateRegistration(document); validateErr != nil {
			r.logger.Debug().
				Err(validateErr).
				Int64("sequence_number", message.SequenceNumber).
				Msg("skipping invalid registration")
			continue
		}
		decoded = append(decoded, RegistryEntry[T]{
			ID:             strconv.FormatInt(message.SequenceNumber, 10),
			SequenceNumber: message.SequenceNumber,
			Timestamp:      message.ConsensusTimestamp,
			Submitter:      message.PayerAccountID,
			Data:           document,
		})
	}
	if err := ctx.Err(); err != nil {
		return &SyncError{RegistryType: r.registryType, TopicID: r.topicID, Err: err}
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	added := 0
	for _, entry := range decoded {
		if _, exists := r.entries[entry.ID]; exists {
			continue
		}
		r.appendLocked(entry)
		added++
	}
	if maxSequence > r.cursor {
		r.cursor = maxSequence
	}
	r.logger.Debug().Int("added", added).Int64("cursor", r.cursor).Msg("registry synced")
	return nil
}

// VerifyTopic checks that the backing topic memo declares this registry type.
func (r *Registry[T]) VerifyTopic(ctx context.Context) error {
	if r.reader == nil || r.topicID == "" {
		return fmt.Errorf("%s registry has no backing topic", r.registryType)
	}
	info, err := r.reader.GetTopicInfo(ctx, r.topicID)
	if err != nil {
		return err
	}
	registryType, _, ok := ParseRegistryMemo(info.Memo)
	if !ok {
		return fmt.Errorf("topic %s memo %q is not an HCS-12 registry memo", r.topicID, info.Memo)
	}
	if registryType != r.registryType {
		return fmt.Errorf("topic %s is a %s registry, expected %s", r.topicID, registryType, r.registryType)
	}
	return nil
}

func (r *Registry[T]) decodeMessage(message mirror.TopicMessage) (T, error) {
	var document T
	payload, err := mirror.DecodeMessageData(message)
	if err != nil {
		return document, err
	}
	var header MessageHeader
	if err := json.Unmarshal(payload, &header); err != nil {
		return document, fmt.Errorf("failed to decode message JSON: %w", err)
	}
	if header.P != Protocol {
		return document, ErrForeignProtocol
	}
	if header.Op != string(OperationRegister) {
		return document, fmt.Errorf("unexpected %s operation %q", r.registryType, header.Op)
	}
	if err := json.Unmarshal(payload, &document); err != nil {
		return document, fmt.Errorf("failed to decode %s registration: %w", r.registryType, err)
	}
	return document, nil
}

func (r *Registry[T]) appendLocked(entry RegistryEntry[T]) {
	r.entries[entry.ID] = entry
	r.order = append(r.order, entry.ID)
}

func (r *Registry[T]) newLocalIDLocked() string {
	for {
		random := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
		candidate := fmt.Sprintf("local_%d_%s", time.Now().UnixMilli(), random)
		if _, exists := r.entries[candidate]; !exists {
			return candidate
		}
	}
}

func consensusTimestamp(now time.Time) string {
	return fmt.Sprintf("%d.%09d", now.Unix(), now.Nanosecond())
}

func resolveLogger(logger *zerolog.Logger) zerolog.Logger {
	if logger == nil {
		return zerolog.Nop()
	}
	return *logger
}

func defaultEnvelope(protocol *string, operation *string, defaultOperation AssemblyOperation) {
	if strings.TrimSpace(*protocol) == "" {
		*protocol = Protocol
	}
	if strings.TrimSpace(*operation) == "" {
		*operation = string(defaultOperation)
	}
}

// mergeStoredDocument overlays JSON content fetched from storage onto the registry message.
// The message envelope and its storage pointer always win.
func mergeStoredDocument[T any](message T, stored []byte) (T, error) {
	var merged T
	encoded, err := json.Marshal(message)
	if err != nil {
		return merged, err
	}
	base := map[string]any{}
	if err := json.Unmarshal(encoded, &base); err != nil {
		return merged, err
	}
	overlay := map[string]any{}
	if err := json.Unmarshal(stored, &overlay); err != nil {
		return merged, err
	}
	for key, value := range overlay {
		switch key {
		case "p", "op", "t_id":
			continue
		}
		base[key] = value
	}
	combined, err := json.Marshal(base)
	if err != nil {
		return merged, err
	}
	if err := json.Unmarshal(combined, &merged); err != nil {
		return merged, err
	}
	return merged, nil
}
