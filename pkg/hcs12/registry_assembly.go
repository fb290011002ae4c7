package hcs12

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashgraph-online/hashlinks-sdk-go/pkg/mirror"
)

// AssemblyRegistry holds assembly registrations and writes incremental operations to
// individual assembly topics.
type AssemblyRegistry struct {
	*Registry[AssemblyRegistration]
}

// NewAssemblyRegistry creates a new AssemblyRegistry.
func NewAssemblyRegistry(config RegistryConfig) *AssemblyRegistry {
	return &AssemblyRegistry{
		Registry: newRegistry(RegistryTypeAssembly, config, registryHooks[AssemblyRegistration]{
			normalize: func(registration AssemblyRegistration) AssemblyRegistration {
				defaultEnvelope(&registration.P, &registration.Op, OperationRegister)
				return registration
			},
		}),
	}
}

// AddAction appends an add-action operation to the assembly topic.
func (r *AssemblyRegistry) AddAction(ctx context.Context, assemblyTopicID string, operation AssemblyAddAction) (SubmitMessageResult, error) {
	defaultEnvelope(&operation.P, &operation.Op, OperationAddAction)
	if err := operation.Validate(); err != nil {
		return SubmitMessageResult{}, err
	}
	return r.submitOperation(ctx, assemblyTopicID, OperationAddAction, operation)
}

// AddBlock appends an add-block operation to the assembly topic.
func (r *AssemblyRegistry) AddBlock(ctx context.Context, assemblyTopicID string, operation AssemblyAddBlock) (SubmitMessageResult, error) {
	defaultEnvelope(&operation.P, &operation.Op, OperationAddBlock)
	if err := operation.Validate(); err != nil {
		return SubmitMessageResult{}, err
	}
	return r.submitOperation(ctx, assemblyTopicID, OperationAddBlock, operation)
}

// Update appends a metadata update operation to the assembly topic.
func (r *AssemblyRegistry) Update(ctx context.Context, assemblyTopicID string, operation AssemblyUpdate) (SubmitMessageResult, error) {
	defaultEnvelope(&operation.P, &operation.Op, OperationUpdate)
	if err := operation.Validate(); err != nil {
		return SubmitMessageResult{}, err
	}
	return r.submitOperation(ctx, assemblyTopicID, OperationUpdate, operation)
}

// GetAssemblyState replays the assembly topic and returns the reduced state. It returns nil
// without error when the topic holds no register operation.
func (r *AssemblyRegistry) GetAssemblyState(ctx context.Context, assemblyTopicID string) (*AssemblyState, error) {
	if r.reader == nil {
		return nil, fmt.Errorf("assembly registry has no mirror reader")
	}
	topicID := strings.TrimSpace(assemblyTopicID)
	if !IsTopicID(topicID) {
		return nil, fmt.Errorf("invalid assembly topic ID %q", assemblyTopicID)
	}
	messages, err := r.reader.GetTopicMessages(ctx, topicID, mirror.MessageQueryOptions{
		Limit: syncPageLimit,
		Order: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read assembly topic %s: %w", topicID, err)
	}
	state := ReplayAssembly(topicID, DecodeAssemblyEvents(messages, r.logger))
	if state == nil {
		r.logger.Debug().Str("assembly_topic_id", topicID).Msg("assembly topic has no register operation")
	}
	return state, nil
}

func (r *AssemblyRegistry) submitOperation(
	ctx context.Context,
	assemblyTopicID string,
	operation AssemblyOperation,
	payload any,
) (SubmitMessageResult, error) {
	if r.submitter == nil {
		return SubmitMessageResult{}, fmt.Errorf("assembly registry has no message submitter")
	}
	topicID := strings.TrimSpace(assemblyTopicID)
	if !IsTopicID(topicID) {
		return SubmitMessageResult{}, fmt.Errorf("invalid assembly topic ID %q", assemblyTopicID)
	}
	result, err := r.submitter.SubmitMessage(ctx, topicID, payload, DefaultTransactionMemo(operation, RegistryTypeAssembly))
	if err != nil {
		return SubmitMessageResult{}, fmt.Errorf("failed to submit %s operation: %w", operation, err)
	}
	r.logger.Debug().
		Str("assembly_topic_id", topicID).
		Str("op", string(operation)).
		Int64("sequence_number", result.SequenceNumber).
		Msg("submitted assembly operation")
	return result, nil
}
