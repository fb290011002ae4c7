package hcs12

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/hashgraph-online/hashlinks-sdk-go/pkg/mirror"
	"github.com/rs/zerolog"
)

// AssemblyMessage is one operation on an assembly topic. The set of implementations is
// closed: AssemblyRegistration, AssemblyAddAction, AssemblyAddBlock and AssemblyUpdate.
type AssemblyMessage interface {
	Operation() AssemblyOperation
	Validate() error
	isAssemblyMessage()
}

func (AssemblyRegistration) Operation() AssemblyOperation { return OperationRegister }
func (AssemblyAddAction) Operation() AssemblyOperation    { return OperationAddAction }
func (AssemblyAddBlock) Operation() AssemblyOperation     { return OperationAddBlock }
func (AssemblyUpdate) Operation() AssemblyOperation       { return OperationUpdate }

func (AssemblyRegistration) isAssemblyMessage() {}
func (AssemblyAddAction) isAssemblyMessage()    {}
func (AssemblyAddBlock) isAssemblyMessage()     {}
func (AssemblyUpdate) isAssemblyMessage()       {}

// AssemblyEvent is an assembly message positioned in its topic log.
type AssemblyEvent struct {
	SequenceNumber     int64
	ConsensusTimestamp string
	Payer              string
	Message            AssemblyMessage
}

// ParseAssemblyMessage decodes one assembly topic message. It returns ErrForeignProtocol for
// messages of other standards.
func ParseAssemblyMessage(payload []byte) (AssemblyMessage, error) {
	var header MessageHeader
	if err := json.Unmarshal(payload, &header); err != nil {
		return nil, fmt.Errorf("failed to decode assembly message: %w", err)
	}
	if header.P != Protocol {
		return nil, ErrForeignProtocol
	}

	switch AssemblyOperation(header.Op) {
	case OperationRegister:
		return decodeAssemblyMessage[AssemblyRegistration](payload)
	case OperationAddAction:
		return decodeAssemblyMessage[AssemblyAddAction](payload)
	case OperationAddBlock:
		return decodeAssemblyMessage[AssemblyAddBlock](payload)
	case OperationUpdate:
		return decodeAssemblyMessage[AssemblyUpdate](payload)
	default:
		return nil, fmt.Errorf("unsupported assembly operation %q", header.Op)
	}
}

func decodeAssemblyMessage[T AssemblyMessage](payload []byte) (AssemblyMessage, error) {
	var message T
	if err := json.Unmarshal(payload, &message); err != nil {
		return nil, fmt.Errorf("failed to decode %s message: %w", message.Operation(), err)
	}
	return message, nil
}

// DecodeAssemblyEvents turns mirror messages into assembly events. Malformed messages are
// logged and skipped; messages of other protocols are dropped silently.
func DecodeAssemblyEvents(messages []mirror.TopicMessage, logger zerolog.Logger) []AssemblyEvent {
	events := make([]AssemblyEvent, 0, len(messages))
	for _, topicMessage := range messages {
		payload, err := mirror.DecodeMessageData(topicMessage)
		if err != nil {
			logger.Warn().Err(err).Int64("sequence_number", topicMessage.SequenceNumber).Msg("skipping undecodable assembly message")
			continue
		}
		message, err := ParseAssemblyMessage(payload)
		if err != nil {
			if !errors.Is(err, ErrForeignProtocol) {
				logger.Warn().Err(err).Int64("sequence_number", topicMessage.SequenceNumber).Msg("skipping malformed assembly message")
			}
			continue
		}
		events = append(events, AssemblyEvent{
			SequenceNumber:     topicMessage.SequenceNumber,
			ConsensusTimestamp: topicMessage.ConsensusTimestamp,
			Payer:              topicMessage.PayerAccountID,
			Message:            message,
		})
	}
	return events
}

// ReplayAssembly folds events, in ascending sequence order, into the current assembly state.
// It returns nil when no register event is present.
func ReplayAssembly(topicID string, events []AssemblyEvent) *AssemblyState {
	ordered := append([]AssemblyEvent(nil), events...)
	sort.SliceStable(ordered, func(left, right int) bool {
		return ordered[left].SequenceNumber < ordered[right].SequenceNumber
	})

	var state *AssemblyState
	for _, event := range ordered {
		state = ApplyAssemblyEvent(state, topicID, event)
	}
	return state
}

// ApplyAssemblyEvent applies one event to state and returns the resulting state.
// A register event only initializes state once; later register events are ignored.
// Other events are ignored until the assembly has been registered.
func ApplyAssemblyEvent(state *AssemblyState, topicID string, event AssemblyEvent) *AssemblyState {
	switch message := event.Message.(type) {
	case AssemblyRegistration:
		if state != nil {
			return state
		}
		return &AssemblyState{
			TopicID:     topicID,
			Name:        message.Name,
			Version:     message.Version,
			Title:       message.Title,
			Description: message.Description,
			Author:      message.Author,
			License:     message.License,
			Tags:        cloneStrings(message.Tags),
			Actions:     []AssemblyActionState{},
			Blocks:      []AssemblyBlockState{},
			Created:     event.ConsensusTimestamp,
			Updated:     event.ConsensusTimestamp,
		}
	case AssemblyAddAction:
		if state == nil {
			return nil
		}
		state.Actions = append(state.Actions, AssemblyActionState{
			TID:    message.TID,
			Alias:  message.Alias,
			Config: cloneMap(message.Config),
			Data:   message.Data,
		})
	case AssemblyAddBlock:
		if state == nil {
			return nil
		}
		state.Blocks = append(state.Blocks, AssemblyBlockState{
			BlockTID:   message.BlockID,
			Actions:    cloneStringMap(message.Actions),
			Attributes: cloneMap(message.Attributes),
			Children:   cloneStrings(message.Children),
		})
	case AssemblyUpdate:
		if state == nil {
			return nil
		}
		if message.Title != nil {
			state.Title = *message.Title
		}
		if message.Description != nil {
			state.Description = *message.Description
		}
		if message.Author != nil {
			state.Author = *message.Author
		}
		if message.License != nil {
			state.License = *message.License
		}
		if message.Tags != nil {
			state.Tags = cloneStrings(message.Tags)
		}
	default:
		return state
	}

	state.Updated = event.ConsensusTimestamp
	return state
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string{}, values...)
}

func cloneStringMap(values map[string]string) map[string]string {
	if values == nil {
		return nil
	}
	clone := make(map[string]string, len(values))
	for key, value := range values {
		clone[key] = value
	}
	return clone
}

func cloneMap(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	clone := make(map[string]any, len(values))
	for key, value := range values {
		clone[key] = value
	}
	return clone
}
