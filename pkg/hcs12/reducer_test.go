package hcs12

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/hashgraph-online/hashlinks-sdk-go/pkg/mirror"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAssemblyStateCounterApp(t *testing.T) {
	reader := newFakeTopicReader()
	reader.push(t, "0.0.6205800", `{"p":"hcs-12","op":"register","name":"counter-app","version":"1.0.0","description":"Counter application"}`)
	reader.push(t, "0.0.6205800", `{"p":"hcs-12","op":"add-block","block_t_id":"0.0.6205816","actions":{"increment":"0.0.6205801","decrement":"0.0.6205802","reset":"0.0.6205803"},"attributes":{"count":0}}`)

	registry := NewAssemblyRegistry(RegistryConfig{Reader: reader})
	state, err := registry.GetAssemblyState(context.Background(), "0.0.6205800")
	require.NoError(t, err)
	require.NotNil(t, state)

	assert.Equal(t, "counter-app", state.Name)
	assert.Equal(t, "1.0.0", state.Version)
	assert.Equal(t, "0.0.6205800", state.TopicID)
	require.Len(t, state.Blocks, 1)
	assert.Equal(t, "0.0.6205816", state.Blocks[0].BlockTID)
	assert.Len(t, state.Blocks[0].Actions, 3)
	assert.Equal(t, "0.0.6205803", state.Blocks[0].Actions["reset"])
	assert.Empty(t, state.Actions)
	assert.Equal(t, "1700000000.000000001", state.Created)
	assert.Equal(t, "1700000000.000000002", state.Updated)
}

func TestGetAssemblyStateWithoutRegister(t *testing.T) {
	reader := newFakeTopicReader()
	reader.push(t, "0.0.6205900", `{"p":"hcs-12","op":"add-action","t_id":"0.0.1","alias":"orphan"}`)

	registry := NewAssemblyRegistry(RegistryConfig{Reader: reader})
	state, err := registry.GetAssemblyState(context.Background(), "0.0.6205900")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestGetAssemblyStateErrors(t *testing.T) {
	_, err := NewAssemblyRegistry(RegistryConfig{}).GetAssemblyState(context.Background(), "0.0.1")
	assert.Error(t, err)

	registry := NewAssemblyRegistry(RegistryConfig{Reader: newFakeTopicReader()})
	_, err = registry.GetAssemblyState(context.Background(), "not-a-topic")
	assert.Error(t, err)

	failing := newFakeTopicReader()
	failing.err = fmt.Errorf("mirror unavailable")
	_, err = NewAssemblyRegistry(RegistryConfig{Reader: failing}).GetAssemblyState(context.Background(), "0.0.1")
	assert.Error(t, err)
}

func TestAssemblyRegistryOperations(t *testing.T) {
	submitter := &fakeSubmitter{}
	registry := NewAssemblyRegistry(RegistryConfig{Submitter: submitter})
	ctx := context.Background()

	_, err := registry.AddAction(ctx, "0.0.77", AssemblyAddAction{TID: "0.0.5001", Alias: "increment"})
	require.NoError(t, err)
	_, err = registry.AddBlock(ctx, "0.0.77", AssemblyAddBlock{BlockID: "0.0.6001", Actions: map[string]string{"increment": "0.0.5001"}})
	require.NoError(t, err)
	_, err = registry.Update(ctx, "0.0.77", AssemblyUpdate{Title: stringPointer("Counter")})
	require.NoError(t, err)

	require.Len(t, submitter.messages["0.0.77"], 3)
	added, ok := submitter.messages["0.0.77"][0].(AssemblyAddAction)
	require.True(t, ok)
	assert.Equal(t, Protocol, added.P)
	assert.Equal(t, string(OperationAddAction), added.Op)
	assert.Equal(t, DefaultTransactionMemo(OperationAddBlock, RegistryTypeAssembly), submitter.memos[1])

	_, err = registry.AddAction(ctx, "0.0.77", AssemblyAddAction{TID: "bad", Alias: "x"})
	assert.Error(t, err)
	_, err = registry.AddBlock(ctx, "invalid", AssemblyAddBlock{BlockID: "0.0.6001"})
	assert.Error(t, err)
	_, err = NewAssemblyRegistry(RegistryConfig{}).Update(ctx, "0.0.77", AssemblyUpdate{})
	assert.Error(t, err)
}

func TestParseAssemblyMessage(t *testing.T) {
	message, err := ParseAssemblyMessage([]byte(`{"p":"hcs-12","op":"update","title":"New"}`))
	require.NoError(t, err)
	update, ok := message.(AssemblyUpdate)
	require.True(t, ok)
	require.NotNil(t, update.Title)
	assert.Equal(t, "New", *update.Title)
	assert.Nil(t, update.Description)

	_, err = ParseAssemblyMessage([]byte(`{"p":"hcs-2","op":"register"}`))
	assert.ErrorIs(t, err, ErrForeignProtocol)

	_, err = ParseAssemblyMessage([]byte(`{"p":"hcs-12","op":"delete"}`))
	assert.Error(t, err)

	_, err = ParseAssemblyMessage([]byte(`{`))
	assert.Error(t, err)
}

func TestDecodeAssemblyEventsSkipsBadMessages(t *testing.T) {
	reader := newFakeTopicReader()
	reader.push(t, "0.0.1", `{"p":"hcs-12","op":"register","name":"a","version":"1.0.0"}`)
	reader.push(t, "0.0.1", `garbage`)
	reader.push(t, "0.0.1", `{"p":"hcs-10","op":"message"}`)
	messages := append(reader.messages["0.0.1"], mirror.TopicMessage{SequenceNumber: 9, Message: "%%%"})

	events := DecodeAssemblyEvents(messages, zerolog.Nop())
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].SequenceNumber)
	assert.Equal(t, OperationRegister, events[0].Message.Operation())
}

func TestReplayAssemblyIgnoresDuplicateRegister(t *testing.T) {
	events := []AssemblyEvent{
		{SequenceNumber: 1, ConsensusTimestamp: "1.1", Message: AssemblyRegistration{Name: "first", Version: "1.0.0"}},
		{SequenceNumber: 2, ConsensusTimestamp: "1.2", Message: AssemblyRegistration{Name: "second", Version: "2.0.0"}},
	}
	state := ReplayAssembly("0.0.1", events)
	require.NotNil(t, state)
	assert.Equal(t, "first", state.Name)
	assert.Equal(t, "1.1", state.Updated)
}

func TestReplayAssemblyUpdateMergesSetFields(t *testing.T) {
	events := []AssemblyEvent{
		{SequenceNumber: 3, ConsensusTimestamp: "1.3", Message: AssemblyUpdate{Description: stringPointer("changed")}},
		{SequenceNumber: 1, ConsensusTimestamp: "1.1", Message: AssemblyRegistration{
			Name:        "app",
			Version:     "1.0.0",
			Title:       "App",
			Description: "original",
			Tags:        []string{"demo"},
		}},
		{SequenceNumber: 2, ConsensusTimestamp: "1.2", Message: AssemblyAddAction{TID: "0.0.5", Alias: "run", Config: map[string]any{"n": 1}}},
	}
	state := ReplayAssembly("0.0.1", events)
	require.NotNil(t, state)
	assert.Equal(t, "App", state.Title)
	assert.Equal(t, "changed", state.Description)
	assert.Equal(t, []string{"demo"}, state.Tags)
	require.Len(t, state.Actions, 1)
	assert.Equal(t, "run", state.Actions[0].Alias)
	assert.Equal(t, "1.1", state.Created)
	assert.Equal(t, "1.3", state.Updated)
}

func TestReplayAssemblyEmpty(t *testing.T) {
	assert.Nil(t, ReplayAssembly("0.0.1", nil))
}

func assemblyEventsFromKinds(kinds []int) []AssemblyEvent {
	events := make([]AssemblyEvent, 0, len(kinds))
	for index, kind := range kinds {
		sequence := int64(index + 1)
		var message AssemblyMessage
		switch kind {
		case 0:
			message = AssemblyRegistration{Name: fmt.Sprintf("app-%d", index), Version: "1.0.0"}
		case 1:
			message = AssemblyAddAction{TID: fmt.Sprintf("0.0.%d", 100+index), Alias: fmt.Sprintf("action-%d", index)}
		case 2:
			message = AssemblyAddBlock{BlockID: fmt.Sprintf("0.0.%d", 200+index)}
		default:
			message = AssemblyUpdate{Title: stringPointer(fmt.Sprintf("title-%d", index))}
		}
		events = append(events, AssemblyEvent{
			SequenceNumber:     sequence,
			ConsensusTimestamp: fmt.Sprintf("1700000000.%09d", sequence),
			Message:            message,
		})
	}
	return events
}

func TestReplayAssemblyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("replay is deterministic and independent of delivery order", prop.ForAll(
		func(kinds []int) bool {
			events := assemblyEventsFromKinds(kinds)
			reversed := make([]AssemblyEvent, len(events))
			for index, event := range events {
				reversed[len(events)-1-index] = event
			}
			first := ReplayAssembly("0.0.1", events)
			second := ReplayAssembly("0.0.1", events)
			shuffled := ReplayAssembly("0.0.1", reversed)
			return reflect.DeepEqual(first, second) && reflect.DeepEqual(first, shuffled)
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.Property("only operations after the first register are applied", prop.ForAll(
		func(kinds []int) bool {
			state := ReplayAssembly("0.0.1", assemblyEventsFromKinds(kinds))
			registered := -1
			for index, kind := range kinds {
				if kind == 0 {
					registered = index
					break
				}
			}
			if registered < 0 {
				return state == nil
			}
			actions, blocks := 0, 0
			for _, kind := range kinds[registered+1:] {
				switch kind {
				case 1:
					actions++
				case 2:
					blocks++
				}
			}
			return state != nil &&
				state.Name == fmt.Sprintf("app-%d", registered) &&
				len(state.Actions) == actions &&
				len(state.Blocks) == blocks &&
				state.Updated == fmt.Sprintf("1700000000.%09d", lastAppliedSequence(kinds, registered))
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}

// lastAppliedSequence is the sequence number of the last event that changes state.
func lastAppliedSequence(kinds []int, registered int) int {
	last := registered + 1
	for index := registered + 1; index < len(kinds); index++ {
		if kinds[index] != 0 {
			last = index + 1
		}
	}
	return last
}
