package hcs12

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type AssemblyBuilder struct {
	registration AssemblyRegistration
}

func NewAssemblyBuilder() *AssemblyBuilder {
	return &AssemblyBuilder{
		registration: AssemblyRegistration{
			P:  Protocol,
			Op: string(OperationRegister),
		},
	}
}

func (builder *AssemblyBuilder) SetName(name string) *AssemblyBuilder {
	builder.registration.Name = strings.TrimSpace(name)
	return builder
}

func (builder *AssemblyBuilder) SetVersion(version string) *AssemblyBuilder {
	builder.registration.Version = strings.TrimSpace(version)
	return builder
}

func (builder *AssemblyBuilder) SetTitle(title string) *AssemblyBuilder {
	builder.registration.Title = strings.TrimSpace(title)
	return builder
}

func (builder *AssemblyBuilder) SetDescription(description string) *AssemblyBuilder {
	builder.registration.Description = strings.TrimSpace(description)
	return builder
}

func (builder *AssemblyBuilder) SetAuthor(author string) *AssemblyBuilder {
	builder.registration.Author = strings.TrimSpace(author)
	return builder
}

func (builder *AssemblyBuilder) SetLicense(license string) *AssemblyBuilder {
	builder.registration.License = strings.TrimSpace(license)
	return builder
}

func (builder *AssemblyBuilder) AddTag(tag string) *AssemblyBuilder {
	if trimmed := strings.TrimSpace(tag); trimmed != "" {
		builder.registration.Tags = append(builder.registration.Tags, trimmed)
	}
	return builder
}

func (builder *AssemblyBuilder) AddAction(reference AssemblyActionReference) *AssemblyBuilder {
	builder.registration.Actions = append(builder.registration.Actions, reference)
	return builder
}

func (builder *AssemblyBuilder) AddBlock(reference AssemblyBlockReference) *AssemblyBuilder {
	builder.registration.Blocks = append(builder.registration.Blocks, reference)
	return builder
}

func (builder *AssemblyBuilder) SetLayout(layout map[string]any) *AssemblyBuilder {
	builder.registration.Layout = layout
	return builder
}

func (builder *AssemblyBuilder) AddDependency(dependency AssemblyDependency) *AssemblyBuilder {
	builder.registration.Dependencies = append(builder.registration.Dependencies, dependency)
	return builder
}

// SetTopicID points the registration at an out-of-band copy of the full document.
func (builder *AssemblyBuilder) SetTopicID(topicID string) *AssemblyBuilder {
	builder.registration.TID = strings.TrimSpace(topicID)
	return builder
}

// Build returns the register message. Duplicate reference IDs are rejected.
func (builder *AssemblyBuilder) Build() (AssemblyRegistration, error) {
	problems := make([]string, 0)
	if err := builder.registration.Validate(); err != nil {
		problems = append(problems, validationProblems(err)...)
	}
	seenActions := map[string]bool{}
	for _, action := range builder.registration.Actions {
		if action.ID != "" && seenActions[action.ID] {
			problems = append(problems, fmt.Sprintf("duplicate action id %q", action.ID))
		}
		seenActions[action.ID] = true
	}
	seenBlocks := map[string]bool{}
	for _, block := range builder.registration.Blocks {
		if block.ID != "" && seenBlocks[block.ID] {
			problems = append(problems, fmt.Sprintf("duplicate block id %q", block.ID))
		}
		seenBlocks[block.ID] = true
	}
	if len(problems) > 0 {
		return AssemblyRegistration{}, newValidationError("invalid assembly registration", problems)
	}
	return builder.registration, nil
}

func (builder *AssemblyBuilder) BuildAddAction(topicID string, alias string, config map[string]any) (AssemblyAddAction, error) {
	operation := AssemblyAddAction{
		P:      Protocol,
		Op:     string(OperationAddAction),
		TID:    strings.TrimSpace(topicID),
		Alias:  strings.TrimSpace(alias),
		Config: config,
	}
	if err := operation.Validate(); err != nil {
		return AssemblyAddAction{}, err
	}
	return operation, nil
}

func (builder *AssemblyBuilder) BuildAddBlock(blockTopicID string, actions map[string]string, attributes map[string]any) (AssemblyAddBlock, error) {
	operation := AssemblyAddBlock{
		P:          Protocol,
		Op:         string(OperationAddBlock),
		BlockID:    strings.TrimSpace(blockTopicID),
		Actions:    actions,
		Attributes: attributes,
	}
	if err := operation.Validate(); err != nil {
		return AssemblyAddBlock{}, err
	}
	return operation, nil
}

func (builder *AssemblyBuilder) BuildUpdate(update AssemblyUpdate) (AssemblyUpdate, error) {
	update.P = Protocol
	update.Op = string(OperationUpdate)
	if err := update.Validate(); err != nil {
		return AssemblyUpdate{}, err
	}
	return update, nil
}

// ParseAssemblyDefinition reads an assembly manifest written in YAML or JSON. Keys follow the
// wire names (registryId, defaultParams, t_id). The envelope defaults to an hcs-12 register.
func ParseAssemblyDefinition(data []byte) (AssemblyRegistration, error) {
	var document map[string]any
	if err := yaml.Unmarshal(data, &document); err != nil {
		return AssemblyRegistration{}, fmt.Errorf("%w: %v", ErrAssemblyParse, err)
	}
	if document == nil {
		return AssemblyRegistration{}, fmt.Errorf("%w: empty document", ErrAssemblyParse)
	}
	encoded, err := json.Marshal(document)
	if err != nil {
		return AssemblyRegistration{}, fmt.Errorf("%w: %v", ErrAssemblyParse, err)
	}
	var registration AssemblyRegistration
	if err := json.Unmarshal(encoded, &registration); err != nil {
		return AssemblyRegistration{}, fmt.Errorf("%w: %v", ErrAssemblyParse, err)
	}
	defaultEnvelope(&registration.P, &registration.Op, OperationRegister)
	if err := registration.Validate(); err != nil {
		return AssemblyRegistration{}, err
	}
	return registration, nil
}
