package hcs12

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const blockSchemaURL = "https://hashlinks.hashgraphonline.com/schemas/block.schema.json"

//go:embed schemas/block.schema.json
var blockSchemaDocument []byte

var compileBlockSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(blockSchemaURL, bytes.NewReader(blockSchemaDocument)); err != nil {
		return nil, fmt.Errorf("failed to load block schema: %w", err)
	}
	schema, err := compiler.Compile(blockSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile block schema: %w", err)
	}
	return schema, nil
})

// ValidateBlockDocument checks a JSON block definition against the block-editor compatible
// registration schema.
func ValidateBlockDocument(document []byte) error {
	schema, err := compileBlockSchema()
	if err != nil {
		return err
	}
	var value any
	decoder := json.NewDecoder(bytes.NewReader(document))
	decoder.UseNumber()
	if err := decoder.Decode(&value); err != nil {
		return fmt.Errorf("failed to decode block document: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return &ValidationError{Message: "block document does not match schema", Problems: []string{err.Error()}}
	}
	return nil
}

type BlockBuilder struct {
	registration BlockRegistration
}

func NewBlockBuilder() *BlockBuilder {
	return &BlockBuilder{
		registration: BlockRegistration{
			P:  Protocol,
			Op: string(OperationRegister),
		},
	}
}

func (builder *BlockBuilder) SetName(name string) *BlockBuilder {
	builder.registration.Name = strings.TrimSpace(name)
	return builder
}

func (builder *BlockBuilder) SetVersion(version string) *BlockBuilder {
	builder.registration.Version = strings.TrimSpace(version)
	return builder
}

func (builder *BlockBuilder) SetTitle(title string) *BlockBuilder {
	builder.registration.Title = strings.TrimSpace(title)
	return builder
}

func (builder *BlockBuilder) SetCategory(category string) *BlockBuilder {
	builder.registration.Category = strings.TrimSpace(category)
	return builder
}

func (builder *BlockBuilder) SetDescription(description string) *BlockBuilder {
	builder.registration.Description = strings.TrimSpace(description)
	return builder
}

func (builder *BlockBuilder) SetIcon(icon string) *BlockBuilder {
	builder.registration.Icon = strings.TrimSpace(icon)
	return builder
}

func (builder *BlockBuilder) AddKeyword(keyword string) *BlockBuilder {
	if trimmed := strings.TrimSpace(keyword); trimmed != "" {
		builder.registration.Keywords = append(builder.registration.Keywords, trimmed)
	}
	return builder
}

func (builder *BlockBuilder) AddAttribute(name string, attribute AttributeDefinition) *BlockBuilder {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return builder
	}
	if builder.registration.Attributes == nil {
		builder.registration.Attributes = map[string]AttributeDefinition{}
	}
	builder.registration.Attributes[trimmed] = attribute
	return builder
}

func (builder *BlockBuilder) SetSupports(supports map[string]any) *BlockBuilder {
	builder.registration.Supports = supports
	return builder
}

func (builder *BlockBuilder) AddParent(parent string) *BlockBuilder {
	if trimmed := strings.TrimSpace(parent); trimmed != "" {
		builder.registration.Parent = append(builder.registration.Parent, trimmed)
	}
	return builder
}

// AddAction declares an action name the block needs from its assembly.
func (builder *BlockBuilder) AddAction(name string) *BlockBuilder {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		builder.registration.Actions = append(builder.registration.Actions, trimmed)
	}
	return builder
}

func (builder *BlockBuilder) SetTemplate(template string) *BlockBuilder {
	builder.registration.Template = template
	return builder
}

func (builder *BlockBuilder) SetTopicID(topicID string) *BlockBuilder {
	builder.registration.TID = strings.TrimSpace(topicID)
	return builder
}

func (builder *BlockBuilder) SetData(data map[string]any) *BlockBuilder {
	builder.registration.Data = data
	return builder
}

// Build returns the registration after checking both the registration rules and the block schema.
func (builder *BlockBuilder) Build() (BlockRegistration, error) {
	problems := make([]string, 0)
	if err := builder.registration.Validate(); err != nil {
		problems = append(problems, validationProblems(err)...)
	}
	encoded, err := json.Marshal(builder.registration)
	if err != nil {
		return BlockRegistration{}, fmt.Errorf("failed to encode block registration: %w", err)
	}
	if err := ValidateBlockDocument(encoded); err != nil {
		problems = append(problems, validationProblems(err)...)
	}
	if len(problems) > 0 {
		return BlockRegistration{}, newValidationError("invalid block registration", problems)
	}
	return builder.registration, nil
}
