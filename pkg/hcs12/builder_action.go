package hcs12

import (
	"fmt"
	"strings"
)

type ActionBuilder struct {
	registration ActionRegistration
	problems     []string
}

func NewActionBuilder() *ActionBuilder {
	return &ActionBuilder{
		registration: ActionRegistration{
			P:  Protocol,
			Op: string(OperationRegister),
		},
	}
}

func (builder *ActionBuilder) SetTopicID(topicID string) *ActionBuilder {
	builder.registration.TID = strings.TrimSpace(topicID)
	return builder
}

func (builder *ActionBuilder) SetHash(hash string) *ActionBuilder {
	builder.registration.Hash = strings.ToLower(strings.TrimSpace(hash))
	return builder
}

func (builder *ActionBuilder) SetWasmHash(hash string) *ActionBuilder {
	builder.registration.WasmHash = strings.ToLower(strings.TrimSpace(hash))
	return builder
}

// SetWasmBinary records the SHA-256 digest of the module binary as wasm_hash.
func (builder *ActionBuilder) SetWasmBinary(wasmBytes []byte) *ActionBuilder {
	builder.registration.WasmHash = HashBytes(wasmBytes)
	return builder
}

func (builder *ActionBuilder) SetJSWrapper(topicID string, hash string) *ActionBuilder {
	builder.registration.JSTID = strings.TrimSpace(topicID)
	builder.registration.JSHash = strings.ToLower(strings.TrimSpace(hash))
	return builder
}

func (builder *ActionBuilder) SetInterfaceVersion(version string) *ActionBuilder {
	builder.registration.InterfaceVersion = strings.TrimSpace(version)
	return builder
}

// SetModuleInfo embeds info and derives hash from its canonical JSON form.
func (builder *ActionBuilder) SetModuleInfo(info ModuleInfo) *ActionBuilder {
	hash, err := HashModuleInfo(info)
	if err != nil {
		builder.problems = append(builder.problems, fmt.Sprintf("module info cannot be hashed: %v", err))
		return builder
	}
	builder.registration.Info = &info
	builder.registration.Hash = hash
	return builder
}

func (builder *ActionBuilder) SetInfoTopicID(topicID string) *ActionBuilder {
	builder.registration.InfoTID = strings.TrimSpace(topicID)
	return builder
}

func (builder *ActionBuilder) SetSourceVerification(verification SourceVerification) *ActionBuilder {
	builder.registration.SourceVerification = &verification
	return builder
}

func (builder *ActionBuilder) SetValidationRules(rules map[string]any) *ActionBuilder {
	builder.registration.ValidationRules = rules
	return builder
}

func (builder *ActionBuilder) SetName(name string) *ActionBuilder {
	builder.registration.Name = strings.TrimSpace(name)
	return builder
}

func (builder *ActionBuilder) SetVersion(version string) *ActionBuilder {
	builder.registration.Version = strings.TrimSpace(version)
	return builder
}

func (builder *ActionBuilder) SetDescription(description string) *ActionBuilder {
	builder.registration.Description = strings.TrimSpace(description)
	return builder
}

func (builder *ActionBuilder) SetAuthor(author string) *ActionBuilder {
	builder.registration.Author = strings.TrimSpace(author)
	return builder
}

func (builder *ActionBuilder) AddTag(tag string) *ActionBuilder {
	if trimmed := strings.TrimSpace(tag); trimmed != "" {
		builder.registration.Tags = append(builder.registration.Tags, trimmed)
	}
	return builder
}

func (builder *ActionBuilder) SetMemo(memo string) *ActionBuilder {
	builder.registration.Memo = strings.TrimSpace(memo)
	return builder
}

// Build returns the registration or a *ValidationError listing every problem found.
func (builder *ActionBuilder) Build() (ActionRegistration, error) {
	problems := append([]string{}, builder.problems...)
	if err := builder.registration.Validate(); err != nil {
		problems = append(problems, validationProblems(err)...)
	}
	if len(problems) > 0 {
		return ActionRegistration{}, newValidationError("invalid action registration", problems)
	}
	return builder.registration, nil
}

func validationProblems(err error) []string {
	if validationErr, ok := err.(*ValidationError); ok {
		return validationErr.Problems
	}
	return []string{err.Error()}
}
