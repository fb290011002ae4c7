package hcs12

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Masterminds/semver/v3"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 500
	maxTags              = 10
)

var (
	topicIDPattern      = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	sha256HexPattern    = regexp.MustCompile(`^[a-f0-9]{64}$`)
	assemblyNamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	blockNamePattern    = regexp.MustCompile(`^[a-z0-9-]+/[a-z0-9-]+$`)
	blockCategories     = map[string]bool{"text": true, "media": true, "design": true, "widgets": true, "theme": true, "embed": true, "interactive": true}
	attributeTypes      = map[string]bool{"string": true, "number": true, "integer": true, "boolean": true, "object": true, "array": true, "null": true}
	dependencyTypes     = map[string]bool{"": true, "action": true, "block": true, "assembly": true}
)

// ValidatePayload checks the protocol envelope and per-operation required fields of a raw message.
func ValidatePayload(payload map[string]any) error {
	protocolValue, ok := payload["p"].(string)
	if !ok || strings.TrimSpace(protocolValue) != Protocol {
		return fmt.Errorf("payload p must be hcs-12")
	}
	operationValue, ok := payload["op"].(string)
	if !ok || strings.TrimSpace(operationValue) == "" {
		return fmt.Errorf("payload op is required")
	}

	switch AssemblyOperation(strings.TrimSpace(operationValue)) {
	case OperationRegister:
		if topicValue, hasTopic := payload["t_id"]; hasTopic {
			if topicID, ok := topicValue.(string); !ok || !IsTopicID(topicID) {
				return fmt.Errorf("payload t_id must be a Hedera topic ID")
			}
		}
	case OperationAddAction:
		topicID, ok := payload["t_id"].(string)
		if !ok || !IsTopicID(topicID) {
			return fmt.Errorf("add-action requires valid t_id")
		}
	case OperationAddBlock:
		blockTopicID, ok := payload["block_t_id"].(string)
		if !ok || !IsTopicID(blockTopicID) {
			return fmt.Errorf("add-block requires valid block_t_id")
		}
	case OperationUpdate:
	default:
		return fmt.Errorf("unsupported payload op %q", operationValue)
	}
	return nil
}

// IsTopicID reports whether value is a shard.realm.num entity ID.
func IsTopicID(value string) bool {
	return topicIDPattern.MatchString(strings.TrimSpace(value))
}

// IsSemver reports whether value is a strict semantic version such as 1.2.3.
func IsSemver(value string) bool {
	_, err := semver.StrictNewVersion(strings.TrimSpace(value))
	return err == nil
}

func validateHeader(header MessageHeader, operation AssemblyOperation) []string {
	problems := make([]string, 0)
	if header.P != Protocol {
		problems = append(problems, fmt.Sprintf("p must be %s", Protocol))
	}
	if header.Op != string(operation) {
		problems = append(problems, fmt.Sprintf("op must be %s", operation))
	}
	return problems
}

func validateTags(tags []string) []string {
	problems := make([]string, 0)
	if len(tags) > maxTags {
		problems = append(problems, fmt.Sprintf("tags must contain at most %d entries", maxTags))
	}
	for index, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			problems = append(problems, fmt.Sprintf("tags[%d] must not be empty", index))
		}
	}
	return problems
}

// Header returns the protocol envelope.
func (registration ActionRegistration) Header() MessageHeader {
	return MessageHeader{P: registration.P, Op: registration.Op}
}

// Validate checks the required fields of an action registration.
func (registration ActionRegistration) Validate() error {
	problems := validateHeader(registration.Header(), OperationRegister)
	if !IsTopicID(registration.TID) {
		problems = append(problems, "t_id must be a Hedera topic ID")
	}
	if !sha256HexPattern.MatchString(registration.Hash) {
		problems = append(problems, "hash must be a 64 character lowercase hex SHA-256 digest")
	}
	if !sha256HexPattern.MatchString(registration.WasmHash) {
		problems = append(problems, "wasm_hash must be a 64 character lowercase hex SHA-256 digest")
	}
	if (registration.JSTID == "") != (registration.JSHash == "") {
		problems = append(problems, "js_t_id and js_hash must be provided together")
	}
	if registration.JSTID != "" && !IsTopicID(registration.JSTID) {
		problems = append(problems, "js_t_id must be a Hedera topic ID")
	}
	if registration.JSHash != "" && !sha256HexPattern.MatchString(registration.JSHash) {
		problems = append(problems, "js_hash must be a 64 character lowercase hex SHA-256 digest")
	}
	if registration.InfoTID != "" && !IsTopicID(registration.InfoTID) {
		problems = append(problems, "info_t_id must be a Hedera topic ID")
	}
	if registration.Version != "" && !IsSemver(registration.Version) {
		problems = append(problems, "version must be a semantic version")
	}
	if registration.InterfaceVersion != "" && !IsSemver(registration.InterfaceVersion) {
		problems = append(problems, "interface_version must be a semantic version")
	}
	if verification := registration.SourceVerification; verification != nil {
		if !IsTopicID(verification.SourceTID) {
			problems = append(problems, "source_verification.source_t_id must be a Hedera topic ID")
		}
		if !sha256HexPattern.MatchString(verification.SourceHash) {
			problems = append(problems, "source_verification.source_hash must be a SHA-256 digest")
		}
		if strings.TrimSpace(verification.CompilerVersion) == "" {
			problems = append(problems, "source_verification.compiler_version is required")
		}
		if strings.TrimSpace(verification.Target) == "" {
			problems = append(problems, "source_verification.target is required")
		}
	}
	problems = append(problems, validateTags(registration.Tags)...)
	return newValidationError("invalid action registration", problems)
}

// Header returns the protocol envelope.
func (registration BlockRegistration) Header() MessageHeader {
	return MessageHeader{P: registration.P, Op: registration.Op}
}

// Validate checks the required fields of a block registration.
func (registration BlockRegistration) Validate() error {
	problems := validateHeader(registration.Header(), OperationRegister)
	switch {
	case strings.TrimSpace(registration.Name) == "":
		problems = append(problems, "name is required")
	case !blockNamePattern.MatchString(registration.Name):
		problems = append(problems, "name must be namespaced lowercase-hyphen, e.g. namespace/block-name")
	}
	switch {
	case strings.TrimSpace(registration.Version) == "":
		problems = append(problems, "version is required")
	case !IsSemver(registration.Version):
		problems = append(problems, "version must be a semantic version")
	}
	if strings.TrimSpace(registration.Title) == "" {
		problems = append(problems, "title is required")
	}
	if !blockCategories[registration.Category] {
		problems = append(problems, fmt.Sprintf("category %q is not supported", registration.Category))
	}
	if utf8.RuneCountInString(registration.Description) > maxDescriptionLength {
		problems = append(problems, fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	for name, attribute := range registration.Attributes {
		if !attributeTypes[attribute.Type] {
			problems = append(problems, fmt.Sprintf("attribute %q has unsupported type %q", name, attribute.Type))
		}
	}
	for _, parent := range registration.Parent {
		if !blockNamePattern.MatchString(parent) {
			problems = append(problems, fmt.Sprintf("parent %q must be a namespaced block name", parent))
		}
	}
	if registration.TID != "" && !IsTopicID(registration.TID) {
		problems = append(problems, "t_id must be a Hedera topic ID")
	}
	return newValidationError("invalid block registration", problems)
}

// Header returns the protocol envelope.
func (registration AssemblyRegistration) Header() MessageHeader {
	return MessageHeader{P: registration.P, Op: registration.Op}
}

// Validate checks the required fields of an assembly registration.
func (registration AssemblyRegistration) Validate() error {
	problems := validateHeader(registration.Header(), OperationRegister)
	switch {
	case strings.TrimSpace(registration.Name) == "":
		problems = append(problems, "name is required")
	case !assemblyNamePattern.MatchString(registration.Name):
		problems = append(problems, "name must contain only lowercase letters, digits and hyphens")
	}
	switch {
	case strings.TrimSpace(registration.Version) == "":
		problems = append(problems, "version is required")
	case !IsSemver(registration.Version):
		problems = append(problems, "version must be a semantic version")
	}
	if utf8.RuneCountInString(registration.Description) > maxDescriptionLength {
		problems = append(problems, fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	problems = append(problems, validateTags(registration.Tags)...)
	for index, action := range registration.Actions {
		if strings.TrimSpace(action.ID) == "" {
			problems = append(problems, fmt.Sprintf("actions[%d].id is required", index))
		}
		if strings.TrimSpace(action.RegistryID) == "" {
			problems = append(problems, fmt.Sprintf("actions[%d].registryId is required", index))
		}
	}
	for index, block := range registration.Blocks {
		if strings.TrimSpace(block.ID) == "" {
			problems = append(problems, fmt.Sprintf("blocks[%d].id is required", index))
		}
		if strings.TrimSpace(block.RegistryID) == "" {
			problems = append(problems, fmt.Sprintf("blocks[%d].registryId is required", index))
		}
	}
	for index, dependency := range registration.Dependencies {
		if strings.TrimSpace(dependency.Name) == "" {
			problems = append(problems, fmt.Sprintf("dependencies[%d].name is required", index))
		}
		if !dependencyTypes[dependency.Type] {
			problems = append(problems, fmt.Sprintf("dependencies[%d].type %q is not supported", index, dependency.Type))
		}
	}
	if registration.TID != "" && !IsTopicID(registration.TID) {
		problems = append(problems, "t_id must be a Hedera topic ID")
	}
	return newValidationError("invalid assembly registration", problems)
}

// validateRegistration accepts a pointer registration on its pointer shape and any other
// document on its full rules.
func validateRegistration(document Document) error {
	if pointer, ok := document.(interface{ validatePointer() (bool, error) }); ok {
		if isPointer, err := pointer.validatePointer(); isPointer {
			return err
		}
	}
	return document.Validate()
}

// validatePointer checks an assembly registered as a pointer to content stored under t_id.
// Only the envelope, the name and the pointer are required; the stored content supplies the
// rest when the assembly is loaded. It reports false when the registration is not a pointer.
func (registration AssemblyRegistration) validatePointer() (bool, error) {
	if registration.TID == "" || strings.TrimSpace(registration.Version) != "" {
		return false, nil
	}
	return true, validatePointerShape(registration.Header(), registration.Name, assemblyNamePattern.MatchString, registration.TID, "invalid assembly pointer")
}

// validatePointer checks a block whose template and data still live under t_id.
func (registration BlockRegistration) validatePointer() (bool, error) {
	if registration.TID == "" || registration.Template != "" || registration.Data != nil {
		return false, nil
	}
	return true, validatePointerShape(registration.Header(), registration.Name, blockNamePattern.MatchString, registration.TID, "invalid block pointer")
}

func validatePointerShape(header MessageHeader, name string, validName func(string) bool, topicID string, message string) error {
	problems := validateHeader(header, OperationRegister)
	switch {
	case strings.TrimSpace(name) == "":
		problems = append(problems, "name is required")
	case !validName(name):
		problems = append(problems, fmt.Sprintf("name %q is not valid", name))
	}
	if !IsTopicID(topicID) {
		problems = append(problems, "t_id must be a Hedera topic ID")
	}
	return newValidationError(message, problems)
}

// Validate checks an add-action operation.
func (operation AssemblyAddAction) Validate() error {
	problems := validateHeader(MessageHeader{P: operation.P, Op: operation.Op}, OperationAddAction)
	if !IsTopicID(operation.TID) {
		problems = append(problems, "t_id must be a Hedera topic ID")
	}
	if strings.TrimSpace(operation.Alias) == "" {
		problems = append(problems, "alias is required")
	}
	if operation.Data != "" && !IsTopicID(operation.Data) {
		problems = append(problems, "data must reference a Hedera topic ID")
	}
	return newValidationError("invalid add-action operation", problems)
}

// Validate checks an add-block operation.
func (operation AssemblyAddBlock) Validate() error {
	problems := validateHeader(MessageHeader{P: operation.P, Op: operation.Op}, OperationAddBlock)
	if !IsTopicID(operation.BlockID) {
		problems = append(problems, "block_t_id must be a Hedera topic ID")
	}
	for alias, topicID := range operation.Actions {
		if !IsTopicID(topicID) {
			problems = append(problems, fmt.Sprintf("actions[%s] must be a Hedera topic ID", alias))
		}
	}
	return newValidationError("invalid add-block operation", problems)
}

// Validate checks an update operation.
func (operation AssemblyUpdate) Validate() error {
	problems := validateHeader(MessageHeader{P: operation.P, Op: operation.Op}, OperationUpdate)
	if operation.Description != nil && utf8.RuneCountInString(*operation.Description) > maxDescriptionLength {
		problems = append(problems, fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	if operation.Tags != nil {
		problems = append(problems, validateTags(operation.Tags)...)
	}
	return newValidationError("invalid update operation", problems)
}

// Header returns the protocol envelope.
func (registration HashLinksRegistration) Header() MessageHeader {
	return MessageHeader{P: registration.P, Op: registration.Op}
}

// Validate checks the required fields of a HashLinks directory registration.
func (registration HashLinksRegistration) Validate() error {
	problems := validateHeader(registration.Header(), OperationRegister)
	if !IsTopicID(registration.TID) {
		problems = append(problems, "t_id must be a Hedera topic ID")
	}
	nameLength := utf8.RuneCountInString(strings.TrimSpace(registration.Name))
	switch {
	case nameLength == 0:
		problems = append(problems, "name is required")
	case nameLength > maxNameLength:
		problems = append(problems, fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if utf8.RuneCountInString(registration.Description) > maxDescriptionLength {
		problems = append(problems, fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	problems = append(problems, validateTags(registration.Tags)...)
	return newValidationError("invalid hashlinks registration", problems)
}
