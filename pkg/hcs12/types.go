package hcs12

import (
	"github.com/rs/zerolog"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
)

const (
	Protocol                 = "hcs-12"
	RequiredHashLinksVersion = "0.1.0"
)

type RegistryType string

const (
	RegistryTypeAction    RegistryType = "action"
	RegistryTypeBlock     RegistryType = "block"
	RegistryTypeAssembly  RegistryType = "assembly"
	RegistryTypeHashlinks RegistryType = "hashlinks"
)

type AssemblyOperation string

const (
	OperationRegister  AssemblyOperation = "register"
	OperationAddAction AssemblyOperation = "add-action"
	OperationAddBlock  AssemblyOperation = "add-block"
	OperationUpdate    AssemblyOperation = "update"
)

// MessageHeader is the protocol envelope shared by every HCS-12 message.
type MessageHeader struct {
	P  string `json:"p"`
	Op string `json:"op"`
}

type ActionRegistration struct {
	P                  string              `json:"p"`
	Op                 string              `json:"op"`
	TID                string              `json:"t_id"`
	Hash               string              `json:"hash"`
	WasmHash           string              `json:"wasm_hash"`
	JSTID              string              `json:"js_t_id,omitempty"`
	JSHash             string              `json:"js_hash,omitempty"`
	InterfaceVersion   string              `json:"interface_version,omitempty"`
	InfoTID            string              `json:"info_t_id,omitempty"`
	Info               *ModuleInfo         `json:"info,omitempty"`
	SourceVerification *SourceVerification `json:"source_verification,omitempty"`
	ValidationRules    map[string]any      `json:"validation_rules,omitempty"`
	Name               string              `json:"name,omitempty"`
	Version            string              `json:"version,omitempty"`
	Description        string              `json:"description,omitempty"`
	Author             string              `json:"author,omitempty"`
	Tags               []string            `json:"tags,omitempty"`
	Memo               string              `json:"m,omitempty"`
}

// SourceVerification records how an action binary was built so that it can be reproduced.
type SourceVerification struct {
	SourceTID       string           `json:"source_t_id"`
	SourceHash      string           `json:"source_hash"`
	CompilerVersion string           `json:"compiler_version"`
	CargoVersion    string           `json:"cargo_version,omitempty"`
	Target          string           `json:"target"`
	Profile         string           `json:"profile,omitempty"`
	BuildFlags      []string         `json:"build_flags,omitempty"`
	LockfileHash    string           `json:"lockfile_hash,omitempty"`
	SourceStructure *SourceStructure `json:"source_structure,omitempty"`
}

type SourceStructure struct {
	Format string   `json:"format"`
	Files  []string `json:"files"`
}

// ModuleInfo is the metadata an action module reports from its INFO export.
type ModuleInfo struct {
	Name             string             `json:"name"`
	Version          string             `json:"version"`
	HashLinksVersion string             `json:"hashlinks_version"`
	Creator          string             `json:"creator"`
	Purpose          string             `json:"purpose"`
	Actions          []ActionDefinition `json:"actions"`
	Capabilities     []Capability       `json:"capabilities"`
	Plugins          []PluginDefinition `json:"plugins"`
}

type ActionDefinition struct {
	Name                 string                `json:"name"`
	Description          string                `json:"description"`
	Inputs               []ParameterDefinition `json:"inputs"`
	Outputs              []ParameterDefinition `json:"outputs"`
	RequiredCapabilities []Capability          `json:"required_capabilities"`
}

type ParameterDefinition struct {
	Name        string          `json:"name"`
	ParamType   string          `json:"param_type"`
	Description string          `json:"description"`
	Required    bool            `json:"required"`
	Validation  *ValidationRule `json:"validation,omitempty"`
}

type ValidationRule struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

type Capability struct {
	Type  string         `json:"type"`
	Value map[string]any `json:"value,omitempty"`
}

type PluginDefinition struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

type BlockRegistration struct {
	P           string                         `json:"p"`
	Op          string                         `json:"op"`
	Name        string                         `json:"name"`
	Version     string                         `json:"version"`
	Title       string                         `json:"title"`
	Category    string                         `json:"category"`
	Description string                         `json:"description,omitempty"`
	Icon        string                         `json:"icon,omitempty"`
	Keywords    []string                       `json:"keywords,omitempty"`
	Attributes  map[string]AttributeDefinition `json:"attributes,omitempty"`
	Supports    map[string]any                 `json:"supports,omitempty"`
	Parent      []string                       `json:"parent,omitempty"`
	Actions     []string                       `json:"actions,omitempty"`
	Template    string                         `json:"template,omitempty"`
	TID         string                         `json:"t_id,omitempty"`
	Data        map[string]any                 `json:"data,omitempty"`
}

type AttributeDefinition struct {
	Type    string `json:"type"`
	Default any    `json:"default,omitempty"`
	Enum    []any  `json:"enum,omitempty"`
	Source  string `json:"source,omitempty"`
}

// AssemblyRegistration is both the register message of an assembly topic and the
// composition document consumed by the engine, validator and composer.
type AssemblyRegistration struct {
	P            string                    `json:"p"`
	Op           string                    `json:"op"`
	Name         string                    `json:"name"`
	Version      string                    `json:"version"`
	Title        string                    `json:"title,omitempty"`
	Description  string                    `json:"description,omitempty"`
	Author       string                    `json:"author,omitempty"`
	License      string                    `json:"license,omitempty"`
	Tags         []string                  `json:"tags,omitempty"`
	Actions      []AssemblyActionReference `json:"actions,omitempty"`
	Blocks       []AssemblyBlockReference  `json:"blocks,omitempty"`
	Layout       map[string]any            `json:"layout,omitempty"`
	Dependencies []AssemblyDependency      `json:"dependencies,omitempty"`
	TID          string                    `json:"t_id,omitempty"`
}

type AssemblyActionReference struct {
	ID            string         `json:"id"`
	RegistryID    string         `json:"registryId"`
	Version       string         `json:"version,omitempty"`
	DefaultParams map[string]any `json:"defaultParams,omitempty"`
}

type AssemblyBlockReference struct {
	ID         string         `json:"id"`
	RegistryID string         `json:"registryId"`
	Version    string         `json:"version,omitempty"`
	Actions    []string       `json:"actions,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Children   []string       `json:"children,omitempty"`
}

type AssemblyDependency struct {
	Name       string   `json:"name"`
	Version    string   `json:"version,omitempty"`
	RegistryID string   `json:"registryId,omitempty"`
	Type       string   `json:"type,omitempty"`
	Requires   []string `json:"requires,omitempty"`
}

type AssemblyAddAction struct {
	P      string         `json:"p"`
	Op     string         `json:"op"`
	TID    string         `json:"t_id"`
	Alias  string         `json:"alias"`
	Config map[string]any `json:"config,omitempty"`
	Data   string         `json:"data,omitempty"`
}

type AssemblyAddBlock struct {
	P          string            `json:"p"`
	Op         string            `json:"op"`
	BlockID    string            `json:"block_t_id"`
	Actions    map[string]string `json:"actions,omitempty"`
	Attributes map[string]any    `json:"attributes,omitempty"`
	Children   []string          `json:"children,omitempty"`
}

// AssemblyUpdate patches top-level assembly metadata. Nil fields are left untouched.
type AssemblyUpdate struct {
	P           string   `json:"p"`
	Op          string   `json:"op"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Author      *string  `json:"author,omitempty"`
	License     *string  `json:"license,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type AssemblyState struct {
	TopicID     string                `json:"topic_id"`
	Name        string                `json:"name"`
	Version     string                `json:"version"`
	Title       string                `json:"title,omitempty"`
	Description string                `json:"description,omitempty"`
	Author      string                `json:"author,omitempty"`
	License     string                `json:"license,omitempty"`
	Tags        []string              `json:"tags,omitempty"`
	Actions     []AssemblyActionState `json:"actions"`
	Blocks      []AssemblyBlockState  `json:"blocks"`
	Created     string                `json:"created"`
	Updated     string                `json:"updated"`
}

type AssemblyActionState struct {
	TID    string         `json:"t_id"`
	Alias  string         `json:"alias"`
	Config map[string]any `json:"config,omitempty"`
	Data   string         `json:"data,omitempty"`
}

type AssemblyBlockState struct {
	BlockTID   string            `json:"block_t_id"`
	Actions    map[string]string `json:"actions,omitempty"`
	Attributes map[string]any    `json:"attributes,omitempty"`
	Children   []string          `json:"children,omitempty"`
}

type HashLinksRegistration struct {
	P           string   `json:"p"`
	Op          string   `json:"op"`
	TID         string   `json:"t_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
	Featured    bool     `json:"featured,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Author      string   `json:"author,omitempty"`
	Website     string   `json:"website,omitempty"`
}

// RegistryEntry is one materialized registration from an append-only registry topic.
type RegistryEntry[T any] struct {
	ID             string `json:"id"`
	SequenceNumber int64  `json:"sequence_number,omitempty"`
	Timestamp      string `json:"timestamp"`
	Submitter      string `json:"submitter"`
	Data           T      `json:"data"`
}

type ClientConfig struct {
	OperatorAccountID  string
	OperatorPrivateKey string
	Network            string
	MirrorBaseURL      string
	MirrorAPIKey       string
	Logger             *zerolog.Logger
}

type CreateRegistryTopicOptions struct {
	RegistryType        RegistryType
	TTL                 int64
	UseOperatorAsAdmin  bool
	UseOperatorAsSubmit bool
	AdminKey            string
	SubmitKey           string
	MemoOverride        string
	TransactionMemo     string
}

type SubmitMessageResult struct {
	Success        bool   `json:"success"`
	TransactionID  string `json:"transaction_id,omitempty"`
	Error          string `json:"error,omitempty"`
	SequenceNumber int64  `json:"sequence_number,omitempty"`
}

type CreateTopicResult struct {
	Success       bool   `json:"success"`
	TopicID       string `json:"topic_id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

type QueryOptions struct {
	SequenceNumber string
	Limit          int
	Order          string
}

type CreateRegistryTopicTxParams struct {
	RegistryType RegistryType
	TTL          int64
	AdminKey     hedera.Key
	SubmitKey    hedera.Key
	MemoOverride string
}
