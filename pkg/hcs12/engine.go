package hcs12

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const defaultResolveConcurrency = 8

var parameterBindingPattern = regexp.MustCompile(`^\{\{\s*([A-Za-z0-9_-]+)\.([A-Za-z0-9_]+)\s*\}\}$`)

type EngineConfig struct {
	Assemblies EntryLookup[AssemblyRegistration]
	Actions    EntryLookup[ActionRegistration]
	Blocks     EntryLookup[BlockRegistration]
	// Content dereferences assemblies stored out-of-band. Optional.
	Content ContentRetriever
	Logger  *zerolog.Logger
	// StrictParameterBindings enables the advisory block-to-action parameter binding check.
	StrictParameterBindings bool
	MaxConcurrency          int
}

// Assembly is an assembly definition with its action and block references resolved.
type Assembly struct {
	ID         string               `json:"id"`
	Definition AssemblyRegistration `json:"definition"`
	Actions    []ResolvedAction     `json:"actions"`
	Blocks     []ResolvedBlock      `json:"blocks"`
}

// ResolvedAction carries either the resolved registration or the reason it could not be resolved.
type ResolvedAction struct {
	Reference  AssemblyActionReference `json:"reference"`
	Definition *ActionRegistration     `json:"definition"`
	Error      string                  `json:"error,omitempty"`
}

type ResolvedBlock struct {
	Reference  AssemblyBlockReference `json:"reference"`
	Definition *BlockRegistration     `json:"definition"`
	Error      string                 `json:"error,omitempty"`
}

type CompositionValidation struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// AssemblyEngine loads assemblies from the assembly registry, resolves their references
// against the action and block registries and caches the result per assembly ID.
type AssemblyEngine struct {
	assemblies  EntryLookup[AssemblyRegistration]
	actions     EntryLookup[ActionRegistration]
	blocks      EntryLookup[BlockRegistration]
	content     ContentRetriever
	logger      zerolog.Logger
	strict      bool
	concurrency int

	loads singleflight.Group
	mutex sync.RWMutex
	cache map[string]*Assembly
}

// NewAssemblyEngine creates a new AssemblyEngine.
func NewAssemblyEngine(config EngineConfig) (*AssemblyEngine, error) {
	if config.Assemblies == nil {
		return nil, fmt.Errorf("assembly lookup is required")
	}
	if config.Actions == nil {
		return nil, fmt.Errorf("action lookup is required")
	}
	if config.Blocks == nil {
		return nil, fmt.Errorf("block lookup is required")
	}
	concurrency := config.MaxConcurrency
	if concurrency <= 0 {
		concurrency = defaultResolveConcurrency
	}
	return &AssemblyEngine{
		assemblies:  config.Assemblies,
		actions:     config.Actions,
		blocks:      config.Blocks,
		content:     config.Content,
		logger:      resolveLogger(config.Logger).With().Str("component", "hcs12.engine").Logger(),
		strict:      config.StrictParameterBindings,
		concurrency: concurrency,
		cache:       map[string]*Assembly{},
	}, nil
}

// LoadAssembly returns the resolved assembly registered under id. Cached assemblies are
// returned without touching the registries; concurrent loads of the same id share one fetch.
func (e *AssemblyEngine) LoadAssembly(ctx context.Context, id string) (*Assembly, error) {
	normalized := strings.TrimSpace(id)

	e.mutex.RLock()
	cached, exists := e.cache[normalized]
	e.mutex.RUnlock()
	if exists {
		e.logger.Debug().Str("assembly_id", normalized).Msg("assembly cache hit")
		return cached, nil
	}

	result, err, _ := e.loads.Do(normalized, func() (any, error) {
		e.mutex.RLock()
		cached, exists := e.cache[normalized]
		e.mutex.RUnlock()
		if exists {
			return cached, nil
		}

		e.logger.Debug().Str("assembly_id", normalized).Msg("assembly cache miss")
		definition, err := e.fetchDefinition(ctx, normalized)
		if err != nil {
			return nil, err
		}
		assembly := e.ResolveReferences(ctx, definition)
		// A cancelled load leaves per-reference errors that say nothing about the registries.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		assembly.ID = normalized

		e.mutex.Lock()
		e.cache[normalized] = assembly
		e.mutex.Unlock()
		return assembly, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Assembly), nil
}

func (e *AssemblyEngine) fetchDefinition(ctx context.Context, id string) (AssemblyRegistration, error) {
	entry, exists := e.assemblies.GetEntry(id)
	if !exists {
		return AssemblyRegistration{}, fmt.Errorf("%w: %s", ErrAssemblyNotFound, id)
	}
	definition := entry.Data
	if definition.P != Protocol || definition.Op != string(OperationRegister) || strings.TrimSpace(definition.Name) == "" {
		return AssemblyRegistration{}, fmt.Errorf("%w: %s", ErrInvalidAssemblyFormat, id)
	}
	if definition.TID == "" {
		return definition, nil
	}
	if e.content == nil {
		e.logger.Warn().Str("assembly_id", id).Str("t_id", definition.TID).Msg("no content retriever, using inline assembly message")
		return definition, nil
	}

	stored, err := e.content.RetrieveContent(ctx, definition.TID)
	if err != nil {
		return AssemblyRegistration{}, fmt.Errorf("%w: %s: %v", ErrAssemblyNotFound, id, err)
	}
	merged, err := mergeStoredDocument(definition, bytes.TrimSpace(stored))
	if err != nil {
		return AssemblyRegistration{}, fmt.Errorf("%w: %s: %v", ErrAssemblyParse, id, err)
	}
	return merged, nil
}

// ResolveReferences looks up every action and block reference of definition. Lookup failures
// are recorded per reference. The engine cache is not consulted or populated.
func (e *AssemblyEngine) ResolveReferences(ctx context.Context, definition AssemblyRegistration) *Assembly {
	assembly := &Assembly{
		ID:         definition.Name,
		Definition: definition,
		Actions:    make([]ResolvedAction, len(definition.Actions)),
		Blocks:     make([]ResolvedBlock, len(definition.Blocks)),
	}

	var group errgroup.Group
	group.SetLimit(e.concurrency)
	for index, reference := range definition.Actions {
		index, reference := index, reference
		group.Go(func() error {
			assembly.Actions[index] = e.resolveAction(ctx, reference)
			return nil
		})
	}
	for index, reference := range definition.Blocks {
		index, reference := index, reference
		group.Go(func() error {
			assembly.Blocks[index] = e.resolveBlock(ctx, reference)
			return nil
		})
	}
	_ = group.Wait()
	return assembly
}

func (e *AssemblyEngine) resolveAction(ctx context.Context, reference AssemblyActionReference) ResolvedAction {
	resolved := ResolvedAction{Reference: reference}
	if err := ctx.Err(); err != nil {
		resolved.Error = err.Error()
		return resolved
	}
	entry, exists := e.actions.GetEntry(reference.RegistryID)
	if !exists {
		resolved.Error = fmt.Sprintf("Action not found: %s", reference.RegistryID)
		return resolved
	}
	if err := checkPinnedVersion(reference.Version, entry.Data.Version); err != nil {
		resolved.Error = fmt.Sprintf("Action %s: %v", reference.RegistryID, err)
		return resolved
	}
	definition := entry.Data
	resolved.Definition = &definition
	return resolved
}

func (e *AssemblyEngine) resolveBlock(ctx context.Context, reference AssemblyBlockReference) ResolvedBlock {
	resolved := ResolvedBlock{Reference: reference}
	if err := ctx.Err(); err != nil {
		resolved.Error = err.Error()
		return resolved
	}
	entry, exists := e.blocks.GetEntry(reference.RegistryID)
	if !exists {
		resolved.Error = fmt.Sprintf("Block not found: %s", reference.RegistryID)
		return resolved
	}
	if err := checkPinnedVersion(reference.Version, entry.Data.Version); err != nil {
		resolved.Error = fmt.Sprintf("Block %s: %v", reference.RegistryID, err)
		return resolved
	}
	definition := entry.Data
	resolved.Definition = &definition
	return resolved
}

// checkPinnedVersion enforces an optional version pin, which may be an exact version or a
// constraint such as "^1.2". Registrations without a version satisfy any pin.
func checkPinnedVersion(pinned string, actual string) error {
	pinned = strings.TrimSpace(pinned)
	if pinned == "" || strings.TrimSpace(actual) == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(pinned)
	if err != nil {
		return fmt.Errorf("invalid version pin %q", pinned)
	}
	version, err := semver.NewVersion(actual)
	if err != nil {
		return fmt.Errorf("registered version %q is not a semantic version", actual)
	}
	if !constraint.Check(version) {
		return fmt.Errorf("version %s does not satisfy %s", actual, pinned)
	}
	return nil
}

// ValidateComposition checks the internal consistency of a resolved assembly.
func (e *AssemblyEngine) ValidateComposition(assembly *Assembly) CompositionValidation {
	validation := CompositionValidation{Errors: []string{}, Warnings: []string{}}
	if assembly == nil {
		validation.Errors = append(validation.Errors, "Assembly is required")
		return validation
	}
	definition := assembly.Definition

	if strings.TrimSpace(definition.Name) == "" {
		validation.Errors = append(validation.Errors, "Assembly name is required")
	}
	if strings.TrimSpace(definition.Version) == "" {
		validation.Errors = append(validation.Errors, "Assembly version is required")
	}

	actionIDs := map[string]bool{}
	for _, reference := range definition.Actions {
		actionIDs[reference.ID] = true
	}
	for _, block := range definition.Blocks {
		for _, actionID := range block.Actions {
			if !actionIDs[actionID] {
				validation.Errors = append(validation.Errors, fmt.Sprintf("Block %q references missing action %q", block.ID, actionID))
			}
		}
	}

	cycleErrors, cycleWarnings := e.checkSubAssemblyCycles(assembly)
	validation.Errors = append(validation.Errors, cycleErrors...)
	validation.Warnings = append(validation.Warnings, cycleWarnings...)

	if e.strict {
		validation.Warnings = append(validation.Warnings, checkParameterBindings(assembly)...)
	}

	validation.IsValid = len(validation.Errors) == 0
	return validation
}

// checkSubAssemblyCycles walks assembly-typed dependencies depth first and reports every
// back edge, including an assembly depending on itself.
func (e *AssemblyEngine) checkSubAssemblyCycles(assembly *Assembly) ([]string, []string) {
	errs := make([]string, 0)
	warnings := make([]string, 0)
	visiting := map[string]bool{}
	visited := map[string]bool{}
	missing := map[string]bool{}

	var visit func(id string, dependencies []AssemblyDependency)
	visit = func(id string, dependencies []AssemblyDependency) {
		visiting[id] = true
		for _, dependency := range dependencies {
			if dependency.Type != string(RegistryTypeAssembly) || dependency.RegistryID == "" {
				continue
			}
			next := dependency.RegistryID
			if visiting[next] {
				errs = append(errs, fmt.Sprintf("Circular dependency detected: %s -> %s", id, next))
				continue
			}
			if visited[next] {
				continue
			}
			entry, exists := e.assemblies.GetEntry(next)
			if !exists {
				if !missing[next] {
					missing[next] = true
					warnings = append(warnings, fmt.Sprintf("Sub-assembly not found: %s", next))
				}
				continue
			}
			visit(next, entry.Data.Dependencies)
		}
		visiting[id] = false
		visited[id] = true
	}

	visit(assembly.ID, assembly.Definition.Dependencies)
	return errs, warnings
}

// checkParameterBindings compares "{{action.param}}" block attribute bindings and action
// default parameters against the input parameters the resolved modules declare.
func checkParameterBindings(assembly *Assembly) []string {
	warnings := make([]string, 0)
	inputs := map[string]map[string]bool{}
	for _, resolved := range assembly.Actions {
		if resolved.Definition == nil || resolved.Definition.Info == nil {
			continue
		}
		names := map[string]bool{}
		for _, action := range resolved.Definition.Info.Actions {
			for _, input := range action.Inputs {
				names[input.Name] = true
			}
		}
		inputs[resolved.Reference.ID] = names
	}

	for _, resolved := range assembly.Actions {
		names, known := inputs[resolved.Reference.ID]
		if !known {
			continue
		}
		for _, parameter := range sortedMapKeys(resolved.Reference.DefaultParams) {
			if !names[parameter] {
				warnings = append(warnings, fmt.Sprintf("Action %q default parameter %q is not a declared input", resolved.Reference.ID, parameter))
			}
		}
	}

	for _, block := range assembly.Definition.Blocks {
		for _, attribute := range sortedMapKeys(block.Attributes) {
			binding, ok := block.Attributes[attribute].(string)
			if !ok {
				continue
			}
			matches := parameterBindingPattern.FindStringSubmatch(binding)
			if len(matches) != 3 {
				continue
			}
			names, known := inputs[matches[1]]
			if !known {
				continue
			}
			if !names[matches[2]] {
				warnings = append(warnings, fmt.Sprintf("Block %q binds %q to unknown parameter %q of action %q", block.ID, attribute, matches[2], matches[1]))
			}
		}
	}
	return warnings
}

// ClearCache drops every cached assembly.
func (e *AssemblyEngine) ClearCache() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.cache = map[string]*Assembly{}
}

func (e *AssemblyEngine) CacheSize() int {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return len(e.cache)
}

func sortedMapKeys(values map[string]any) []string {
	set := make(map[string]bool, len(values))
	for key := range values {
		set[key] = true
	}
	return sortedKeys(set)
}
