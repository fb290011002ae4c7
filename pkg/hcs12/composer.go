package hcs12

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
)

// ModuleProvider supplies module metadata and the executable interface of an action.
type ModuleProvider interface {
	ModuleInfo(ctx context.Context, registration ActionRegistration) (ModuleInfo, error)
	Interface(ctx context.Context, registration ActionRegistration) (WasmInterface, error)
}

// TemplateProvider supplies the rendered template of a block.
type TemplateProvider interface {
	Template(ctx context.Context, registration BlockRegistration) (string, error)
}

// StaticModuleProvider answers from what the registration itself declares. It never fetches
// or compiles the binary; Interface reports the standard entry points as declared.
type StaticModuleProvider struct{}

func (StaticModuleProvider) ModuleInfo(_ context.Context, registration ActionRegistration) (ModuleInfo, error) {
	if registration.Info == nil {
		return ModuleInfo{}, fmt.Errorf("action %s does not declare inline module info", registration.TID)
	}
	return *registration.Info, nil
}

func (StaticModuleProvider) Interface(_ context.Context, registration ActionRegistration) (WasmInterface, error) {
	declared := WasmInterface{
		Exports:     make([]WasmFunction, 0, len(requiredWasmExports)),
		Imports:     []WasmImport{},
		EntryPoints: map[string]string{},
	}
	for _, entryPoint := range requiredWasmExports {
		declared.Exports = append(declared.Exports, WasmFunction{Name: entryPoint, Params: []string{}, Results: []string{}})
		declared.EntryPoints[entryPoint] = entryPoint
	}
	return declared, nil
}

// WasmModuleProvider fetches action artifacts from content storage, verifies them against the
// registration digests and inspects the compiled binary.
type WasmModuleProvider struct {
	Content ContentRetriever
}

func (p WasmModuleProvider) ModuleInfo(ctx context.Context, registration ActionRegistration) (ModuleInfo, error) {
	if registration.Info != nil {
		return *registration.Info, nil
	}
	if registration.InfoTID == "" {
		return ModuleInfo{}, fmt.Errorf("action %s has neither info nor info_t_id", registration.TID)
	}
	if p.Content == nil {
		return ModuleInfo{}, fmt.Errorf("no content retriever configured")
	}
	return fetchModuleInfo(ctx, p.Content, registration.InfoTID)
}

func (p WasmModuleProvider) Interface(ctx context.Context, registration ActionRegistration) (WasmInterface, error) {
	if p.Content == nil {
		return WasmInterface{}, fmt.Errorf("no content retriever configured")
	}
	wasmBytes, err := p.Content.RetrieveContent(ctx, registration.TID)
	if err != nil {
		return WasmInterface{}, fmt.Errorf("failed to retrieve wasm %s: %w", registration.TID, err)
	}
	if digest := HashBytes(wasmBytes); digest != registration.WasmHash {
		return WasmInterface{}, fmt.Errorf("wasm hash mismatch: expected %s, got %s", registration.WasmHash, digest)
	}
	wasmInterface, err := InspectWasmModule(ctx, wasmBytes)
	if err != nil {
		return WasmInterface{}, err
	}
	if missing := wasmInterface.MissingEntryPoints(); len(missing) > 0 {
		return wasmInterface, fmt.Errorf("wasm module is missing entry points: %s", strings.Join(missing, ", "))
	}
	return wasmInterface, nil
}

// InlineTemplateProvider returns the template carried inline in the block registration.
type InlineTemplateProvider struct{}

func (InlineTemplateProvider) Template(_ context.Context, registration BlockRegistration) (string, error) {
	if registration.Template == "" {
		return "", fmt.Errorf("block %s has no inline template", registration.Name)
	}
	return registration.Template, nil
}

// ContentTemplateProvider falls back to the block's stored content when no inline template
// is present.
type ContentTemplateProvider struct {
	Content ContentRetriever
}

func (p ContentTemplateProvider) Template(ctx context.Context, registration BlockRegistration) (string, error) {
	if registration.Template != "" {
		return registration.Template, nil
	}
	if registration.TID == "" {
		return "", fmt.Errorf("block %s has no template and no t_id", registration.Name)
	}
	if p.Content == nil {
		return "", fmt.Errorf("no content retriever configured")
	}
	stored, err := p.Content.RetrieveContent(ctx, registration.TID)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve block template %s: %w", registration.TID, err)
	}
	trimmed := bytes.TrimSpace(stored)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		merged, err := mergeStoredDocument(registration, trimmed)
		if err != nil {
			return "", fmt.Errorf("failed to decode stored block %s: %w", registration.TID, err)
		}
		if merged.Template == "" {
			return "", fmt.Errorf("stored block %s has no template", registration.TID)
		}
		return merged.Template, nil
	}
	return string(stored), nil
}

type ComposerConfig struct {
	Modules   ModuleProvider
	Templates TemplateProvider
	Logger    *zerolog.Logger
}

type ComposeOptions struct {
	LoadWasm         bool
	ResolveTemplates bool
}

type ComposedAction struct {
	Reference    AssemblyActionReference `json:"reference"`
	Registration ActionRegistration      `json:"registration"`
	ModuleInfo   *ModuleInfo             `json:"module_info,omitempty"`
	Interface    *WasmInterface          `json:"interface,omitempty"`
}

type ComposedBlock struct {
	Reference    AssemblyBlockReference `json:"reference"`
	Registration BlockRegistration      `json:"registration"`
	Template     string                 `json:"template,omitempty"`
}

type ComposedDependency struct {
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
	Resolved bool   `json:"resolved"`
}

// ComposedAssembly is derived fresh on every Compose call and is never persisted.
type ComposedAssembly struct {
	Name         string                    `json:"name"`
	Version      string                    `json:"version"`
	Actions      map[string]ComposedAction `json:"actions"`
	Blocks       map[string]ComposedBlock  `json:"blocks"`
	Dependencies []ComposedDependency      `json:"dependencies"`
	Validated    bool                      `json:"validated"`
	Errors       []string                  `json:"errors"`
	Warnings     []string                  `json:"warnings"`
}

// Composer turns an assembly definition plus fetched registrations into a ComposedAssembly.
type Composer struct {
	modules   ModuleProvider
	templates TemplateProvider
	logger    zerolog.Logger
}

// NewComposer creates a new Composer. Without providers it composes from declared data only.
func NewComposer(config ComposerConfig) *Composer {
	modules := config.Modules
	if modules == nil {
		modules = StaticModuleProvider{}
	}
	templates := config.Templates
	if templates == nil {
		templates = InlineTemplateProvider{}
	}
	return &Composer{
		modules:   modules,
		templates: templates,
		logger:    resolveLogger(config.Logger).With().Str("component", "hcs12.composer").Logger(),
	}
}

// Compose resolves the assembly's references against actions and blocks, both keyed by
// registry ID, and checks the result. It always returns a result; Validated is true only
// when no error was recorded.
func (c *Composer) Compose(
	ctx context.Context,
	assembly AssemblyRegistration,
	actions map[string]ActionRegistration,
	blocks map[string]BlockRegistration,
	options ComposeOptions,
) ComposedAssembly {
	composed := ComposedAssembly{
		Name:         assembly.Name,
		Version:      assembly.Version,
		Actions:      map[string]ComposedAction{},
		Blocks:       map[string]ComposedBlock{},
		Dependencies: []ComposedDependency{},
		Errors:       []string{},
		Warnings:     []string{},
	}

	c.composeActions(ctx, &composed, assembly.Actions, actions)
	c.composeBlocks(&composed, assembly.Blocks, blocks)
	checkBlockRequirements(&composed, assembly.Blocks)
	composeDependencies(&composed, assembly.Dependencies, actions, blocks)
	checkHashLinksVersions(&composed, assembly.Actions)

	if strings.TrimSpace(assembly.Name) == "" {
		composed.Errors = append(composed.Errors, "Assembly name is required")
	}
	if strings.TrimSpace(assembly.Version) == "" {
		composed.Errors = append(composed.Errors, "Assembly version is required")
	}
	if len(assembly.Actions) == 0 {
		composed.Warnings = append(composed.Warnings, "Assembly has no actions")
	}
	if len(assembly.Blocks) == 0 {
		composed.Warnings = append(composed.Warnings, "Assembly has no blocks")
	}

	if options.LoadWasm {
		c.loadInterfaces(ctx, &composed, assembly.Actions)
	}
	if options.ResolveTemplates {
		c.resolveTemplates(ctx, &composed, assembly.Blocks)
	}

	composed.Validated = len(composed.Errors) == 0
	c.logger.Debug().
		Str("assembly", assembly.Name).
		Bool("validated", composed.Validated).
		Int("errors", len(composed.Errors)).
		Int("warnings", len(composed.Warnings)).
		Msg("composed assembly")
	return composed
}

func (c *Composer) composeActions(
	ctx context.Context,
	composed *ComposedAssembly,
	references []AssemblyActionReference,
	actions map[string]ActionRegistration,
) {
	for _, reference := range references {
		registration, exists := actions[reference.RegistryID]
		if !exists {
			composed.Errors = append(composed.Errors, fmt.Sprintf("Action not found: %s (id: %s)", reference.RegistryID, reference.ID))
			continue
		}
		action := ComposedAction{Reference: reference, Registration: registration}
		info, err := c.modules.ModuleInfo(ctx, registration)
		if err != nil {
			composed.Warnings = append(composed.Warnings, fmt.Sprintf("Module info unavailable for action %s: %v", reference.ID, err))
		} else {
			action.ModuleInfo = &info
		}
		composed.Actions[reference.ID] = action
	}
}

func (c *Composer) composeBlocks(
	composed *ComposedAssembly,
	references []AssemblyBlockReference,
	blocks map[string]BlockRegistration,
) {
	for _, reference := range references {
		registration, exists := blocks[reference.RegistryID]
		if !exists {
			composed.Errors = append(composed.Errors, fmt.Sprintf("Block not found: %s (id: %s)", reference.RegistryID, reference.ID))
			continue
		}
		composed.Blocks[reference.ID] = ComposedBlock{Reference: reference, Registration: registration}
	}
}

// checkBlockRequirements confirms that every action name a block declares is provided by at
// least one resolved action module.
func checkBlockRequirements(composed *ComposedAssembly, references []AssemblyBlockReference) {
	provided := map[string]bool{}
	for _, action := range composed.Actions {
		if action.ModuleInfo == nil {
			continue
		}
		for _, definition := range action.ModuleInfo.Actions {
			provided[definition.Name] = true
		}
	}
	for _, reference := range references {
		block, exists := composed.Blocks[reference.ID]
		if !exists {
			continue
		}
		for _, required := range block.Registration.Actions {
			if !provided[required] {
				composed.Errors = append(composed.Errors, fmt.Sprintf("Block %q requires action %q which no resolved action provides", reference.ID, required))
			}
		}
	}
}

func composeDependencies(
	composed *ComposedAssembly,
	dependencies []AssemblyDependency,
	actions map[string]ActionRegistration,
	blocks map[string]BlockRegistration,
) {
	for _, dependency := range dependencies {
		resolved := false
		switch dependency.Type {
		case string(RegistryTypeAction):
			_, resolved = actions[dependency.RegistryID]
		case string(RegistryTypeBlock):
			_, resolved = blocks[dependency.RegistryID]
		case "":
			_, inActions := actions[dependency.RegistryID]
			_, inBlocks := blocks[dependency.RegistryID]
			resolved = inActions || inBlocks
		}
		if !resolved {
			composed.Warnings = append(composed.Warnings, fmt.Sprintf("Dependency %s is not resolved", dependency.Name))
		}
		composed.Dependencies = append(composed.Dependencies, ComposedDependency{
			Name:     dependency.Name,
			Version:  dependency.Version,
			Resolved: resolved,
		})
	}
	composed.Errors = append(composed.Errors, findDependencyCycles(dependencies)...)
}

// findDependencyCycles reports each back edge of the name -> requires graph.
func findDependencyCycles(dependencies []AssemblyDependency) []string {
	graph := map[string][]string{}
	for _, dependency := range dependencies {
		graph[dependency.Name] = append(graph[dependency.Name], dependency.Requires...)
	}

	cycles := make([]string, 0)
	visiting := map[string]bool{}
	visited := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		visiting[name] = true
		for _, next := range graph[name] {
			if visiting[next] {
				cycles = append(cycles, fmt.Sprintf("Circular dependency detected: %s -> %s", name, next))
				continue
			}
			if !visited[next] {
				visit(next)
			}
		}
		visiting[name] = false
		visited[name] = true
	}
	for _, dependency := range dependencies {
		if !visited[dependency.Name] {
			visit(dependency.Name)
		}
	}
	return cycles
}

func checkHashLinksVersions(composed *ComposedAssembly, references []AssemblyActionReference) {
	required := semver.MustParse(RequiredHashLinksVersion)
	// Shorthands such as 0.1 or v0.1.0 are not the declared version.
	for _, reference := range references {
		action, exists := composed.Actions[reference.ID]
		if !exists || action.ModuleInfo == nil {
			continue
		}
		declared := action.ModuleInfo.HashLinksVersion
		version, err := semver.StrictNewVersion(declared)
		if err != nil || !version.Equal(required) {
			composed.Warnings = append(composed.Warnings, fmt.Sprintf(
				"Action %s targets hashlinks version %q, expected %s",
				reference.ID,
				declared,
				RequiredHashLinksVersion,
			))
		}
	}
}

func (c *Composer) loadInterfaces(ctx context.Context, composed *ComposedAssembly, references []AssemblyActionReference) {
	for _, reference := range references {
		action, exists := composed.Actions[reference.ID]
		if !exists {
			continue
		}
		wasmInterface, err := c.modules.Interface(ctx, action.Registration)
		if err != nil {
			composed.Errors = append(composed.Errors, fmt.Sprintf("Failed to load WASM for action %s: %v", reference.ID, err))
			continue
		}
		action.Interface = &wasmInterface
		composed.Actions[reference.ID] = action
	}
}

func (c *Composer) resolveTemplates(ctx context.Context, composed *ComposedAssembly, references []AssemblyBlockReference) {
	for _, reference := range references {
		block, exists := composed.Blocks[reference.ID]
		if !exists {
			continue
		}
		template, err := c.templates.Template(ctx, block.Registration)
		if err != nil {
			composed.Warnings = append(composed.Warnings, fmt.Sprintf("Failed to resolve template for block %s: %v", reference.ID, err))
			continue
		}
		block.Template = template
		composed.Blocks[reference.ID] = block
	}
}
