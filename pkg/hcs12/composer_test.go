package hcs12

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func composerAction(name string, provides ...string) ActionRegistration {
	registration := testActionRegistration(name)
	info := ModuleInfo{Name: name, Version: "1.0.0", HashLinksVersion: RequiredHashLinksVersion}
	for _, action := range provides {
		info.Actions = append(info.Actions, ActionDefinition{Name: action})
	}
	registration.Info = &info
	return registration
}

func composerFixture() (AssemblyRegistration, map[string]ActionRegistration, map[string]BlockRegistration) {
	block := testBlockRegistration("hashlinks/counter", "1.0.0")
	block.Actions = []string{"increment", "decrement"}

	assembly := AssemblyRegistration{
		P:       Protocol,
		Op:      string(OperationRegister),
		Name:    "counter-app",
		Version: "1.0.0",
		Actions: []AssemblyActionReference{{ID: "counter-actions", RegistryID: "0.0.5001"}},
		Blocks:  []AssemblyBlockReference{{ID: "counter", RegistryID: "0.0.6001"}},
	}
	actions := map[string]ActionRegistration{"0.0.5001": composerAction("counter", "increment", "decrement")}
	blocks := map[string]BlockRegistration{"0.0.6001": block}
	return assembly, actions, blocks
}

func TestComposeCleanAssembly(t *testing.T) {
	assembly, actions, blocks := composerFixture()

	composed := NewComposer(ComposerConfig{}).Compose(context.Background(), assembly, actions, blocks, ComposeOptions{})
	assert.True(t, composed.Validated)
	assert.Empty(t, composed.Errors)
	assert.Empty(t, composed.Warnings)
	assert.Equal(t, "counter-app", composed.Name)
	require.Contains(t, composed.Actions, "counter-actions")
	require.NotNil(t, composed.Actions["counter-actions"].ModuleInfo)
	assert.Equal(t, "counter", composed.Actions["counter-actions"].ModuleInfo.Name)
	require.Contains(t, composed.Blocks, "counter")
	assert.Empty(t, composed.Blocks["counter"].Template)
}

func TestComposeReportsMissingReferences(t *testing.T) {
	assembly, actions, blocks := composerFixture()
	assembly.Actions = append(assembly.Actions, AssemblyActionReference{ID: "reset", RegistryID: "0.0.404"})
	assembly.Blocks = append(assembly.Blocks, AssemblyBlockReference{ID: "ghost", RegistryID: "0.0.405"})

	composed := NewComposer(ComposerConfig{}).Compose(context.Background(), assembly, actions, blocks, ComposeOptions{})
	assert.False(t, composed.Validated)
	assert.Contains(t, composed.Errors, "Action not found: 0.0.404 (id: reset)")
	assert.Contains(t, composed.Errors, "Block not found: 0.0.405 (id: ghost)")
	assert.NotContains(t, composed.Actions, "reset")
}

func TestComposeChecksBlockRequirements(t *testing.T) {
	assembly, actions, blocks := composerFixture()
	block := blocks["0.0.6001"]
	block.Actions = append(block.Actions, "reset")
	blocks["0.0.6001"] = block

	composed := NewComposer(ComposerConfig{}).Compose(context.Background(), assembly, actions, blocks, ComposeOptions{})
	assert.False(t, composed.Validated)
	assert.Equal(t, []string{`Block "counter" requires action "reset" which no resolved action provides`}, composed.Errors)
}

func TestComposeWarnsOnModuleMetadata(t *testing.T) {
	assembly, actions, blocks := composerFixture()
	outdated := actions["0.0.5001"]
	outdated.Info.HashLinksVersion = "0.2.0"
	actions["0.0.5001"] = outdated
	actions["0.0.5002"] = testActionRegistration("opaque")
	assembly.Actions = append(assembly.Actions, AssemblyActionReference{ID: "opaque", RegistryID: "0.0.5002"})

	composed := NewComposer(ComposerConfig{}).Compose(context.Background(), assembly, actions, blocks, ComposeOptions{})
	assert.True(t, composed.Validated)
	require.Len(t, composed.Warnings, 2)
	assert.Contains(t, composed.Warnings[0], "Module info unavailable for action opaque")
	assert.Equal(t, `Action counter-actions targets hashlinks version "0.2.0", expected 0.1.0`, composed.Warnings[1])
	assert.Nil(t, composed.Actions["opaque"].ModuleInfo)
}

func TestComposeRequiresExactHashLinksVersion(t *testing.T) {
	cases := []struct {
		declared string
		warns    bool
	}{
		{declared: "0.1.0"},
		{declared: "0.1", warns: true},
		{declared: "v0.1.0", warns: true},
		{declared: "0.1.0-beta", warns: true},
		{declared: "", warns: true},
	}
	for _, tc := range cases {
		t.Run(tc.declared, func(t *testing.T) {
			assembly, actions, blocks := composerFixture()
			action := actions["0.0.5001"]
			action.Info.HashLinksVersion = tc.declared
			actions["0.0.5001"] = action

			composed := NewComposer(ComposerConfig{}).Compose(context.Background(), assembly, actions, blocks, ComposeOptions{})
			want := fmt.Sprintf(`Action counter-actions targets hashlinks version %q, expected 0.1.0`, tc.declared)
			if tc.warns {
				assert.Contains(t, composed.Warnings, want)
			} else {
				assert.NotContains(t, composed.Warnings, want)
			}
		})
	}
}

func TestComposeDependencies(t *testing.T) {
	assembly, actions, blocks := composerFixture()
	assembly.Dependencies = []AssemblyDependency{
		{Name: "counter", RegistryID: "0.0.5001", Type: "action", Requires: []string{"ui"}},
		{Name: "ui", RegistryID: "0.0.6001", Requires: []string{"counter"}},
		{Name: "analytics", RegistryID: "0.0.9999", Type: "block"},
	}

	composed := NewComposer(ComposerConfig{}).Compose(context.Background(), assembly, actions, blocks, ComposeOptions{})
	require.Len(t, composed.Dependencies, 3)
	assert.True(t, composed.Dependencies[0].Resolved)
	assert.True(t, composed.Dependencies[1].Resolved)
	assert.False(t, composed.Dependencies[2].Resolved)
	assert.Contains(t, composed.Warnings, "Dependency analytics is not resolved")
	assert.Contains(t, composed.Errors, "Circular dependency detected: ui -> counter")
	assert.False(t, composed.Validated)
}

func TestComposeEmptyAssembly(t *testing.T) {
	composed := NewComposer(ComposerConfig{}).Compose(context.Background(), AssemblyRegistration{}, nil, nil, ComposeOptions{})
	assert.False(t, composed.Validated)
	assert.ElementsMatch(t, []string{"Assembly name is required", "Assembly version is required"}, composed.Errors)
	assert.ElementsMatch(t, []string{"Assembly has no actions", "Assembly has no blocks"}, composed.Warnings)
}

func TestComposeLoadsWasmInterfaces(t *testing.T) {
	assembly, actions, blocks := composerFixture()
	wasmBytes := wasmModuleExporting("INFO", "POST", "GET")
	action := actions["0.0.5001"]
	action.WasmHash = HashBytes(wasmBytes)
	actions["0.0.5001"] = action

	composer := NewComposer(ComposerConfig{
		Modules: WasmModuleProvider{Content: staticContent{"0.0.5001": wasmBytes}},
	})
	composed := composer.Compose(context.Background(), assembly, actions, blocks, ComposeOptions{LoadWasm: true})
	require.True(t, composed.Validated, composed.Errors)
	loaded := composed.Actions["counter-actions"].Interface
	require.NotNil(t, loaded)
	assert.Equal(t, "POST", loaded.EntryPoints["POST"])
}

func TestComposeLoadWasmFailures(t *testing.T) {
	assembly, actions, blocks := composerFixture()

	mismatched := NewComposer(ComposerConfig{
		Modules: WasmModuleProvider{Content: staticContent{"0.0.5001": wasmModuleExporting("INFO", "POST", "GET")}},
	}).Compose(context.Background(), assembly, actions, blocks, ComposeOptions{LoadWasm: true})
	assert.False(t, mismatched.Validated)
	require.Len(t, mismatched.Errors, 1)
	assert.Contains(t, mismatched.Errors[0], "wasm hash mismatch")

	partial := wasmModuleExporting("INFO")
	action := actions["0.0.5001"]
	action.WasmHash = HashBytes(partial)
	actions["0.0.5001"] = action
	incomplete := NewComposer(ComposerConfig{
		Modules: WasmModuleProvider{Content: staticContent{"0.0.5001": partial}},
	}).Compose(context.Background(), assembly, actions, blocks, ComposeOptions{LoadWasm: true})
	require.Len(t, incomplete.Errors, 1)
	assert.Contains(t, incomplete.Errors[0], "missing entry points: POST, GET")
}

func TestComposeStaticInterface(t *testing.T) {
	assembly, actions, blocks := composerFixture()
	composed := NewComposer(ComposerConfig{}).Compose(context.Background(), assembly, actions, blocks, ComposeOptions{LoadWasm: true})
	require.True(t, composed.Validated)
	assert.Empty(t, composed.Actions["counter-actions"].Interface.MissingEntryPoints())
}

func TestComposeResolvesTemplates(t *testing.T) {
	assembly, actions, blocks := composerFixture()
	stored := blocks["0.0.6001"]
	stored.Template = ""
	stored.TID = "0.0.7001"
	blocks["0.0.6001"] = stored

	inline := NewComposer(ComposerConfig{}).Compose(context.Background(), assembly, actions, blocks, ComposeOptions{ResolveTemplates: true})
	assert.True(t, inline.Validated)
	require.Len(t, inline.Warnings, 1)
	assert.Contains(t, inline.Warnings[0], "Failed to resolve template for block counter")

	fromContent := NewComposer(ComposerConfig{
		Templates: ContentTemplateProvider{Content: staticContent{"0.0.7001": []byte(`{"template":"<button>+</button>"}`)}},
	}).Compose(context.Background(), assembly, actions, blocks, ComposeOptions{ResolveTemplates: true})
	assert.Empty(t, fromContent.Warnings)
	assert.Equal(t, "<button>+</button>", fromContent.Blocks["counter"].Template)

	raw := NewComposer(ComposerConfig{
		Templates: ContentTemplateProvider{Content: staticContent{"0.0.7001": []byte("<p>raw</p>")}},
	}).Compose(context.Background(), assembly, actions, blocks, ComposeOptions{ResolveTemplates: true})
	assert.Equal(t, "<p>raw</p>", raw.Blocks["counter"].Template)
}
