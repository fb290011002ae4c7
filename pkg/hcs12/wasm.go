package hcs12

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Entry points every HashLinks action module exports, either verbatim or as a
// bindgen-style "<class>_<name>" export.
var requiredWasmExports = []string{"INFO", "POST", "GET"}

type WasmFunction struct {
	Name    string   `json:"name"`
	Params  []string `json:"params"`
	Results []string `json:"results"`
}

type WasmImport struct {
	Module  string   `json:"module"`
	Name    string   `json:"name"`
	Params  []string `json:"params"`
	Results []string `json:"results"`
}

// WasmInterface is the static interface of a compiled action module.
type WasmInterface struct {
	Exports []WasmFunction `json:"exports"`
	Imports []WasmImport   `json:"imports"`
	// EntryPoints maps INFO, POST and GET to the export implementing them.
	EntryPoints map[string]string `json:"entry_points"`
}

// MissingEntryPoints returns the required entry points the module does not export.
func (wasmInterface WasmInterface) MissingEntryPoints() []string {
	missing := make([]string, 0)
	for _, entryPoint := range requiredWasmExports {
		if _, ok := wasmInterface.EntryPoints[entryPoint]; !ok {
			missing = append(missing, entryPoint)
		}
	}
	return missing
}

// InspectWasmModule compiles wasmBytes without instantiating it and reports its exports and
// imports. Nothing in the module is executed.
func InspectWasmModule(ctx context.Context, wasmBytes []byte) (WasmInterface, error) {
	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer runtime.Close(ctx)

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return WasmInterface{}, fmt.Errorf("failed to compile wasm module: %w", err)
	}
	defer compiled.Close(ctx)

	wasmInterface := WasmInterface{
		Exports:     make([]WasmFunction, 0),
		Imports:     make([]WasmImport, 0),
		EntryPoints: map[string]string{},
	}

	exported := compiled.ExportedFunctions()
	names := make([]string, 0, len(exported))
	for name := range exported {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		definition := exported[name]
		wasmInterface.Exports = append(wasmInterface.Exports, WasmFunction{
			Name:    name,
			Params:  valueTypeNames(definition.ParamTypes()),
			Results: valueTypeNames(definition.ResultTypes()),
		})
		if entryPoint := matchEntryPoint(name); entryPoint != "" {
			if _, taken := wasmInterface.EntryPoints[entryPoint]; !taken {
				wasmInterface.EntryPoints[entryPoint] = name
			}
		}
	}

	for _, definition := range compiled.ImportedFunctions() {
		moduleName, name, _ := definition.Import()
		wasmInterface.Imports = append(wasmInterface.Imports, WasmImport{
			Module:  moduleName,
			Name:    name,
			Params:  valueTypeNames(definition.ParamTypes()),
			Results: valueTypeNames(definition.ResultTypes()),
		})
	}
	return wasmInterface, nil
}

func matchEntryPoint(exportName string) string {
	lower := strings.ToLower(exportName)
	for _, entryPoint := range requiredWasmExports {
		suffix := strings.ToLower(entryPoint)
		if lower == suffix || strings.HasSuffix(lower, "_"+suffix) {
			return entryPoint
		}
	}
	return ""
}

func valueTypeNames(types []api.ValueType) []string {
	names := make([]string, 0, len(types))
	for _, valueType := range types {
		names = append(names, api.ValueTypeName(valueType))
	}
	return names
}
