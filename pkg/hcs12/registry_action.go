package hcs12

import (
	"context"
	"strings"
)

// ActionRegistry holds versioned WASM action registrations.
type ActionRegistry struct {
	*Registry[ActionRegistration]
}

// NewActionRegistry creates a new ActionRegistry.
func NewActionRegistry(config RegistryConfig) *ActionRegistry {
	return &ActionRegistry{
		Registry: newRegistry(RegistryTypeAction, config, registryHooks[ActionRegistration]{
			normalize: func(registration ActionRegistration) ActionRegistration {
				defaultEnvelope(&registration.P, &registration.Op, OperationRegister)
				return registration
			},
			resolve: resolveActionInfo,
		}),
	}
}

// FindByHash returns the first action whose module info hash or wasm hash equals hash.
func (r *ActionRegistry) FindByHash(hash string) (RegistryEntry[ActionRegistration], bool) {
	normalized := strings.ToLower(strings.TrimSpace(hash))
	for _, entry := range r.ListEntries() {
		if entry.Data.Hash == normalized || entry.Data.WasmHash == normalized {
			return entry, true
		}
	}
	return RegistryEntry[ActionRegistration]{}, false
}

// FindByTopicID returns the first action whose binary is stored at topicID.
func (r *ActionRegistry) FindByTopicID(topicID string) (RegistryEntry[ActionRegistration], bool) {
	normalized := strings.TrimSpace(topicID)
	for _, entry := range r.ListEntries() {
		if entry.Data.TID == normalized {
			return entry, true
		}
	}
	return RegistryEntry[ActionRegistration]{}, false
}

func resolveActionInfo(
	ctx context.Context,
	content ContentRetriever,
	registration ActionRegistration,
) (ActionRegistration, error) {
	if registration.Info != nil || registration.InfoTID == "" {
		return registration, nil
	}
	info, err := fetchModuleInfo(ctx, content, registration.InfoTID)
	if err != nil {
		return registration, err
	}
	registration.Info = &info
	return registration, nil
}
