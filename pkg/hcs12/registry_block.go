package hcs12

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// BlockRegistry holds versioned UI block registrations.
type BlockRegistry struct {
	*Registry[BlockRegistration]
}

// NewBlockRegistry creates a new BlockRegistry.
func NewBlockRegistry(config RegistryConfig) *BlockRegistry {
	return &BlockRegistry{
		Registry: newRegistry(RegistryTypeBlock, config, registryHooks[BlockRegistration]{
			normalize: func(registration BlockRegistration) BlockRegistration {
				defaultEnvelope(&registration.P, &registration.Op, OperationRegister)
				return registration
			},
			resolve: resolveStoredBlock,
		}),
	}
}

// FindByName returns every registered version of the named block in log order.
func (r *BlockRegistry) FindByName(name string) []RegistryEntry[BlockRegistration] {
	normalized := strings.TrimSpace(name)
	matches := make([]RegistryEntry[BlockRegistration], 0)
	for _, entry := range r.ListEntries() {
		if entry.Data.Name == normalized {
			matches = append(matches, entry)
		}
	}
	return matches
}

// GetLatestVersion returns the highest semantic version registered for the named block.
func (r *BlockRegistry) GetLatestVersion(name string) (RegistryEntry[BlockRegistration], bool) {
	var (
		latest        RegistryEntry[BlockRegistration]
		latestVersion *semver.Version
	)
	for _, entry := range r.FindByName(name) {
		version, err := semver.NewVersion(entry.Data.Version)
		if err != nil {
			continue
		}
		if latestVersion == nil || !version.LessThan(latestVersion) {
			latest = entry
			latestVersion = version
		}
	}
	return latest, latestVersion != nil
}

// FindVersion returns the entry for the named block matching a version constraint such as "^1.2".
func (r *BlockRegistry) FindVersion(name string, constraint string) (RegistryEntry[BlockRegistration], error) {
	parsed, err := semver.NewConstraint(constraint)
	if err != nil {
		return RegistryEntry[BlockRegistration]{}, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	var (
		best        RegistryEntry[BlockRegistration]
		bestVersion *semver.Version
	)
	for _, entry := range r.FindByName(name) {
		version, err := semver.NewVersion(entry.Data.Version)
		if err != nil || !parsed.Check(version) {
			continue
		}
		if bestVersion == nil || version.GreaterThan(bestVersion) {
			best = entry
			bestVersion = version
		}
	}
	if bestVersion == nil {
		return best, fmt.Errorf("no version of block %s satisfies %s", name, constraint)
	}
	return best, nil
}

func resolveStoredBlock(
	ctx context.Context,
	content ContentRetriever,
	registration BlockRegistration,
) (BlockRegistration, error) {
	if registration.TID == "" || registration.Template != "" || registration.Data != nil {
		return registration, nil
	}
	stored, err := content.RetrieveContent(ctx, registration.TID)
	if err != nil {
		return registration, fmt.Errorf("failed to retrieve block %s: %w", registration.TID, err)
	}
	trimmed := bytes.TrimSpace(stored)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		merged, err := mergeStoredDocument(registration, trimmed)
		if err != nil {
			return registration, fmt.Errorf("failed to decode stored block %s: %w", registration.TID, err)
		}
		return merged, nil
	}
	registration.Template = string(stored)
	return registration, nil
}
