package hcs12

import (
	"sort"
	"strings"
)

// HashLinksRegistry is the public directory of published assemblies.
type HashLinksRegistry struct {
	*Registry[HashLinksRegistration]
}

// NewHashLinksRegistry creates a new HashLinksRegistry.
func NewHashLinksRegistry(config RegistryConfig) *HashLinksRegistry {
	return &HashLinksRegistry{
		Registry: newRegistry(RegistryTypeHashlinks, config, registryHooks[HashLinksRegistration]{
			normalize: func(registration HashLinksRegistration) HashLinksRegistration {
				defaultEnvelope(&registration.P, &registration.Op, OperationRegister)
				return registration
			},
		}),
	}
}

// SearchByTags returns entries carrying at least one of tags, compared case-insensitively.
func (r *HashLinksRegistry) SearchByTags(tags []string) []RegistryEntry[HashLinksRegistration] {
	wanted := map[string]bool{}
	for _, tag := range tags {
		if normalized := strings.ToLower(strings.TrimSpace(tag)); normalized != "" {
			wanted[normalized] = true
		}
	}
	return r.filter(func(registration HashLinksRegistration) bool {
		for _, tag := range registration.Tags {
			if wanted[strings.ToLower(strings.TrimSpace(tag))] {
				return true
			}
		}
		return false
	})
}

// SearchByName returns entries whose name contains query, compared case-insensitively.
func (r *HashLinksRegistry) SearchByName(query string) []RegistryEntry[HashLinksRegistration] {
	normalized := strings.ToLower(strings.TrimSpace(query))
	return r.filter(func(registration HashLinksRegistration) bool {
		return strings.Contains(strings.ToLower(registration.Name), normalized)
	})
}

func (r *HashLinksRegistry) GetFeatured() []RegistryEntry[HashLinksRegistration] {
	return r.filter(func(registration HashLinksRegistration) bool {
		return registration.Featured
	})
}

func (r *HashLinksRegistry) GetByCategory(category string) []RegistryEntry[HashLinksRegistration] {
	normalized := strings.TrimSpace(category)
	return r.filter(func(registration HashLinksRegistration) bool {
		return registration.Category == normalized
	})
}

// GetCategories returns the distinct non-empty categories in sorted order.
func (r *HashLinksRegistry) GetCategories() []string {
	seen := map[string]bool{}
	for _, entry := range r.ListEntries() {
		if entry.Data.Category != "" {
			seen[entry.Data.Category] = true
		}
	}
	return sortedKeys(seen)
}

// GetAllTags returns the distinct tags in sorted order.
func (r *HashLinksRegistry) GetAllTags() []string {
	seen := map[string]bool{}
	for _, entry := range r.ListEntries() {
		for _, tag := range entry.Data.Tags {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				seen[trimmed] = true
			}
		}
	}
	return sortedKeys(seen)
}

func (r *HashLinksRegistry) filter(match func(HashLinksRegistration) bool) []RegistryEntry[HashLinksRegistration] {
	matches := make([]RegistryEntry[HashLinksRegistration], 0)
	for _, entry := range r.ListEntries() {
		if match(entry.Data) {
			matches = append(matches, entry)
		}
	}
	return matches
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
