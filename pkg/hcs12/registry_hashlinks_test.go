package hcs12

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPopulatedHashLinksRegistry(t *testing.T) *HashLinksRegistry {
	t.Helper()
	registry := NewHashLinksRegistry(RegistryConfig{})
	for _, registration := range []HashLinksRegistration{
		{TID: "0.0.100", Name: "Counter App", Tags: []string{"Demo", "counter"}, Category: "tools", Featured: true},
		{TID: "0.0.101", Name: "Token Dashboard", Tags: []string{"defi"}, Category: "finance"},
		{TID: "0.0.102", Name: "Mini Counter", Tags: []string{"demo"}, Category: "tools"},
	} {
		_, err := registry.Register(context.Background(), registration)
		require.NoError(t, err)
	}
	return registry
}

func entryNames(entries []RegistryEntry[HashLinksRegistration]) []string {
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Data.Name)
	}
	return names
}

func TestHashLinksRegistrySearch(t *testing.T) {
	registry := newPopulatedHashLinksRegistry(t)

	assert.Equal(t, []string{"Counter App", "Mini Counter"}, entryNames(registry.SearchByTags([]string{"DEMO"})))
	assert.Equal(t, []string{"Counter App", "Token Dashboard"}, entryNames(registry.SearchByTags([]string{"counter", "defi"})))
	assert.Empty(t, registry.SearchByTags(nil))
	assert.Equal(t, []string{"Counter App", "Mini Counter"}, entryNames(registry.SearchByName("counter")))
	assert.Equal(t, []string{"Counter App"}, entryNames(registry.GetFeatured()))
	assert.Equal(t, []string{"Token Dashboard"}, entryNames(registry.GetByCategory("finance")))
}

func TestHashLinksRegistryFacets(t *testing.T) {
	registry := newPopulatedHashLinksRegistry(t)

	assert.Equal(t, []string{"finance", "tools"}, registry.GetCategories())
	assert.Equal(t, []string{"Demo", "counter", "defi", "demo"}, registry.GetAllTags())
}

func TestHashLinksRegistryRejectsInvalidEntry(t *testing.T) {
	registry := NewHashLinksRegistry(RegistryConfig{})
	_, err := registry.Register(context.Background(), HashLinksRegistration{Name: "No Topic"})
	assert.Error(t, err)
}
