package hcs12

import "github.com/hashgraph-online/hashlinks-sdk-go/pkg/shared"

// RegistryTopics names the registry topics used by an application.
type RegistryTopics struct {
	Action    string
	Block     string
	Assembly  string
	HashLinks string
}

// RegistryTopicsFromEnv reads registry topic IDs from HCS12_*_TOPIC_ID variables. A .env
// file is loaded first when present. Unset topics are left empty.
func RegistryTopicsFromEnv() RegistryTopics {
	shared.LoadDotEnv()
	return RegistryTopics{
		Action:    shared.FirstNonEmptyEnv("HCS12_ACTION_TOPIC_ID", "HCS12_ACTION_REGISTRY"),
		Block:     shared.FirstNonEmptyEnv("HCS12_BLOCK_TOPIC_ID", "HCS12_BLOCK_REGISTRY"),
		Assembly:  shared.FirstNonEmptyEnv("HCS12_ASSEMBLY_TOPIC_ID", "HCS12_ASSEMBLY_REGISTRY"),
		HashLinks: shared.FirstNonEmptyEnv("HCS12_HASHLINKS_TOPIC_ID", "HCS12_HASHLINKS_REGISTRY"),
	}
}

// Missing returns the variable names of registry topics that are unset or malformed.
func (topics RegistryTopics) Missing() []string {
	missing := make([]string, 0)
	for _, candidate := range []struct {
		name  string
		value string
	}{
		{"HCS12_ACTION_TOPIC_ID", topics.Action},
		{"HCS12_BLOCK_TOPIC_ID", topics.Block},
		{"HCS12_ASSEMBLY_TOPIC_ID", topics.Assembly},
		{"HCS12_HASHLINKS_TOPIC_ID", topics.HashLinks},
	} {
		if !IsTopicID(candidate.value) {
			missing = append(missing, candidate.name)
		}
	}
	return missing
}
