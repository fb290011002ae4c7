// Package mirror is a small Hedera mirror node REST client. It reads topic
// metadata and paged topic messages, and decodes base64 message payloads.
//
// HashLinks registries use it as their log transport: Registry.Sync and
// AssemblyRegistry.GetAssemblyState replay topics through GetTopicMessages,
// and Registry.VerifyTopic checks the registry memo via GetTopicInfo.
package mirror
