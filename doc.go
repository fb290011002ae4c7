// The HashLinks SDK for Go implements HCS-12, the Hiero Consensus Specification
// for composing interactive applications from WASM actions, UI blocks and
// assemblies registered on Hedera Consensus Service topics.
//
// # Packages
//
//   - pkg/hcs12: registries, assembly state replay, the assembly engine,
//     composition, validation and the ledger client
//   - pkg/mirror: mirror node REST client used to read registry topics
//   - pkg/shared: network, operator and logging helpers
//
// # Documentation
//
// HCS-12 specification: https://hol.org/docs/standards/hcs-12
//
// Hashgraph Online ecosystem: https://hol.org
//
// # Installation
//
//	go get github.com/hashgraph-online/hashlinks-sdk-go@latest
package hashlinks
