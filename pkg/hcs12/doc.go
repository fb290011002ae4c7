// Package hcs12 implements HCS-12 HashLinks: registries of WASM actions, UI blocks and
// assemblies stored on Hedera Consensus Service topics, and the tooling that composes them
// into runnable applications.
//
// The package covers four concerns:
//
//   - Registries. ActionRegistry, BlockRegistry, AssemblyRegistry and HashLinksRegistry
//     hold registrations materialized from append-only topics, either written locally with
//     Register or replayed from the mirror node with Sync.
//   - Assembly state. AssemblyRegistry.GetAssemblyState replays the register, add-action,
//     add-block and update messages of an assembly topic into an AssemblyState.
//   - Composition. AssemblyEngine loads an assembly definition and resolves its action and
//     block references; Composer produces a ComposedAssembly with module interfaces,
//     templates and dependency checks.
//   - Validation. ValidateAssembly scores an assembly definition for structure, metadata,
//     performance and security.
//
// Client submits messages to the ledger and creates registry topics. ContentClient
// dereferences t_id pointers to HCS-1 content.
//
// # Specification
//
// Full specification: https://hol.org/docs/standards/hcs-12
package hcs12
