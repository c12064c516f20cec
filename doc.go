// Package beanctx is a typed, lazily-resolving bean context for Go.
//
// A context maps (type, name) slots to beans. A slot holds either a ready
// instance or a creator that builds the instance the first time it is
// computed; creators resolve their own dependencies by computing them from the
// same context, and cycles are reported instead of deadlocking. Beans can also
// expose capabilities: typed methods discoverable by (params, args) type.
//
// The repository is laid out as:
//   - di: the runtime (contexts, creators, capabilities, lifecycle, modules)
//   - config: YAML, .env and BEANCTX_* environment settings turned into di options
//   - cmd/beangen: generates a di.Module from a YAML bean spec
//   - examples/*: runnable examples (counter, graph with a cycle, HTTP request
//     scopes, generated wiring)
package beanctx
