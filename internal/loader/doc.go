// Package loader implements isolation contexts for loadable modules.
//
// A Registry is process-wide state: it owns the always-present default
// context, tracks every custom context by name, and records which context
// each loaded descriptor belongs to. A Context is a named resolution scope
// holding at most one loaded module per simple name; conflicting versions of
// the same module coexist in one process by living in different contexts.
//
// Resolution of a simple name a context has not loaded walks a fixed
// delegation chain: the context's own load hook, the default context's
// already-loaded modules, the context's resolving hook, and finally the
// default context's resolving hook. Each hook is a strategy supplied at
// creation time; package resolve provides the stock ones.
package loader
