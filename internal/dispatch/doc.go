// Package dispatch implements the cross-context invocation boundary.
//
// Every load of a payload builds a fresh Table from the payload's manifest:
// a late-bound mapping of (typeName, memberName) to callables. Because a
// table is built per load, two loads of byte-identical payloads produce
// distinct type handles and distinct static state, which is exactly the
// isolation the loader guarantees.
//
// Go code backing manifest methods is registered process-wide in a Behaviors
// registry, keyed by module, type, and member name. Behaviors receive and
// return cty values restricted to the primitive kinds; structural values do
// not cross the boundary.
package dispatch
