package dispatch

import "fmt"

// TypeMismatchError reports an instance being used through a type handle from
// a different load. The definitions may be textually identical; identity is
// still per load.
type TypeMismatchError struct {
	TypeName string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("instance of %q originates in a different context and cannot cross the boundary", e.TypeName)
}

// InvocationError reports a failed member invocation: unknown type or member,
// arity or type mismatch, unbound behavior, or a non-marshalable value.
type InvocationError struct {
	TypeName string
	Member   string
	Reason   string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoke %s.%s: %s", e.TypeName, e.Member, e.Reason)
}
