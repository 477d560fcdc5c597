package catalog

import "github.com/gravitational/trace"

// Catalog errors are expressed with trace's standard constructors so
// callers can classify them with trace.IsNotFound, trace.IsAlreadyExists,
// etc. Name collisions are trace.AlreadyExists errors with the dedicated
// IsDuplicateName predicate; hierarchy cycles are trace.BadParameter
// errors and have no dedicated predicate.

// ErrDuplicateName is returned when a create/rename would collide with an
// existing case-insensitive name within the same entity kind.
func ErrDuplicateName(kind, name string) error {
	return trace.AlreadyExists("%s named %q already exists", kind, name)
}

// IsDuplicateName reports whether err was produced by ErrDuplicateName.
func IsDuplicateName(err error) bool {
	return trace.IsAlreadyExists(err)
}

// ErrCycleInHierarchy is returned when a group parent assignment would
// introduce a cycle.
func ErrCycleInHierarchy(groupID string) error {
	return trace.BadParameter("group %s: parent assignment would create a cycle", groupID)
}

// ErrProtocolMismatch is returned when a Connection's Protocol tag and its
// ProtocolConfig variant disagree.
func ErrProtocolMismatch(protocol string) error {
	return trace.BadParameter("protocol %q does not match its protocol configuration", protocol)
}

// ErrValidationFailed is returned for a named-field validation failure.
func ErrValidationFailed(field, reason string) error {
	return trace.BadParameter("validation failed for field %q: %s", field, reason)
}
