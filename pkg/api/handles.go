package api

// Handles are opaque references into the manager's handle tables.
// The zero value of every handle type is never valid.

// Data references a data object.
type Data struct{ Handle uint64 }

// DataSet references an ordered set of data objects.
type DataSet struct{ Handle uint64 }

// ActionInfo references the configuration of an action.
type ActionInfo struct{ Handle uint64 }

// MetadataNode references a node of a metadata tree.
type MetadataNode struct{ Handle uint64 }

// Symbol references a symbol of a relocatable or executable data object.
type Symbol struct{ Handle uint64 }

// InterfaceVersionMajor and InterfaceVersionMinor identify the interface
// implemented by this module.
const (
	InterfaceVersionMajor = 1
	InterfaceVersionMinor = 0
)

// Version returns the interface version supported.
func Version() (major, minor int) {
	return InterfaceVersionMajor, InterfaceVersionMinor
}

// Compatible reports whether a caller built against major.minor can use
// this implementation: the major versions must be equal and the caller's
// minor must not be newer.
func Compatible(major, minor int) bool {
	return major == InterfaceVersionMajor && minor <= InterfaceVersionMinor
}
