package kernel

// Kind classifies a kernel error. The syscall layer collapses every kind to
// a -1 return value; the kinds exist so that internal callers and tests can
// tell failures apart.
type Kind uint8

// The supported error kinds.
const (
	KindUnknown Kind = iota

	// InvalidArgument reports null buffers, bad lengths or out-of-range
	// descriptors and addresses.
	InvalidArgument

	// NotFound reports an unresolvable program or file name.
	NotFound

	// NotExecutable reports an image without the executable magic.
	NotExecutable

	// ResourceExhausted reports a missing PCB slot, descriptor slot or an
	// exhausted process budget.
	ResourceExhausted

	// InvalidFrequency reports a clock rate that is not a power of two in
	// the supported range.
	InvalidFrequency

	// Unsupported reports an operation that a file kind does not provide.
	Unsupported

	// Corrupt reports malformed on-disk structures.
	Corrupt
)

var kindNames = [...]string{
	KindUnknown:       "unknown",
	InvalidArgument:   "invalid argument",
	NotFound:          "not found",
	NotExecutable:     "not executable",
	ResourceExhausted: "resource exhausted",
	InvalidFrequency:  "invalid frequency",
	Unsupported:       "unsupported",
	Corrupt:           "corrupt",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// Error describes a kernel error. All kernel errors must be defined as global
// variables that are pointers to the Error structure so that the print and
// syscall paths never need to allocate.
type Error struct {
	// The class of the error.
	Kind Kind

	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is returns true if err is non-nil and belongs to the supplied kind.
func Is(err *Error, kind Kind) bool {
	return err != nil && err.Kind == kind
}
