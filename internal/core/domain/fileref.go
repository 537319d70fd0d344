package domain

// FileRef denotes either a symbolic name registered in the path cache or a
// literal filesystem path. Keeping the two as an explicit union makes the
// cache's fallback-to-literal behavior a testable branch instead of a
// try-and-see lookup on a bare string.
type FileRef struct {
	value   string
	literal bool
}

// Name returns a FileRef that resolves through the path cache first.
func Name(name string) FileRef {
	return FileRef{value: name}
}

// Path returns a FileRef that bypasses the cache and is used verbatim.
func Path(path string) FileRef {
	return FileRef{value: path, literal: true}
}

// MostRecent returns a FileRef for the reserved "last" name.
func MostRecent() FileRef {
	return Name(MostRecentName)
}

// Value returns the underlying name or path string.
func (r FileRef) Value() string {
	return r.value
}

// IsLiteral reports whether the ref is a literal path.
func (r FileRef) IsLiteral() bool {
	return r.literal
}

// IsZero reports whether the ref is unset.
func (r FileRef) IsZero() bool {
	return r.value == "" && !r.literal
}

// String implements fmt.Stringer.
func (r FileRef) String() string {
	return r.value
}
