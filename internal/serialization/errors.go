package serialization

import "errors"

// Sentinel errors describing why a .scrw file was rejected.
var (
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrOutOfBounds        = errors.New("tensor extends beyond data section")
	ErrShapeMismatch      = errors.New("tensor shape does not match size")
)
