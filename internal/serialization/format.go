// Package serialization implements the .scrw container used for model
// checkpoints: a small binary header, a JSON index of the tensors, the raw
// float32 payload, and a SHA-256 checksum trailer over the payload.
//
// Layout:
//
//	[0:4]   magic "SCRW"
//	[4:8]   format version (uint32, little-endian)
//	[8:16]  header size (uint64, little-endian)
//	[16:..] JSON header
//	[..]    zero padding to a 64-byte boundary
//	[..]    tensor data, tightly packed float32 little-endian
//	[-32:]  SHA-256 of the tensor data section
package serialization

import "time"

// Format constants.
const (
	MagicBytes      = "SCRW"
	FormatVersion   = 1
	HeaderAlignment = 64 // tensor data starts on a 64-byte boundary
	ChecksumSize    = 32

	// MaxHeaderSize bounds the JSON header so a corrupted size field
	// cannot make the reader allocate unbounded memory.
	MaxHeaderSize = 16 << 20

	float32Size = 4
)

// Header is the JSON index written after the fixed fields.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	ModelType      string            `json:"model_type"`
	CreatedAt      time.Time         `json:"created_at"`
	Tensors        []TensorMeta      `json:"tensors"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"`
}

// CheckpointMeta carries training state alongside the weights.
type CheckpointMeta struct {
	RunID     string  `json:"run_id"`
	Epoch     int     `json:"epoch"`
	Step      int64   `json:"step"`
	Loss      float64 `json:"loss"`
	Accuracy  float64 `json:"accuracy"`
	Optimizer string  `json:"optimizer"`
}

// TensorMeta locates one tensor inside the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
}
