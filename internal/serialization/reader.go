package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// File is a parsed and validated .scrw file.
type File struct {
	Header Header

	tensors map[string]*tensor.RawTensor
}

// Load reads path, validates the magic, version, tensor bounds, and the
// data checksum, and materializes every tensor.
func Load(path string) (*File, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if len(buf) < 16 || string(buf[:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	version := binary.LittleEndian.Uint32(buf[4:8])
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}
	headerSize := binary.LittleEndian.Uint64(buf[8:16])
	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	headerEnd := 16 + int(headerSize)
	if headerEnd > len(buf) {
		return nil, fmt.Errorf("header size %d exceeds file", headerSize)
	}

	var header Header
	if err := json.Unmarshal(buf[16:headerEnd], &header); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	dataStart := headerEnd
	if pad := (HeaderAlignment - dataStart%HeaderAlignment) % HeaderAlignment; pad > 0 {
		dataStart += pad
	}
	if dataStart+ChecksumSize > len(buf) {
		return nil, fmt.Errorf("file truncated: no data section")
	}
	data := buf[dataStart : len(buf)-ChecksumSize]

	var stored [32]byte
	copy(stored[:], buf[len(buf)-ChecksumSize:])
	if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
		return nil, err
	}

	tensors := make(map[string]*tensor.RawTensor, len(header.Tensors))
	for _, meta := range header.Tensors {
		if meta.Offset < 0 || meta.Size < 0 || meta.Offset+meta.Size > int64(len(data)) {
			return nil, fmt.Errorf("%w: tensor %q", ErrOutOfBounds, meta.Name)
		}
		shape := tensor.Shape(meta.Shape)
		if int64(shape.NumElements()*float32Size) != meta.Size {
			return nil, fmt.Errorf("%w: tensor %q shape %v, size %d", ErrShapeMismatch, meta.Name, shape, meta.Size)
		}

		values := make([]float32, shape.NumElements())
		section := data[meta.Offset : meta.Offset+meta.Size]
		for i := range values {
			bits := binary.LittleEndian.Uint32(section[i*float32Size:])
			values[i] = math.Float32frombits(bits)
		}
		raw, err := tensor.RawFromSlice(values, shape.Clone())
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", meta.Name, err)
		}
		tensors[meta.Name] = raw
	}

	return &File{Header: header, tensors: tensors}, nil
}

// Tensors returns all tensors keyed by name.
func (f *File) Tensors() map[string]*tensor.RawTensor { return f.tensors }

// Tensor returns one tensor by name.
func (f *File) Tensor(name string) (*tensor.RawTensor, bool) {
	t, ok := f.tensors[name]
	return t, ok
}
