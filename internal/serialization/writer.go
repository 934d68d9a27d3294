package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// Save writes stateDict to path in .scrw format. Tensors are laid out in
// sorted name order so identical state always produces identical bytes.
// The header's Tensors field is filled in here; CreatedAt is stamped if the
// caller left it zero.
func Save(path string, stateDict map[string]*tensor.RawTensor, header Header) error {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	header.FormatVersion = FormatVersion
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}

	var data bytes.Buffer
	header.Tensors = make([]TensorMeta, 0, len(names))
	for _, name := range names {
		raw := stateDict[name]
		size := int64(raw.NumElements() * float32Size)
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			Shape:  append([]int(nil), raw.Shape()...),
			Offset: int64(data.Len()),
			Size:   size,
		})
		for _, v := range raw.Data() {
			var buf [float32Size]byte
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
			data.Write(buf[:])
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}

	var file bytes.Buffer
	file.WriteString(MagicBytes)
	_ = binary.Write(&file, binary.LittleEndian, uint32(FormatVersion))
	_ = binary.Write(&file, binary.LittleEndian, uint64(len(headerJSON)))
	file.Write(headerJSON)

	if pad := (HeaderAlignment - file.Len()%HeaderAlignment) % HeaderAlignment; pad > 0 {
		file.Write(make([]byte, pad))
	}

	file.Write(data.Bytes())

	checksum := ComputeChecksum(data.Bytes())
	file.Write(checksum[:])

	if err := os.WriteFile(path, file.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
