// Package safetensors reads tensor archives in the safetensors format:
// an 8-byte little-endian header length, a JSON header mapping tensor
// names to dtype/shape/data offsets, then the raw tensor bytes.
//
// Only reading is implemented; the client ships LoRA weight files to the
// service verbatim and never evaluates them.
package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"gyreclient/generation"
)

// Sentinel errors for archive parsing.
var (
	ErrNotSafetensors = errors.New("safetensors: not a safetensors file")
	ErrCorruptHeader  = errors.New("safetensors: corrupt header")
	ErrTruncated      = errors.New("safetensors: tensor data out of bounds")
)

// maxHeaderSize guards against absurd header lengths from corrupt or
// hostile files.
const maxHeaderSize = 100 * 1024 * 1024

// Tensor is one named tensor slice of the archive. Data aliases the
// file's backing buffer; callers must not mutate it.
type Tensor struct {
	Name  string
	Dtype string
	Shape []uint64
	Data  []byte
}

// File is a parsed safetensors archive.
type File struct {
	Metadata map[string]string
	Tensors  []Tensor
}

// headerEntry is the JSON shape of one header record.
type headerEntry struct {
	Dtype       string    `json:"dtype"`
	Shape       []uint64  `json:"shape"`
	DataOffsets [2]uint64 `json:"data_offsets"`
}

// Open reads and parses an archive from disk.
func Open(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("safetensors: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse parses an archive from memory.
func Parse(raw []byte) (*File, error) {
	if len(raw) < 8 {
		return nil, ErrNotSafetensors
	}

	headerLen := binary.LittleEndian.Uint64(raw[:8])
	if headerLen > maxHeaderSize || headerLen > uint64(len(raw)-8) {
		return nil, fmt.Errorf("%w: header length %d exceeds file size", ErrCorruptHeader, headerLen)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(raw[8:8+headerLen], &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHeader, err)
	}

	data := raw[8+headerLen:]
	file := &File{}

	type placed struct {
		tensor Tensor
		begin  uint64
	}
	var tensors []placed

	for name, rawEntry := range header {
		if name == "__metadata__" {
			if err := json.Unmarshal(rawEntry, &file.Metadata); err != nil {
				return nil, fmt.Errorf("%w: metadata: %v", ErrCorruptHeader, err)
			}
			continue
		}

		var entry headerEntry
		if err := json.Unmarshal(rawEntry, &entry); err != nil {
			return nil, fmt.Errorf("%w: tensor %s: %v", ErrCorruptHeader, name, err)
		}

		begin, end := entry.DataOffsets[0], entry.DataOffsets[1]
		if begin > end || end > uint64(len(data)) {
			return nil, fmt.Errorf("%w: tensor %s offsets [%d, %d)", ErrTruncated, name, begin, end)
		}

		tensors = append(tensors, placed{
			tensor: Tensor{
				Name:  name,
				Dtype: entry.Dtype,
				Shape: entry.Shape,
				Data:  data[begin:end],
			},
			begin: begin,
		})
	}

	// Header iteration order is random; restore file layout order.
	sort.Slice(tensors, func(i, j int) bool {
		if tensors[i].begin != tensors[j].begin {
			return tensors[i].begin < tensors[j].begin
		}
		return tensors[i].tensor.Name < tensors[j].tensor.Name
	})
	for _, t := range tensors {
		file.Tensors = append(file.Tensors, t.tensor)
	}

	return file, nil
}

// Bundle converts the archive to its wire form for an ARTIFACT_LORA
// prompt.
func (f *File) Bundle() *generation.Safetensors {
	bundle := &generation.Safetensors{Metadata: f.Metadata}
	for _, t := range f.Tensors {
		bundle.Tensors = append(bundle.Tensors, &generation.Tensor{
			Name:  t.Name,
			Dtype: t.Dtype,
			Shape: t.Shape,
			Data:  t.Data,
		})
	}
	return bundle
}
