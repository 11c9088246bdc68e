package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/born-ml/piczak/internal/tensor"
)

const libraryVersion = "0.1.0"

// Writer writes models in .born format.
//
// File layout:
//
//	0x00  magic "BORN"
//	0x04  format version (uint32 LE)
//	0x08  flags (uint32 LE)
//	0x0C  reserved
//	0x10  JSON header size (uint64 LE)
//	0x18  data section size (uint64 LE)
//	0x20  SHA-256 checksum of the data section
//	0x40  JSON header, then zero padding to a 64-byte boundary
//	....  tensor data
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates a .born file writer at path, truncating any existing
// file.
func NewWriter(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &Writer{file: file}, nil
}

// WriteStateDict writes a state dictionary with the given model type and
// optional metadata.
func (w *Writer) WriteStateDict(stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string) error {
	header := Header{
		ModelType: modelType,
		Metadata:  metadata,
	}
	return w.WriteStateDictWithHeader(stateDict, header)
}

// WriteStateDictWithHeader writes a state dictionary with a caller-built
// header, for checkpoint metadata and other custom fields. Tensor layout
// fields of the header are filled in here.
func (w *Writer) WriteStateDictWithHeader(stateDict map[string]*tensor.RawTensor, header Header) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	header.FormatVersion = FormatVersion
	header.LibraryVersion = libraryVersion
	header.CreatedAt = time.Now().UTC()
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	// Tensors are laid out in sorted name order so the same state dict
	// always produces the same bytes.
	tensorOrder := make([]string, 0, len(stateDict))
	for name := range stateDict {
		tensorOrder = append(tensorOrder, name)
	}
	sort.Strings(tensorOrder)

	var currentOffset int64
	header.Tensors = make([]TensorMeta, 0, len(stateDict))
	for _, name := range tensorOrder {
		raw := stateDict[name]
		size := int64(raw.ByteSize())
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  dtypeToString(raw.DType()),
			Shape:  []int(raw.Shape()),
			Offset: currentOffset,
			Size:   size,
		})
		currentOffset += size
	}

	var tensorData []byte
	for _, name := range tensorOrder {
		tensorData = append(tensorData, stateDict[name].Data()...)
	}
	checksum := ComputeChecksum(tensorData)

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	fixedHeader := make([]byte, FixedHeaderSize)
	copy(fixedHeader[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixedHeader[4:8], uint32(FormatVersion))

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.CheckpointMeta != nil && header.CheckpointMeta.IsCheckpoint {
		flags |= FlagHasOptimizer
	}
	binary.LittleEndian.PutUint32(fixedHeader[8:12], flags)

	binary.LittleEndian.PutUint64(fixedHeader[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixedHeader[24:32], uint64(len(tensorData)))
	copy(fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.file.Write(fixedHeader); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	currentPos := int64(FixedHeaderSize) + int64(len(headerJSON))
	padding := (HeaderAlignment - (currentPos % HeaderAlignment)) % HeaderAlignment
	if padding > 0 {
		if _, err := w.file.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := w.file.Write(tensorData); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}

	return nil
}

// Close closes the writer and the underlying file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
