package serialization

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/piczak/internal/backend/cpu"
	"github.com/born-ml/piczak/internal/tensor"
)

func makeStateDict(t *testing.T) map[string]*tensor.RawTensor {
	t.Helper()

	weight, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(weight.AsFloat32(), []float32{1, 2, 3, 4, 5, 6})

	bias, err := tensor.NewRaw(tensor.Shape{3}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(bias.AsFloat32(), []float32{0.1, 0.2, 0.3})

	return map[string]*tensor.RawTensor{
		"model.dense.weight": weight,
		"model.dense.bias":   bias,
	}
}

func writeFile(t *testing.T, stateDict map[string]*tensor.RawTensor) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.born")

	writer, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, writer.WriteStateDict(stateDict, "Test", map[string]string{"purpose": "test"}))
	require.NoError(t, writer.Close())
	return path
}

func TestWriteRead_RoundTrip(t *testing.T) {
	stateDict := makeStateDict(t)
	path := writeFile(t, stateDict)

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, FormatVersion, reader.Header().FormatVersion)
	assert.Equal(t, "Test", reader.Header().ModelType)
	assert.Equal(t, "test", reader.Metadata()["purpose"])
	assert.ElementsMatch(t, []string{"model.dense.weight", "model.dense.bias"}, reader.TensorNames())

	loaded, err := reader.ReadStateDict(cpu.New())
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	for name, raw := range stateDict {
		got, ok := loaded[name]
		require.True(t, ok, "missing tensor %s", name)
		assert.True(t, got.Shape().Equal(raw.Shape()))
		assert.Equal(t, raw.AsFloat32(), got.AsFloat32())
	}
}

func TestWrite_Deterministic(t *testing.T) {
	stateDict := makeStateDict(t)

	pathA := writeFile(t, stateDict)
	pathB := writeFile(t, stateDict)

	readerA, err := NewReader(pathA)
	require.NoError(t, err)
	defer readerA.Close()
	readerB, err := NewReader(pathB)
	require.NoError(t, err)
	defer readerB.Close()

	// Sorted layout: identical state dicts produce identical tensor
	// tables regardless of map iteration order.
	assert.Equal(t, readerA.Header().Tensors, readerB.Header().Tensors)
}

func TestRead_InvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.born")
	require.NoError(t, os.WriteFile(path, []byte("NOTBORN_AT_ALL_AND_LONG_ENOUGH_TO_PARSE_SIXTY_FOUR_BYTES_PADDING"), 0o644))

	_, err := NewReader(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestRead_CorruptedDataFailsChecksum(t *testing.T) {
	path := writeFile(t, makeStateDict(t))

	// Flip one byte in the tensor data at the tail of the file.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = NewReader(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	// Skipping checksum validation lets the corrupted file open.
	reader, err := NewReaderWithOptions(path, ReaderOptions{
		SkipChecksumValidation: true,
		ValidationLevel:        ValidationStrict,
	})
	require.NoError(t, err)
	reader.Close()
}

func TestValidateTensorName(t *testing.T) {
	assert.NoError(t, ValidateTensorName("model.dense.weight"))
	assert.Error(t, ValidateTensorName("../etc/passwd"))
	assert.Error(t, ValidateTensorName("a/b"))
	assert.Error(t, ValidateTensorName("a\x00b"))
}

func TestValidateTensorOffsets(t *testing.T) {
	ok := []TensorMeta{
		{Name: "a", Offset: 0, Size: 16},
		{Name: "b", Offset: 16, Size: 8},
	}
	assert.NoError(t, ValidateTensorOffsets(ok, 24))

	overlap := []TensorMeta{
		{Name: "a", Offset: 0, Size: 20},
		{Name: "b", Offset: 16, Size: 8},
	}
	assert.Error(t, ValidateTensorOffsets(overlap, 64))

	outOfBounds := []TensorMeta{
		{Name: "a", Offset: 0, Size: 128},
	}
	assert.Error(t, ValidateTensorOffsets(outOfBounds, 64))
}

func TestReader_LoadSingleTensor(t *testing.T) {
	stateDict := makeStateDict(t)
	path := writeFile(t, stateDict)

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	raw, err := reader.LoadTensor("model.dense.bias", cpu.New())
	require.NoError(t, err)
	assert.True(t, raw.Shape().Equal(tensor.Shape{3}))
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, raw.AsFloat32())

	_, err = reader.LoadTensor("missing", cpu.New())
	assert.Error(t, err)
}
