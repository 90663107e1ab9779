package batch

import (
	"errors"
	"io"
	"testing"

	"github.com/danthegoodman1/idhash/dtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *Record {
	t.Helper()
	r, err := NewRecord(
		NewValues(dtype.Int64, int64(0), int64(1), int64(3), int64(4), int64(5)),
		NewValues(dtype.String, "0", "1", nil, "3", "4"),
	)
	require.NoError(t, err)
	return r
}

func TestNewRecordLengthMismatch(t *testing.T) {
	_, err := NewRecord(NewValues(dtype.Int64, 1, 2), NewValues(dtype.Bool, true))
	assert.True(t, errors.Is(err, ErrColumnLength))
}

func TestSlice(t *testing.T) {
	r := sample(t)
	s := r.Slice(1, 4)
	require.Equal(t, 3, s.NumRows())
	require.Equal(t, 2, s.NumCols())
	assert.Equal(t, int64(1), s.Column(0).Value(0))
	assert.Nil(t, s.Column(1).Value(1))
	assert.Equal(t, 3, s.Column(1).Len())
	assert.Equal(t, dtype.KindString, s.Column(1).DataType().Kind)

	// Slicing a slice keeps offsets relative
	ss := s.Slice(1, 3)
	assert.Equal(t, int64(3), ss.Column(0).Value(0))
}

func TestChunk(t *testing.T) {
	r := sample(t)

	chunks := Chunk(r, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, 2, chunks[0].NumRows())
	assert.Equal(t, 1, chunks[2].NumRows())
	assert.Equal(t, int64(5), chunks[2].Column(0).Value(0))

	assert.Len(t, Chunk(r, 0), 1)
	assert.Len(t, Chunk(r, 100), 1)

	empty, err := NewRecord(NewValues(dtype.Int64))
	require.NoError(t, err)
	assert.Empty(t, Chunk(empty, 10))
}

func TestSliceReader(t *testing.T) {
	r := sample(t)
	sr := NewSliceReader(Chunk(r, 2)...)

	all, err := ReadAll(sr)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = sr.Next()
	assert.True(t, errors.Is(err, io.EOF))
}
