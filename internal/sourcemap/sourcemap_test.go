package sourcemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVLQ(t *testing.T) {
	for _, value := range []int{0, 1, -1, 15, 16, -16, 123456, -987654} {
		encoded := encodeVLQ(nil, value)
		decoded, end, ok := DecodeVLQ(encoded, 0)
		require.True(t, ok)
		assert.Equal(t, value, decoded)
		assert.Equal(t, len(encoded), end)
	}

	_, _, ok := DecodeVLQ([]byte("g"), 0)
	assert.False(t, ok, "a continuation bit at the end of the input is truncated")
}

func TestTraceOffsetsLinearly(t *testing.T) {
	sm := &SourceMap{Mappings: []Mapping{
		{GeneratedLine: 0, GeneratedColumn: 0, OriginalLine: 3, OriginalColumn: 2},
		{GeneratedLine: 0, GeneratedColumn: 10, OriginalLine: 5, OriginalColumn: 0},
	}}

	pos, ok := sm.Trace(0, 4)
	require.True(t, ok)
	assert.Equal(t, OriginalPosition{Line: 3, Column: 6}, pos)

	pos, ok = sm.Trace(0, 12)
	require.True(t, ok)
	assert.Equal(t, OriginalPosition{Line: 5, Column: 2}, pos)

	_, ok = sm.Trace(1, 0)
	assert.False(t, ok)
}

func TestIdentity(t *testing.T) {
	sm := Identity("a\nbb\r\nccc\n")
	assert.Len(t, sm.Mappings, 3)
	pos, ok := sm.Trace(2, 2)
	require.True(t, ok)
	assert.Equal(t, OriginalPosition{Line: 2, Column: 2}, pos)
}

func TestComposeKeepsInnerBreakpoints(t *testing.T) {
	// "abcdef" -> "XXabcdef" (prefix inserted)
	inner := &SourceMap{Mappings: []Mapping{
		{GeneratedLine: 0, GeneratedColumn: 0, OriginalLine: 0, OriginalColumn: 0},
		{GeneratedLine: 0, GeneratedColumn: 2, OriginalLine: 0, OriginalColumn: 0},
	}}
	// "XXabcdef" -> "\nXXabcdef" (newline inserted)
	outer := &SourceMap{Mappings: []Mapping{
		{GeneratedLine: 0, GeneratedColumn: 0, OriginalLine: 0, OriginalColumn: 0},
		{GeneratedLine: 1, GeneratedColumn: 0, OriginalLine: 0, OriginalColumn: 0},
	}}

	composed := Compose(inner, outer)
	require.NotNil(t, composed)

	pos, ok := composed.Trace(1, 5)
	require.True(t, ok)
	assert.Equal(t, OriginalPosition{Line: 0, Column: 3}, pos)
}

func TestComposeWithMissingMap(t *testing.T) {
	assert.Nil(t, Compose())
	assert.Nil(t, Compose(Identity("a"), nil))
}

func TestEncodeDecode(t *testing.T) {
	sm := &SourceMap{
		Sources:        []string{"input.js"},
		SourcesContent: []string{"let a = \"x\";\n"},
		Mappings: []Mapping{
			{GeneratedLine: 0, GeneratedColumn: 0, OriginalLine: 0, OriginalColumn: 0},
			{GeneratedLine: 0, GeneratedColumn: 7, OriginalLine: 0, OriginalColumn: 4},
			{GeneratedLine: 2, GeneratedColumn: 1, OriginalLine: 1, OriginalColumn: 0},
		},
	}

	decoded, err := Decode(Encode(sm, "out.js"))
	require.NoError(t, err)
	assert.Equal(t, sm, decoded)
}

func TestDecodeSkipsSegmentsWithoutSource(t *testing.T) {
	decoded, err := Decode([]byte(`{"version":3,"sources":["a.js"],"names":["x"],"mappings":"A,CAAAA;AACA"}`))
	require.NoError(t, err)
	assert.Equal(t, []Mapping{
		{GeneratedLine: 0, GeneratedColumn: 1},
		{GeneratedLine: 1, GeneratedColumn: 0, OriginalLine: 1},
	}, decoded.Mappings)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte(`{"version":2,"mappings":""}`))
	assert.EqualError(t, err, "unsupported source map version 2")

	_, err = Decode([]byte(`{"version":3,"mappings":"AA"}`))
	assert.EqualError(t, err, "invalid source map segment with 2 fields")

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}
