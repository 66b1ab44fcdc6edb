package sourcemap

import (
	"bytes"
)

// Every map in this package describes a single generated file with a single
// original source. Mappings are sorted by generated position. A mapping
// covers the generated columns up to the next mapping on the same line, and
// positions inside that span are offset linearly from its start.
type Mapping struct {
	GeneratedLine   int32 // 0-based
	GeneratedColumn int32 // 0-based count of UTF-16 code units

	SourceIndex    int32 // 0-based
	OriginalLine   int32 // 0-based
	OriginalColumn int32 // 0-based count of UTF-16 code units
}

type SourceMap struct {
	Sources        []string
	SourcesContent []string
	Mappings       []Mapping
}

type OriginalPosition struct {
	SourceIndex int32
	Line        int32
	Column      int32
}

func (sm *SourceMap) Find(line int32, column int32) *Mapping {
	mappings := sm.Mappings

	// Binary search
	count := len(mappings)
	index := 0
	for count > 0 {
		step := count / 2
		i := index + step
		mapping := mappings[i]
		if mapping.GeneratedLine < line || (mapping.GeneratedLine == line && mapping.GeneratedColumn <= column) {
			index = i + 1
			count -= step + 1
		} else {
			count = step
		}
	}

	// Handle search failure
	if index > 0 {
		mapping := &mappings[index-1]

		// Match the behavior of the popular "source-map" library from Mozilla
		if mapping.GeneratedLine == line {
			return mapping
		}
	}
	return nil
}

// Trace returns the original position of a generated position, offsetting
// linearly from the closest mapping at or before it on the same line.
func (sm *SourceMap) Trace(line int32, column int32) (OriginalPosition, bool) {
	if sm == nil {
		return OriginalPosition{}, false
	}
	mapping := sm.Find(line, column)
	if mapping == nil {
		return OriginalPosition{}, false
	}
	return OriginalPosition{
		SourceIndex: mapping.SourceIndex,
		Line:        mapping.OriginalLine,
		Column:      mapping.OriginalColumn + (column - mapping.GeneratedColumn),
	}, true
}

// Identity maps every line of "text" onto itself.
func Identity(text string) *SourceMap {
	sm := &SourceMap{}
	var offset LineColumnOffset
	sm.Mappings = append(sm.Mappings, Mapping{})
	for i := 0; i < len(text); i++ {
		if c := text[i]; c == '\n' || (c == '\r' && (i+1 == len(text) || text[i+1] != '\n')) {
			offset.Lines++
			if i+1 < len(text) {
				line := int32(offset.Lines)
				sm.Mappings = append(sm.Mappings, Mapping{GeneratedLine: line, OriginalLine: line})
			}
		}
	}
	return sm
}

var base64 = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/")

// A single base 64 digit can contain 6 bits of data. For the base 64 variable
// length quantities used in source maps, the first bit is the sign,
// the next four bits are the actual value, and the 6th bit is the continuation
// bit. The continuation bit tells us whether there are more digits in this
// value following this digit.
//
//	Continuation
//	|    Sign
//	|    |
//	V    V
//	101011
func encodeVLQ(encoded []byte, value int) []byte {
	var vlq int
	if value < 0 {
		vlq = ((-value) << 1) | 1
	} else {
		vlq = value << 1
	}

	// Handle the common case
	if (vlq >> 5) == 0 {
		digit := vlq & 31
		encoded = append(encoded, base64[digit])
		return encoded
	}

	for {
		digit := vlq & 31
		vlq >>= 5

		// If there are still more digits in this value, we must make sure the
		// continuation bit is marked
		if vlq != 0 {
			digit |= 32
		}

		encoded = append(encoded, base64[digit])

		if vlq == 0 {
			break
		}
	}

	return encoded
}

// Returns false if the input ends in the middle of a value or contains a
// character outside of the base 64 alphabet.
func DecodeVLQ(encoded []byte, start int) (int, int, bool) {
	shift := 0
	vlq := 0

	// Scan over the input
	for {
		if start >= len(encoded) {
			return 0, start, false
		}
		index := bytes.IndexByte(base64, encoded[start])
		if index < 0 {
			return 0, start, false
		}

		// Decode a single byte
		vlq |= (index & 31) << shift
		start++
		shift += 5

		// Stop if there's no continuation bit
		if (index & 32) == 0 {
			break
		}
	}

	// Recover the value
	value := vlq >> 1
	if (vlq & 1) != 0 {
		value = -value
	}
	return value, start, true
}

type LineColumnOffset struct {
	Lines   int
	Columns int
}

func (offset *LineColumnOffset) AdvanceString(text string) {
	columns := offset.Columns
	for i, c := range text {
		switch c {
		case '\r', '\n':
			// Handle Windows-specific "\r\n" newlines
			if c == '\r' && i+1 < len(text) && text[i+1] == '\n' {
				columns++
				continue
			}

			offset.Lines++
			columns = 0

		default:
			// Mozilla's "source-map" library counts columns using UTF-16 code units
			if c <= 0xFFFF {
				columns++
			} else {
				columns += 2
			}
		}
	}
	offset.Columns = columns
}
