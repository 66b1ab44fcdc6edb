package sourcemap

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/evanw/esclosure/internal/helpers"
)

// Encode serializes the map as a version 3 source map.
func Encode(sm *SourceMap, file string) []byte {
	j := helpers.Joiner{}
	j.AddString("{\n  \"version\": 3")

	if file != "" {
		j.AddString(",\n  \"file\": ")
		j.AddBytes(helpers.QuoteForJSON(file))
	}

	j.AddString(",\n  \"sources\": [")
	for i, source := range sm.Sources {
		if i != 0 {
			j.AddString(", ")
		}
		j.AddBytes(helpers.QuoteForJSON(source))
	}
	j.AddString("]")

	if len(sm.SourcesContent) > 0 {
		j.AddString(",\n  \"sourcesContent\": [")
		for i, content := range sm.SourcesContent {
			if i != 0 {
				j.AddString(", ")
			}
			j.AddBytes(helpers.QuoteForJSON(content))
		}
		j.AddString("]")
	}

	j.AddString(",\n  \"names\": [],\n  \"mappings\": \"")
	j.AddBytes(encodeMappings(sm.Mappings))
	j.AddString("\"\n}\n")
	return j.Done()
}

func encodeMappings(mappings []Mapping) []byte {
	var buffer []byte
	var prev Mapping
	line := int32(0)
	first := true

	for _, m := range mappings {
		for line < m.GeneratedLine {
			buffer = append(buffer, ';')
			line++
			prev.GeneratedColumn = 0
			first = true
		}
		if !first {
			buffer = append(buffer, ',')
		}
		first = false
		buffer = encodeVLQ(buffer, int(m.GeneratedColumn-prev.GeneratedColumn))
		buffer = encodeVLQ(buffer, int(m.SourceIndex-prev.SourceIndex))
		buffer = encodeVLQ(buffer, int(m.OriginalLine-prev.OriginalLine))
		buffer = encodeVLQ(buffer, int(m.OriginalColumn-prev.OriginalColumn))
		prev = m
	}

	return buffer
}

type jsonSourceMap struct {
	Version        int       `json:"version"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent"`
	Mappings       string    `json:"mappings"`
}

// Decode parses a version 3 source map such as the one written by an
// external compiler. Original names are ignored.
func Decode(data []byte) (*SourceMap, error) {
	var raw jsonSourceMap
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid source map: %w", err)
	}
	if raw.Version != 3 {
		return nil, fmt.Errorf("unsupported source map version %d", raw.Version)
	}

	sm := &SourceMap{Sources: raw.Sources}
	for _, content := range raw.SourcesContent {
		if content != nil {
			sm.SourcesContent = append(sm.SourcesContent, *content)
		} else {
			sm.SourcesContent = append(sm.SourcesContent, "")
		}
	}

	mappings, err := decodeMappings([]byte(raw.Mappings))
	if err != nil {
		return nil, err
	}
	sm.Mappings = mappings
	return sm, nil
}

func decodeMappings(encoded []byte) ([]Mapping, error) {
	var mappings []Mapping
	var state Mapping
	i := 0

	for i < len(encoded) {
		switch encoded[i] {
		case ';':
			state.GeneratedLine++
			state.GeneratedColumn = 0
			i++
			continue
		case ',':
			i++
			continue
		}

		var fields [5]int
		count := 0
		for i < len(encoded) && encoded[i] != ',' && encoded[i] != ';' {
			if count == len(fields) {
				return nil, fmt.Errorf("invalid source map mapping at offset %d", i)
			}
			value, next, ok := DecodeVLQ(encoded, i)
			if !ok {
				return nil, fmt.Errorf("invalid VLQ at offset %d", i)
			}
			fields[count] = value
			count++
			i = next
		}

		state.GeneratedColumn += int32(fields[0])
		switch count {
		case 1:
			// A generated position without an original position
		case 4, 5:
			state.SourceIndex += int32(fields[1])
			state.OriginalLine += int32(fields[2])
			state.OriginalColumn += int32(fields[3])
			mappings = append(mappings, state)
		default:
			return nil, fmt.Errorf("invalid source map segment with %d fields", count)
		}
	}

	sort.SliceStable(mappings, func(a, b int) bool {
		ma, mb := mappings[a], mappings[b]
		return ma.GeneratedLine < mb.GeneratedLine ||
			(ma.GeneratedLine == mb.GeneratedLine && ma.GeneratedColumn < mb.GeneratedColumn)
	})
	return mappings, nil
}
