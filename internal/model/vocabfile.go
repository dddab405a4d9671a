package model

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// FormatTag identifies the canonical vocab file shape. Every write emits it.
const FormatTag = "vocab/v2"

// FormatVersion tells which on-disk shape a vocab file was decoded from.
type FormatVersion int

const (
	// FormatBareArray is the oldest shape: a JSON array of items.
	FormatBareArray FormatVersion = iota
	// FormatWrapped is {metadata, content} without a format tag.
	FormatWrapped
	// FormatTagged is the canonical {format, metadata, content} shape.
	FormatTagged
)

func (v FormatVersion) String() string {
	switch v {
	case FormatBareArray:
		return "bare-array"
	case FormatWrapped:
		return "wrapped"
	case FormatTagged:
		return FormatTag
	default:
		return "unknown"
	}
}

// VocabFile is the canonical content of a course's vocab file.
// Metadata is carried through verbatim so upgrades never drop it.
type VocabFile struct {
	Format   string          `json:"format"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Content  []VocabItem     `json:"content"`
}

// DecodeVocabFile parses any of the supported shapes. The shape is decided
// once from the leading byte: '[' is a bare array, '{' a wrapper whose format
// tag, if present, must be FormatTag.
func DecodeVocabFile(data []byte) (*VocabFile, FormatVersion, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, 0, fmt.Errorf("empty vocab file")
	}

	switch trimmed[0] {
	case '[':
		var items []VocabItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, 0, fmt.Errorf("decoding vocab array: %w", err)
		}
		return &VocabFile{Format: FormatTag, Content: normalized(items)}, FormatBareArray, nil
	case '{':
		var f VocabFile
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return nil, 0, fmt.Errorf("decoding vocab file: %w", err)
		}
		version := FormatTagged
		switch f.Format {
		case "":
			version = FormatWrapped
		case FormatTag:
		default:
			return nil, 0, fmt.Errorf("unsupported vocab format %q", f.Format)
		}
		f.Format = FormatTag
		f.Content = normalized(f.Content)
		return &f, version, nil
	default:
		return nil, 0, fmt.Errorf("vocab file is neither an array nor an object")
	}
}

// EncodeVocabFile always writes the canonical tagged shape.
func EncodeVocabFile(f *VocabFile) ([]byte, error) {
	out := VocabFile{
		Format:   FormatTag,
		Metadata: f.Metadata,
		Content:  nonNil(f.Content),
	}
	data, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("encoding vocab file: %w", err)
	}
	return data, nil
}

// normalized fills unset slots of decoded items with StateNone. Items
// stored without a states key decode to the zero array.
func normalized(items []VocabItem) []VocabItem {
	items = nonNil(items)
	for i := range items {
		items[i].States.Normalize()
	}
	return items
}

func nonNil(items []VocabItem) []VocabItem {
	if items == nil {
		return []VocabItem{}
	}
	return items
}
