package lnurl

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Recognized metadata mime types.
//
// LUD-16: "text/identifier", "text/email".
// LUD-20: "text/long-desc".
var validMetadataMimes = map[string]struct{}{
	"text/plain":        {},
	"image/png;base64":  {},
	"image/jpeg;base64": {},
	"text/identifier":   {},
	"text/email":        {},
	"text/long-desc":    {},
}

// MetadataEntry is one (mime type, value) pair of a pay metadata array. On
// the wire each entry is a two element JSON array.
type MetadataEntry struct {
	Mime  string
	Value string
}

// MarshalJSON encodes the entry as a ["mime", "value"] pair.
func (e MetadataEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.Mime, e.Value})
}

// UnmarshalJSON decodes a ["mime", "value"] pair, rejecting anything that
// is not exactly two strings.
func (e *MetadataEntry) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("metadata entry must be a [mime, value] "+
			"pair, got %d elements", len(pair))
	}
	e.Mime, e.Value = pair[0], pair[1]
	return nil
}

// PayMetadata is the ordered metadata array a pay response commits to. The
// exact raw JSON string is kept because its sha256 digest must match the
// description hash of the invoice issued later (LUD-06), so the bytes can
// never be re-serialized. Unrecognized mime types are retained but do not
// count towards the shape requirements.
type PayMetadata struct {
	raw     string
	entries []MetadataEntry
}

// ParsePayMetadata validates the raw metadata JSON string. The array must
// hold at least one recognized entry, at most one text/plain entry, and at
// least one of text/plain or text/long-desc.
func ParsePayMetadata(raw string) (*PayMetadata, error) {
	var entries []MetadataEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	var recognized, textPlain, longDesc int
	for _, entry := range entries {
		if _, ok := validMetadataMimes[entry.Mime]; !ok {
			continue
		}
		recognized++

		switch entry.Mime {
		case "text/plain":
			textPlain++
		case "text/long-desc":
			longDesc++
		}
	}

	switch {
	case recognized == 0:
		return nil, fmt.Errorf("%w: no recognized mime types",
			ErrInvalidMetadata)

	case textPlain == 0 && longDesc == 0:
		return nil, fmt.Errorf("%w: a text/plain or text/long-desc "+
			"entry is required", ErrInvalidMetadata)

	case textPlain > 1:
		return nil, fmt.Errorf("%w: more than one text/plain entry",
			ErrInvalidMetadata)
	}

	return &PayMetadata{raw: raw, entries: entries}, nil
}

// String returns the exact raw JSON string.
func (m *PayMetadata) String() string {
	return m.raw
}

// Hash returns the hex encoded sha256 digest of the raw metadata string.
// A pay invoice's description hash must equal this value.
func (m *PayMetadata) Hash() string {
	digest := sha256.Sum256([]byte(m.raw))
	return hex.EncodeToString(digest[:])
}

// Entries returns every entry of the array, recognized or not, in wire
// order.
func (m *PayMetadata) Entries() []MetadataEntry {
	entries := make([]MetadataEntry, len(m.entries))
	copy(entries, m.entries)
	return entries
}

// Text returns the value of the text/plain entry, or an empty string when
// the metadata only carries a long description.
func (m *PayMetadata) Text() string {
	for _, entry := range m.entries {
		if entry.Mime == "text/plain" {
			return entry.Value
		}
	}
	return ""
}

// LongDesc returns the value of the first text/long-desc entry, if any.
func (m *PayMetadata) LongDesc() string {
	for _, entry := range m.entries {
		if entry.Mime == "text/long-desc" {
			return entry.Value
		}
	}
	return ""
}

// Images returns the recognized image entries.
func (m *PayMetadata) Images() []MetadataEntry {
	var images []MetadataEntry
	for _, entry := range m.entries {
		if _, ok := validMetadataMimes[entry.Mime]; !ok {
			continue
		}
		if strings.HasPrefix(entry.Mime, "image/") {
			images = append(images, entry)
		}
	}
	return images
}

// MarshalJSON encodes the metadata as its raw string, preserving the exact
// committed bytes.
func (m PayMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.raw)
}

// UnmarshalJSON decodes and validates metadata from a JSON string.
func (m *PayMetadata) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParsePayMetadata(raw)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}
