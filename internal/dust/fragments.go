package dust

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFileRef is returned when an attachment reference cannot be
// turned into a non-empty file identifier.
var ErrInvalidFileRef = errors.New("invalid file reference")

// fileRefKeys are the object fields accepted as a file identifier, in order.
var fileRefKeys = []string{"id", "sId", "fileId"}

// ContentFragment attaches an uploaded file to a message.
type ContentFragment struct {
	FileID string `json:"fileId"`
}

// NormalizeFileRef accepts a bare identifier string or an object carrying
// id, sId or fileId, and returns the trimmed identifier as a fragment.
func NormalizeFileRef(raw json.RawMessage) (ContentFragment, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ContentFragment{}, ErrInvalidFileRef
	}

	var id string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &id); err != nil {
			return ContentFragment{}, fmt.Errorf("%w: %v", ErrInvalidFileRef, err)
		}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return ContentFragment{}, fmt.Errorf("%w: %v", ErrInvalidFileRef, err)
		}
		value, ok := firstPresent(fields, fileRefKeys)
		if !ok || json.Unmarshal(value, &id) != nil {
			return ContentFragment{}, ErrInvalidFileRef
		}
	default:
		return ContentFragment{}, ErrInvalidFileRef
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return ContentFragment{}, ErrInvalidFileRef
	}
	return ContentFragment{FileID: id}, nil
}

// NormalizeFragments normalizes every reference; one bad reference rejects
// the whole list.
func NormalizeFragments(refs []json.RawMessage) ([]ContentFragment, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	fragments := make([]ContentFragment, 0, len(refs))
	for i, ref := range refs {
		fragment, err := NormalizeFileRef(ref)
		if err != nil {
			return nil, fmt.Errorf("fileIds[%d]: %w", i, err)
		}
		fragments = append(fragments, fragment)
	}
	return fragments, nil
}

// firstPresent returns the first non-null value among keys.
func firstPresent(fields map[string]json.RawMessage, keys []string) (json.RawMessage, bool) {
	for _, key := range keys {
		value := bytes.TrimSpace(fields[key])
		if len(value) == 0 || bytes.Equal(value, []byte("null")) {
			continue
		}
		return value, true
	}
	return nil, false
}
