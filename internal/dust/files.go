package dust

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// UploadMode selects the file-ingestion contract used by UploadFile.
type UploadMode string

const (
	// UploadMultipart sends the decoded bytes as a multipart "file" field.
	UploadMultipart UploadMode = "multipart"
	// UploadJSON sends the base64 payload inside a JSON body.
	UploadJSON UploadMode = "json"

	uploadUseCase = "conversation"
)

// ParseUploadMode validates a configured upload mode. Empty means multipart.
func ParseUploadMode(s string) (UploadMode, error) {
	switch UploadMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", UploadMultipart:
		return UploadMultipart, nil
	case UploadJSON:
		return UploadJSON, nil
	}
	return "", fmt.Errorf("unknown upload mode %q (want %q or %q)", s, UploadMultipart, UploadJSON)
}

// FileUpload is a decoded file ready to be relayed upstream.
type FileUpload struct {
	FileName    string
	ContentType string
	Data        []byte
	// Base64 is the encoded payload without any data-URI prefix.
	Base64 string
}

type jsonUploadBody struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	FileSize    int    `json:"fileSize"`
	UseCase     string `json:"useCase"`
	Content     string `json:"content"`
}

// ExtractFileID finds the file identifier in an upload response. It looks at
// file.id, file.sId and id in that order; a value that is itself an object is
// searched one level deeper.
func ExtractFileID(body []byte) (string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFileIDMissing, err)
	}

	var candidates []json.RawMessage
	var file map[string]json.RawMessage
	if raw, ok := top["file"]; ok && json.Unmarshal(raw, &file) == nil {
		candidates = append(candidates, file["id"], file["sId"])
	}
	candidates = append(candidates, top["id"])

	for _, raw := range candidates {
		if id := fileIDFrom(raw, true); id != "" {
			return id, nil
		}
	}
	return "", ErrFileIDMissing
}

func fileIDFrom(raw json.RawMessage, descend bool) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '{' && descend {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err != nil {
			return ""
		}
		for _, key := range fileRefKeys {
			if id := fileIDFrom(nested[key], false); id != "" {
				return id
			}
		}
		return ""
	}
	return strings.TrimSpace(stringOf(raw))
}

// FileObject returns the "file" object of an upload response, if any.
func FileObject(body []byte) json.RawMessage {
	var envelope struct {
		File json.RawMessage `json:"file"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	return envelope.File
}
