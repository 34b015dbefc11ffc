package dust

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFileRef(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"bare string", `"fil_123"`, "fil_123", false},
		{"trimmed string", `"  fil_123 "`, "fil_123", false},
		{"id field", `{"id": "a"}`, "a", false},
		{"sId field", `{"sId": "b"}`, "b", false},
		{"fileId field", `{"fileId": "c"}`, "c", false},
		{"id wins over sId", `{"sId": "b", "id": "a"}`, "a", false},
		{"null id falls through", `{"id": null, "sId": "b"}`, "b", false},
		{"empty string", `"   "`, "", true},
		{"number", `12`, "", true},
		{"numeric id", `{"id": 12}`, "", true},
		{"object without id", `{"name": "x"}`, "", true},
		{"null", `null`, "", true},
		{"list", `["a"]`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeFileRef(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFileRef)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.FileID)
		})
	}
}

func TestNormalizeFileRefIsIdempotent(t *testing.T) {
	first, err := NormalizeFileRef(json.RawMessage(`{"fileId": "abc"}`))
	require.NoError(t, err)
	assert.Equal(t, ContentFragment{FileID: "abc"}, first)

	encoded, err := json.Marshal(first)
	require.NoError(t, err)
	second, err := NormalizeFileRef(encoded)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNormalizeFragments(t *testing.T) {
	refs := []json.RawMessage{
		json.RawMessage(`"one"`),
		json.RawMessage(`{"sId": "two"}`),
	}
	got, err := NormalizeFragments(refs)
	require.NoError(t, err)
	assert.Equal(t, []ContentFragment{{FileID: "one"}, {FileID: "two"}}, got)

	none, err := NormalizeFragments(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestNormalizeFragmentsRejectsWholeList(t *testing.T) {
	refs := []json.RawMessage{
		json.RawMessage(`"one"`),
		json.RawMessage(`""`),
	}
	got, err := NormalizeFragments(refs)
	assert.ErrorIs(t, err, ErrInvalidFileRef)
	assert.Contains(t, err.Error(), "fileIds[1]")
	assert.Nil(t, got)
}
