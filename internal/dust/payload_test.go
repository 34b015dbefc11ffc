package dust

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectShape(t *testing.T) {
	assert.Equal(t, ShapeCreate, SelectShape("", 0))
	assert.Equal(t, ShapeCreate, SelectShape("   ", 0))
	assert.Equal(t, ShapeCreateWithFiles, SelectShape("", 2))
	assert.Equal(t, ShapeAppend, SelectShape("conv", 0))
	assert.Equal(t, ShapeAppendWithFiles, SelectShape("conv", 1))
}

func testMessage() Message {
	email := "ada@example.com"
	return NewMessage("agent-1", "Bonjour", MessageContext{
		Username: "ada",
		Timezone: "Europe/Paris",
		Email:    &email,
	})
}

// decodeBody re-reads a call body as generic JSON.
func decodeBody(t *testing.T, call Call) map[string]any {
	t.Helper()
	raw, err := json.Marshal(call.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestBuildCallCreate(t *testing.T) {
	call := BuildCall(MessageInput{Message: testMessage(), Blocking: true})

	assert.Equal(t, ShapeCreate, call.Shape)
	assert.Equal(t, "/assistant/conversations", call.Path)

	body := decodeBody(t, call)
	assert.Contains(t, body, "title")
	assert.Nil(t, body["title"])
	assert.Equal(t, "unlisted", body["visibility"])
	assert.Equal(t, true, body["blocking"])
	assert.NotContains(t, body, "contentFragments")

	msg := body["message"].(map[string]any)
	assert.Equal(t, "Bonjour", msg["content"])
	assert.Equal(t, []any{map[string]any{"configurationId": "agent-1"}}, msg["mentions"])

	ctx := msg["context"].(map[string]any)
	assert.Equal(t, "ada", ctx["username"])
	assert.Equal(t, "Europe/Paris", ctx["timezone"])
	assert.Equal(t, "ada@example.com", ctx["email"])
	assert.Contains(t, ctx, "fullName")
	assert.Nil(t, ctx["fullName"])
	assert.Equal(t, "api", ctx["origin"])
}

func TestBuildCallCreateWithFiles(t *testing.T) {
	call := BuildCall(MessageInput{
		Message:   testMessage(),
		Fragments: []ContentFragment{{FileID: "f1"}, {FileID: "f2"}},
		Blocking:  true,
	})

	assert.Equal(t, ShapeCreateWithFiles, call.Shape)
	assert.Equal(t, "/assistant/conversations", call.Path)

	body := decodeBody(t, call)
	assert.Equal(t, []any{
		map[string]any{"fileId": "f1"},
		map[string]any{"fileId": "f2"},
	}, body["contentFragments"])
	assert.NotContains(t, body["message"].(map[string]any), "contentFragments")
}

func TestBuildCallAppend(t *testing.T) {
	call := BuildCall(MessageInput{ConversationID: " conv/1 ", Message: testMessage(), Blocking: true})

	assert.Equal(t, ShapeAppend, call.Shape)
	assert.Equal(t, "/assistant/conversations/conv%2F1/messages", call.Path)

	body := decodeBody(t, call)
	assert.NotContains(t, body, "title")
	assert.NotContains(t, body, "visibility")
	assert.NotContains(t, body, "contentFragments")
	assert.Equal(t, true, body["blocking"])
}

func TestBuildCallAppendWithFiles(t *testing.T) {
	call := BuildCall(MessageInput{
		ConversationID: "conv",
		Message:        testMessage(),
		Fragments:      []ContentFragment{{FileID: "f1"}},
	})

	assert.Equal(t, ShapeAppendWithFiles, call.Shape)

	body := decodeBody(t, call)
	assert.Equal(t, []any{map[string]any{"fileId": "f1"}}, body["contentFragments"])
	assert.NotContains(t, body["message"].(map[string]any), "contentFragments")
	assert.Equal(t, false, body["blocking"])
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "append_with_files", ShapeAppendWithFiles.String())
	assert.Equal(t, "unknown", Shape(99).String())
	assert.True(t, ShapeAppend.Appends())
	assert.False(t, ShapeCreateWithFiles.Appends())
	assert.True(t, ShapeCreateWithFiles.HasFiles())
	assert.False(t, ShapeAppend.HasFiles())
}
