package dust

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		BaseURL:     srv.URL + "/api/v1/",
		WorkspaceID: "ws1",
		APIKey:      "secret",
		HTTPClient:  srv.Client(),
	})
}

func TestClientSendCreatesConversation(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/w/ws1/assistant/conversations", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"conversation": {"sId": "conv1", "content": [[{"type": "agent_message", "content": "Salut"}]]}}`)
	})

	call := BuildCall(MessageInput{
		Message:   NewMessage("agent", "hi", MessageContext{Username: "u", Timezone: "UTC"}),
		Fragments: []ContentFragment{{FileID: "f1"}},
		Blocking:  true,
	})
	conv, err := client.Send(context.Background(), call)
	require.NoError(t, err)

	assert.Equal(t, "conv1", conv.SID)
	text, _ := conv.LatestAgentReply()
	assert.Equal(t, "Salut", text)
	assert.Equal(t, []any{map[string]any{"fileId": "f1"}}, gotBody["contentFragments"])
}

func TestClientSendUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error": {"type": "workspace_auth_error", "message": "not allowed"}}`)
	})

	_, err := client.Send(context.Background(), BuildCall(MessageInput{ConversationID: "c1"}))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "not allowed", apiErr.Message)
}

func TestClientSendInvalidResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"unexpected": true}`)
	})

	_, err := client.Send(context.Background(), BuildCall(MessageInput{}))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestClientStreamEvents(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/w/ws1/assistant/conversations/conv1/events", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, frames(`{"type":"agent_message_success","message":{"content":"streamed"}}`))
	})

	body, err := client.StreamEvents(context.Background(), "conv1")
	require.NoError(t, err)
	defer body.Close()

	got, err := AggregateStream(context.Background(), body, nil)
	require.NoError(t, err)
	assert.Equal(t, "streamed", got)
}

func TestClientUploadMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/w/ws1/files", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, `rapport "final".pdf`, header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF", string(data))

		io.WriteString(w, `{"file": {"sId": "fil_9"}}`)
	})

	body, err := client.UploadFile(context.Background(), UploadMultipart, FileUpload{
		FileName:    `rapport "final".pdf`,
		ContentType: "application/pdf",
		Data:        []byte("%PDF"),
		Base64:      "JVBERg==",
	})
	require.NoError(t, err)

	id, err := ExtractFileID(body)
	require.NoError(t, err)
	assert.Equal(t, "fil_9", id)
}

func TestClientUploadJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "a.txt", got["fileName"])
		assert.Equal(t, "text/plain", got["contentType"])
		assert.Equal(t, float64(2), got["fileSize"])
		assert.Equal(t, "conversation", got["useCase"])
		assert.Equal(t, "aGk=", got["content"])

		io.WriteString(w, `{"id": "fil_json"}`)
	})

	body, err := client.UploadFile(context.Background(), UploadJSON, FileUpload{
		FileName:    "a.txt",
		ContentType: "text/plain",
		Data:        []byte("hi"),
		Base64:      "aGk=",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "fil_json"}`, string(body))
}

func TestClientSendNonBlockingAppend(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/w/ws1/assistant/conversations/conv7/messages", r.URL.Path)
		io.WriteString(w, `{"message": {"sId": "msg1", "type": "user_message"}}`)
	})

	conv, err := client.Send(context.Background(), BuildCall(MessageInput{ConversationID: "conv7"}))
	require.NoError(t, err)
	assert.Equal(t, "conv7", conv.SID)
	assert.Empty(t, conv.Content)

	_, err = client.Send(context.Background(), BuildCall(MessageInput{ConversationID: "conv7", Blocking: true}))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}
