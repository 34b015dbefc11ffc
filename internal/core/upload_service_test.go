package core

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nara.app/nara-gateway/internal/dust"
)

// stubUploader returns a canned response and records what it was given.
type stubUploader struct {
	body []byte
	err  error
	got  dust.FileUpload
	mode dust.UploadMode
	n    int
}

func (s *stubUploader) UploadFile(_ context.Context, mode dust.UploadMode, f dust.FileUpload) ([]byte, error) {
	s.n++
	s.got, s.mode = f, mode
	return s.body, s.err
}

func TestUploadDecodesWithAndWithoutDataURI(t *testing.T) {
	for _, encoded := range []string{"JVBERi0xLjQ=", "data:application/pdf;base64,JVBERi0xLjQ=", "JVBERi0xLjQ"} {
		up := &stubUploader{body: []byte(`{"file":{"sId":"fil_1","fileName":"a.pdf"}}`)}
		svc := NewUploadService(up, "", nil)

		resp, err := svc.Upload(context.Background(), UploadRequest{FileName: "a.pdf", FileBase64: encoded})
		require.NoError(t, err, encoded)
		assert.Equal(t, "fil_1", resp.FileID)
		assert.JSONEq(t, `{"sId":"fil_1","fileName":"a.pdf"}`, string(resp.File))

		assert.Equal(t, "%PDF-1.4", string(up.got.Data), encoded)
		assert.Equal(t, DefaultFileType, up.got.ContentType)
		assert.Equal(t, dust.UploadMultipart, up.mode)
	}
}

func TestUploadValidation(t *testing.T) {
	up := &stubUploader{}
	svc := NewUploadService(up, dust.UploadJSON, nil)

	_, err := svc.Upload(context.Background(), UploadRequest{FileBase64: "aGk="})
	svcErr := requireKind(t, err, KindInvalidRequest)
	assert.Equal(t, "fileName is required", svcErr.Message)

	_, err = svc.Upload(context.Background(), UploadRequest{})
	svcErr = requireKind(t, err, KindInvalidRequest)
	assert.Equal(t, "fileName and fileBase64 are required", svcErr.Message)

	_, err = svc.Upload(context.Background(), UploadRequest{FileName: "a", FileBase64: "***"})
	requireKind(t, err, KindInvalidRequest)

	assert.Zero(t, up.n)
}

func TestUploadMissingFileID(t *testing.T) {
	svc := NewUploadService(&stubUploader{body: []byte(`{"file":{"name":"x"}}`)}, "", nil)

	_, err := svc.Upload(context.Background(), UploadRequest{FileName: "a", FileBase64: "aGk="})
	svcErr := requireKind(t, err, KindInternal)
	assert.ErrorIs(t, svcErr, dust.ErrFileIDMissing)
	assert.Equal(t, http.StatusInternalServerError, svcErr.HTTPStatus())
}

func TestUploadMirrorsUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		io.WriteString(w, `{"error":{"message":"file too large"}}`)
	}))
	defer srv.Close()

	client := dust.NewClient(dust.ClientConfig{BaseURL: srv.URL, WorkspaceID: "ws", APIKey: "k", HTTPClient: srv.Client()})
	svc := NewUploadService(client, dust.UploadMultipart, nil)

	_, err := svc.Upload(context.Background(), UploadRequest{FileName: "big.pdf", FileType: "application/pdf", FileBase64: "aGk="})
	svcErr := requireKind(t, err, KindUpstream)
	assert.Equal(t, http.StatusRequestEntityTooLarge, svcErr.HTTPStatus())
	assert.Equal(t, "file too large", svcErr.Message)
}
