package core

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contractIDPattern = regexp.MustCompile(`^contract_\d+_[0-9a-f]{8}$`)

func newTestContractService(t *testing.T, handler http.HandlerFunc) *ContractService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc := NewContractService(srv.URL+"/webhook/pdf-to-dust", srv.Client(), nil)
	svc.now = func() time.Time { return time.UnixMilli(1735689600000) }
	return svc
}

func TestNewContractID(t *testing.T) {
	id := newContractID(time.UnixMilli(1700000000123))
	assert.Regexp(t, contractIDPattern, id)
	assert.Contains(t, id, "contract_1700000000123_")
	assert.NotEqual(t, id, newContractID(time.UnixMilli(1700000000123)))
}

func TestContractSubmitForwardsToWebhook(t *testing.T) {
	var got webhookPayload
	svc := newTestContractService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webhook/pdf-to-dust", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"received": true}`)
	})

	receipt, err := svc.Submit(context.Background(), ContractRequest{
		FileName:   "bail.pdf",
		FileBase64: "data:application/pdf;base64,JVBERg==",
	})
	require.NoError(t, err)

	assert.True(t, receipt.Success)
	assert.Regexp(t, contractIDPattern, receipt.ContractID)
	assert.Equal(t, "bail.pdf", receipt.FileName)
	assert.Equal(t, "processing", receipt.Status)
	assert.NotEmpty(t, receipt.Message)
	assert.Equal(t, map[string]any{"received": true}, receipt.WorkflowResponse)

	assert.Equal(t, receipt.ContractID, got.ContractID)
	assert.Equal(t, "JVBERg==", got.FileBase64)
	assert.Equal(t, DefaultFileType, got.FileType)
	assert.Equal(t, "2025-01-01T00:00:00Z", got.Timestamp)
}

func TestContractSubmitNonJSONWebhookAnswer(t *testing.T) {
	svc := newTestContractService(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "Workflow was started")
	})

	receipt, err := svc.Submit(context.Background(), ContractRequest{FileName: "a.pdf", FileBase64: "JVBERg=="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"message": webhookDefaultAck}, receipt.WorkflowResponse)
}

func TestContractSubmitEmptyWebhookAnswer(t *testing.T) {
	svc := newTestContractService(t, func(w http.ResponseWriter, r *http.Request) {})

	receipt, err := svc.Submit(context.Background(), ContractRequest{FileName: "a.pdf", FileBase64: "JVBERg=="})
	require.NoError(t, err)
	assert.Nil(t, receipt.WorkflowResponse)
}

func TestContractSubmitWebhookFailure(t *testing.T) {
	svc := newTestContractService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "webhook not registered")
	})

	_, err := svc.Submit(context.Background(), ContractRequest{FileName: "a.pdf", FileBase64: "JVBERg=="})
	svcErr := requireKind(t, err, KindUpstream)
	assert.Equal(t, http.StatusBadGateway, svcErr.HTTPStatus())
	assert.Equal(t, "webhook not registered", svcErr.Details)
}

func TestContractSubmitValidation(t *testing.T) {
	calls := 0
	svc := newTestContractService(t, func(w http.ResponseWriter, r *http.Request) { calls++ })

	_, err := svc.Submit(context.Background(), ContractRequest{FileName: "a.pdf"})
	requireKind(t, err, KindInvalidRequest)

	_, err = svc.Submit(context.Background(), ContractRequest{FileName: "a.pdf", FileBase64: "%%%"})
	requireKind(t, err, KindInvalidRequest)

	assert.Zero(t, calls)
}

func TestContractSubmitUnconfigured(t *testing.T) {
	svc := NewContractService("  ", nil, nil)
	assert.False(t, svc.Enabled())

	_, err := svc.Submit(context.Background(), ContractRequest{FileName: "a.pdf", FileBase64: "JVBERg=="})
	svcErr := requireKind(t, err, KindUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, svcErr.HTTPStatus())
}
