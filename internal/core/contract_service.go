package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"nara.app/nara-gateway/internal/metrics"
)

const (
	contractStatusProcessing = "processing"
	contractAcceptedMessage  = "Contrat envoyé au workflow, en cours de traitement..."
	webhookDefaultAck        = "PDF envoyé au workflow avec succès"

	maxWebhookBody = 1 << 20
)

type ContractRequest struct {
	FileName   string `json:"fileName" validate:"required"`
	FileType   string `json:"fileType"`
	FileBase64 string `json:"fileBase64" validate:"required"`
}

// ContractReceipt acknowledges a contract handed to the workflow. The
// workflow processes it asynchronously and writes the summary to the
// contract_summaries table.
type ContractReceipt struct {
	Success          bool   `json:"success"`
	ContractID       string `json:"contractId"`
	FileName         string `json:"fileName"`
	Status           string `json:"status"`
	Message          string `json:"message"`
	WorkflowResponse any    `json:"workflowResponse"`
}

type webhookPayload struct {
	ContractID string `json:"contractId"`
	FileName   string `json:"fileName"`
	FileType   string `json:"fileType"`
	FileBase64 string `json:"fileBase64"`
	Timestamp  string `json:"timestamp"`
}

// ContractService forwards contract PDFs to the analysis workflow webhook.
type ContractService struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func NewContractService(webhookURL string, httpClient *http.Client, logger *slog.Logger) *ContractService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContractService{
		webhookURL: strings.TrimSpace(webhookURL),
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// Enabled reports whether a webhook is configured.
func (s *ContractService) Enabled() bool {
	return s.webhookURL != ""
}

func (s *ContractService) Submit(ctx context.Context, req ContractRequest) (*ContractReceipt, error) {
	if !s.Enabled() {
		return nil, Unavailable("contract intake is not configured")
	}

	req.FileName = strings.TrimSpace(req.FileName)
	req.FileType = strings.TrimSpace(req.FileType)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.FileType == "" {
		req.FileType = DefaultFileType
	}

	payload, data, err := decodeBase64(req.FileBase64)
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Message: "fileBase64 is not valid base64", Err: err}
	}

	now := s.now()
	contractID := newContractID(now)
	s.logger.Info("contract received", "contract_id", contractID, "file_name", req.FileName, "bytes", len(data))

	body, err := json.Marshal(webhookPayload{
		ContractID: contractID,
		FileName:   req.FileName,
		FileType:   req.FileType,
		FileBase64: payload,
		Timestamp:  now.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, Internal("encode webhook payload", err)
	}

	workflowResp, err := s.post(ctx, body)
	if err != nil {
		return nil, err
	}

	return &ContractReceipt{
		Success:          true,
		ContractID:       contractID,
		FileName:         req.FileName,
		Status:           contractStatusProcessing,
		Message:          contractAcceptedMessage,
		WorkflowResponse: workflowResp,
	}, nil
}

// post sends the payload to the webhook and returns its decoded answer. A
// body that is not JSON is replaced by a default acknowledgement; an empty
// one yields nil.
func (s *ContractService) post(ctx context.Context, body []byte) (any, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, Internal("create webhook request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		metrics.ObserveUpstream("contract_webhook", 0, time.Since(start))
		return nil, Upstream(http.StatusBadGateway, "contract workflow unreachable", nil, err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstream("contract_webhook", resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxWebhookBody))
	if err != nil {
		return nil, Upstream(http.StatusBadGateway, "read contract workflow response", nil, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("contract workflow rejected the payload", "status", resp.StatusCode, "body", truncate(string(raw), 500))
		return nil, Upstream(http.StatusBadGateway, "contract workflow returned an error",
			string(raw), fmt.Errorf("webhook status %d", resp.StatusCode))
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return map[string]string{"message": webhookDefaultAck}, nil
	}
	return decoded, nil
}

// newContractID returns contract_<unix ms>_<8 hex chars>.
func newContractID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("contract_%d_%s", now.UnixMilli(), suffix)
}
