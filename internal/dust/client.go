// Package dust talks to the Dust agent platform: it builds conversation and
// message payloads, issues the calls, and turns blocking responses and
// event streams into answer text.
package dust

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"nara.app/nara-gateway/internal/metrics"
)

const (
	DefaultBaseURL = "https://eu.dust.tt/api/v1"

	// maxErrorBody bounds how much of a failed response is read.
	maxErrorBody = 1 << 20
)

// Client calls one workspace of the agent platform.
type Client struct {
	baseURL     string
	workspaceID string
	apiKey      string
	httpClient  *http.Client
	logger      *slog.Logger
}

type ClientConfig struct {
	BaseURL     string
	WorkspaceID string
	APIKey      string
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = NewHTTPClient()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		workspaceID: cfg.WorkspaceID,
		apiKey:      cfg.APIKey,
		httpClient:  cfg.HTTPClient,
		logger:      cfg.Logger,
	}
}

// Send issues a conversation-creation or message-posting call and decodes
// the conversation it returns. For a non-blocking message post the returned
// conversation only carries the identifier.
func (c *Client) Send(ctx context.Context, call Call) (*Conversation, error) {
	payload, err := json.Marshal(call.Body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", call.Shape, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(call.Path), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending agent call", "shape", call.Shape.String(), "path", call.Path, "bytes", len(payload))

	resp, err := c.do(req, "conversation_"+call.Shape.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope conversationEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if envelope.Conversation == nil {
		// Non-blocking message posts only acknowledge the message.
		if call.Shape.Appends() && !call.Blocking {
			return &Conversation{SID: call.ConversationID}, nil
		}
		return nil, fmt.Errorf("%w: missing conversation", ErrInvalidResponse)
	}
	return envelope.Conversation, nil
}

// StreamEvents opens the event stream of a conversation. The caller owns the
// returned body and must close it; cancelling ctx aborts the read.
func (c *Client) StreamEvents(ctx context.Context, conversationID string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(conversationPath(conversationID)+"/events"), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.do(req, "conversation_events")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// UploadFile relays a file to the workspace and returns the raw response
// body, from which ExtractFileID reads the identifier.
func (c *Client) UploadFile(ctx context.Context, mode UploadMode, f FileUpload) ([]byte, error) {
	var (
		body        bytes.Buffer
		contentType string
	)

	switch mode {
	case UploadJSON:
		err := json.NewEncoder(&body).Encode(jsonUploadBody{
			FileName:    f.FileName,
			ContentType: f.ContentType,
			FileSize:    len(f.Data),
			UseCase:     uploadUseCase,
			Content:     f.Base64,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal upload: %w", err)
		}
		contentType = "application/json"

	default:
		mw := multipart.NewWriter(&body)
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(f.FileName)))
		header.Set("Content-Type", f.ContentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("create form part: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("write form part: %w", err)
		}
		if err := mw.Close(); err != nil {
			return nil, fmt.Errorf("close form: %w", err)
		}
		contentType = mw.FormDataContentType()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/files"), &body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(req, "file_upload")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}
	return data, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// do authenticates and sends req. Non-2xx responses are consumed and
// returned as *APIError.
func (c *Client) do(req *http.Request, operation string) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstream(operation, 0, time.Since(start))
		return nil, fmt.Errorf("dust %s: %w", operation, err)
	}
	metrics.ObserveUpstream(operation, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := newAPIError(resp.StatusCode, body)
		c.logger.Warn("agent platform returned an error",
			"operation", operation,
			"status", resp.StatusCode,
			"message", apiErr.Message,
		)
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) url(path string) string {
	return c.baseURL + "/w/" + url.PathEscape(c.workspaceID) + path
}
