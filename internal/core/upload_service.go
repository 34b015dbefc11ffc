package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"nara.app/nara-gateway/internal/dust"
)

const DefaultFileType = "application/pdf"

// FileUploader is the part of the Dust client the upload relay needs.
type FileUploader interface {
	UploadFile(ctx context.Context, mode dust.UploadMode, f dust.FileUpload) ([]byte, error)
}

type UploadRequest struct {
	FileName   string `json:"fileName" validate:"required"`
	FileType   string `json:"fileType"`
	FileBase64 string `json:"fileBase64" validate:"required"`
}

type UploadResponse struct {
	FileID string          `json:"fileId"`
	File   json.RawMessage `json:"file,omitempty"`
}

// UploadService relays base64 files to the agent platform so they can be
// attached to chat messages.
type UploadService struct {
	uploader FileUploader
	mode     dust.UploadMode
	logger   *slog.Logger
}

func NewUploadService(uploader FileUploader, mode dust.UploadMode, logger *slog.Logger) *UploadService {
	if mode == "" {
		mode = dust.UploadMultipart
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadService{uploader: uploader, mode: mode, logger: logger}
}

func (s *UploadService) Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
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

	body, err := s.uploader.UploadFile(ctx, s.mode, dust.FileUpload{
		FileName:    req.FileName,
		ContentType: req.FileType,
		Data:        data,
		Base64:      payload,
	})
	if err != nil {
		return nil, AsError(err)
	}

	fileID, err := dust.ExtractFileID(body)
	if err != nil {
		s.logger.Error("upload response without file id", "body", truncate(string(body), 500))
		return nil, Internal("upload response did not contain a file id", err)
	}

	s.logger.Info("file uploaded", "file_id", fileID, "file_name", req.FileName, "bytes", len(data), "mode", string(s.mode))
	return &UploadResponse{FileID: fileID, File: dust.FileObject(body)}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
