package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"nara.app/nara-gateway/internal/dust"
)

const (
	DefaultUsername         = "Utilisateur"
	DefaultAttachmentPrompt = "Analyse ce document"
)

// AgentPlatform is the part of the Dust client the agent gateway needs.
type AgentPlatform interface {
	Send(ctx context.Context, call dust.Call) (*dust.Conversation, error)
	StreamEvents(ctx context.Context, conversationID string) (io.ReadCloser, error)
}

// ChatRequest is the inbound chat body shared by every agent route.
type ChatRequest struct {
	Message        string            `json:"message"`
	Username       string            `json:"username"`
	Email          string            `json:"email"`
	FullName       string            `json:"fullName"`
	FileIDs        []json.RawMessage `json:"fileIds"`
	ConversationID string            `json:"conversationId"`
	Stream         bool              `json:"stream"`
}

type ChatResponse struct {
	Message        string            `json:"message"`
	ConversationID string            `json:"conversationId"`
	Actions        []json.RawMessage `json:"actions,omitempty"`
}

// AgentService relays chat messages to the agents configured for this
// deployment. Agents are addressed by name; the name maps to an upstream
// agent configuration id.
type AgentService struct {
	platform         AgentPlatform
	agents           map[string]string
	timezone         string
	attachmentPrompt string
	logger           *slog.Logger
}

type AgentServiceConfig struct {
	Agents           map[string]string
	Timezone         string
	AttachmentPrompt string
}

func NewAgentService(platform AgentPlatform, cfg AgentServiceConfig, logger *slog.Logger) *AgentService {
	if cfg.AttachmentPrompt == "" {
		cfg.AttachmentPrompt = DefaultAttachmentPrompt
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentService{
		platform:         platform,
		agents:           cfg.Agents,
		timezone:         cfg.Timezone,
		attachmentPrompt: cfg.AttachmentPrompt,
		logger:           logger,
	}
}

// HasAgent reports whether name is a configured agent.
func (s *AgentService) HasAgent(name string) bool {
	_, ok := s.agents[name]
	return ok
}

// Chat validates req, sends it to the named agent and returns the agent's
// answer. All validation happens before any upstream call.
func (s *AgentService) Chat(ctx context.Context, agent string, req ChatRequest) (*ChatResponse, error) {
	agentID, ok := s.agents[agent]
	if !ok {
		return nil, NotFound(fmt.Sprintf("agent %q not found", agent))
	}

	content := strings.TrimSpace(req.Message)
	if content == "" && len(req.FileIDs) == 0 {
		return nil, InvalidRequest("message is required when no file is attached")
	}

	fragments, err := dust.NormalizeFragments(req.FileIDs)
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Message: "invalid fileIds", Err: err}
	}
	if content == "" {
		content = s.attachmentPrompt
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = DefaultUsername
	}

	call := dust.BuildCall(dust.MessageInput{
		ConversationID: req.ConversationID,
		Message: dust.NewMessage(agentID, content, dust.MessageContext{
			Username: username,
			Timezone: s.timezone,
			Email:    optional(req.Email),
			FullName: optional(req.FullName),
		}),
		Fragments: fragments,
		Blocking:  !req.Stream,
	})

	s.logger.Info("sending chat message",
		"agent", agent,
		"shape", call.Shape.String(),
		"fragments", len(fragments),
		"stream", req.Stream,
	)

	conv, err := s.platform.Send(ctx, call)
	if err != nil {
		return nil, AsError(err)
	}

	if req.Stream {
		return s.streamAnswer(ctx, conv.SID)
	}

	text, actions := conv.LatestAgentReply()
	return &ChatResponse{
		Message:        text,
		ConversationID: conv.SID,
		Actions:        actions,
	}, nil
}

// streamAnswer reads the conversation's event stream until the agent's
// answer is complete, then drops the connection.
func (s *AgentService) streamAnswer(ctx context.Context, conversationID string) (*ChatResponse, error) {
	if conversationID == "" {
		return nil, AsError(fmt.Errorf("%w: missing conversation id", dust.ErrInvalidResponse))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	body, err := s.platform.StreamEvents(ctx, conversationID)
	if err != nil {
		return nil, AsError(err)
	}
	defer body.Close()

	answer, err := dust.AggregateStream(ctx, body, s.logger)
	if err != nil {
		return nil, AsError(err)
	}
	return &ChatResponse{Message: answer, ConversationID: conversationID}, nil
}

// optional maps a blank string to nil so it is sent as JSON null.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
