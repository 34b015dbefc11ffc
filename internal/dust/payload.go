package dust

import (
	"net/url"
	"strings"
)

const (
	originAPI          = "api"
	visibilityUnlisted = "unlisted"
)

// Shape identifies which upstream call a chat message turns into.
type Shape int

const (
	// ShapeCreate starts a new conversation with a text-only message.
	ShapeCreate Shape = iota
	// ShapeCreateWithFiles starts a new conversation with attachments.
	ShapeCreateWithFiles
	// ShapeAppend posts a text-only message to an existing conversation.
	ShapeAppend
	// ShapeAppendWithFiles posts a message with attachments to an existing conversation.
	ShapeAppendWithFiles
)

// SelectShape picks the call shape from whether a conversation already
// exists and whether the message carries attachments.
func SelectShape(conversationID string, fragmentCount int) Shape {
	existing := strings.TrimSpace(conversationID) != ""
	switch {
	case existing && fragmentCount > 0:
		return ShapeAppendWithFiles
	case existing:
		return ShapeAppend
	case fragmentCount > 0:
		return ShapeCreateWithFiles
	default:
		return ShapeCreate
	}
}

func (s Shape) String() string {
	switch s {
	case ShapeCreate:
		return "create"
	case ShapeCreateWithFiles:
		return "create_with_files"
	case ShapeAppend:
		return "append"
	case ShapeAppendWithFiles:
		return "append_with_files"
	}
	return "unknown"
}

// Appends reports whether the shape targets an existing conversation.
func (s Shape) Appends() bool {
	return s == ShapeAppend || s == ShapeAppendWithFiles
}

// HasFiles reports whether the shape carries content fragments.
func (s Shape) HasFiles() bool {
	return s == ShapeCreateWithFiles || s == ShapeAppendWithFiles
}

type Mention struct {
	ConfigurationID string `json:"configurationId"`
}

// MessageContext describes the end user on whose behalf a message is sent.
// Nil Email and FullName are sent as JSON null.
type MessageContext struct {
	Username string  `json:"username"`
	Timezone string  `json:"timezone"`
	Email    *string `json:"email"`
	FullName *string `json:"fullName"`
	Origin   string  `json:"origin"`
}

type Message struct {
	Content  string         `json:"content"`
	Mentions []Mention      `json:"mentions"`
	Context  MessageContext `json:"context"`
}

// NewMessage addresses content to a single agent.
func NewMessage(agentID, content string, ctx MessageContext) Message {
	if ctx.Origin == "" {
		ctx.Origin = originAPI
	}
	return Message{
		Content:  content,
		Mentions: []Mention{{ConfigurationID: agentID}},
		Context:  ctx,
	}
}

// MessageInput is everything needed to build one upstream chat call.
type MessageInput struct {
	ConversationID string
	Message        Message
	Fragments      []ContentFragment
	Blocking       bool
}

// Call is a fully built upstream request: the path is relative to the
// workspace root.
type Call struct {
	Shape          Shape
	Path           string
	ConversationID string
	Blocking       bool
	Body           any
}

// Content fragments always travel next to the message object, never inside
// it, for both conversation creation and message posting.
type createConversationBody struct {
	Title            *string           `json:"title"`
	Visibility       string            `json:"visibility"`
	Message          Message           `json:"message"`
	ContentFragments []ContentFragment `json:"contentFragments,omitempty"`
	Blocking         bool              `json:"blocking"`
}

type postMessageBody struct {
	Message          Message           `json:"message"`
	ContentFragments []ContentFragment `json:"contentFragments,omitempty"`
	Blocking         bool              `json:"blocking"`
}

// BuildCall turns a message input into the upstream call for its shape.
func BuildCall(in MessageInput) Call {
	conversationID := strings.TrimSpace(in.ConversationID)
	shape := SelectShape(conversationID, len(in.Fragments))

	var fragments []ContentFragment
	if shape.HasFiles() {
		fragments = in.Fragments
	}

	if shape.Appends() {
		return Call{
			Shape:          shape,
			Path:           conversationPath(conversationID) + "/messages",
			ConversationID: conversationID,
			Blocking:       in.Blocking,
			Body: postMessageBody{
				Message:          in.Message,
				ContentFragments: fragments,
				Blocking:         in.Blocking,
			},
		}
	}

	return Call{
		Shape:    shape,
		Path:     "/assistant/conversations",
		Blocking: in.Blocking,
		Body: createConversationBody{
			Visibility:       visibilityUnlisted,
			Message:          in.Message,
			ContentFragments: fragments,
			Blocking:         in.Blocking,
		},
	}
}

func conversationPath(conversationID string) string {
	return "/assistant/conversations/" + url.PathEscape(conversationID)
}
