package dust

import (
	"bytes"
	"encoding/json"
	"strings"
)

const messageTypeAgent = "agent_message"

// Conversation is the subset of an upstream conversation the gateway reads.
// Content is a list whose entries are either messages or lists of message
// versions.
type Conversation struct {
	SID     string            `json:"sId"`
	Content []json.RawMessage `json:"content"`
}

// ConversationMessage is one flattened entry of a conversation.
type ConversationMessage struct {
	SID     string            `json:"sId"`
	Type    string            `json:"type"`
	Content json.RawMessage   `json:"content"`
	Actions []json.RawMessage `json:"actions"`
}

type conversationEnvelope struct {
	Conversation *Conversation `json:"conversation"`
}

// Messages flattens the conversation content by one level. Entries that do
// not decode as messages are skipped.
func (c *Conversation) Messages() []ConversationMessage {
	var out []ConversationMessage
	for _, entry := range c.Content {
		entry = bytes.TrimSpace(entry)
		if len(entry) == 0 {
			continue
		}
		if entry[0] == '[' {
			var versions []ConversationMessage
			if err := json.Unmarshal(entry, &versions); err == nil {
				out = append(out, versions...)
			}
			continue
		}
		var msg ConversationMessage
		if err := json.Unmarshal(entry, &msg); err == nil {
			out = append(out, msg)
		}
	}
	return out
}

// LatestAgentReply returns the text and actions of the last agent message
// with non-blank text. It returns an empty string when there is none.
func (c *Conversation) LatestAgentReply() (string, []json.RawMessage) {
	var (
		text    string
		actions []json.RawMessage
	)
	for _, msg := range c.Messages() {
		if msg.Type != messageTypeAgent {
			continue
		}
		t := ParseTextContent(msg.Content).String()
		if strings.TrimSpace(t) == "" {
			continue
		}
		text, actions = t, msg.Actions
	}
	return text, actions
}
