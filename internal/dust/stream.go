package dust

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"nara.app/nara-gateway/internal/metrics"
)

const (
	eventGenerationTokens = "generation_tokens"
	eventAgentSuccess     = "agent_message_success"
	eventAgentError       = "agent_error"
	eventUserMessageError = "user_message_error"
	eventError            = "error"

	classificationTokens = "tokens"
	doneSentinel         = "[DONE]"
	defaultStreamError   = "agent returned an error"

	maxFrameSize = 4 * 1024 * 1024
)

var frameDelimiter = []byte("\n\n")

// streamEvent covers every event field the aggregator reads. Only Type is
// strictly typed; other fields are read leniently. Events may be wrapped as
// {eventId, data: {...}}, in which case Type is empty and Data holds the
// inner event.
type streamEvent struct {
	Type           string          `json:"type"`
	Classification json.RawMessage `json:"classification"`
	Text           json.RawMessage `json:"text"`
	Message        json.RawMessage `json:"message"`
	Error          json.RawMessage `json:"error"`
	Content        json.RawMessage `json:"content"`
	Data           json.RawMessage `json:"data"`
}

// aggregation is the per-stream state.
type aggregation struct {
	tokens   strings.Builder
	final    string
	answered bool
}

// AggregateStream reads a Server-Sent-Events body until the agent's answer
// is known. A success event ends the read immediately and its content wins
// over streamed tokens; without one, the concatenated tokens are the answer.
// Error events end the read with a *StreamError. Frames whose JSON cannot be
// parsed are logged and skipped.
func AggregateStream(ctx context.Context, r io.Reader, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	scanner.Split(splitFrames)

	var state aggregation
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := state.consumeFrame(scanner.Bytes(), logger); err != nil {
			metrics.StreamOutcomes.WithLabelValues("agent_error").Inc()
			return "", err
		}
		if state.answered {
			break
		}
	}
	if !state.answered {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read event stream: %w", err)
		}
	}

	answer := state.final
	outcome := "final"
	if answer == "" {
		answer = state.tokens.String()
		outcome = "tokens"
	}
	if answer == "" {
		metrics.StreamOutcomes.WithLabelValues("empty").Inc()
		return "", ErrNoAgentResponse
	}
	metrics.StreamOutcomes.WithLabelValues(outcome).Inc()
	return answer, nil
}

// splitFrames is a bufio.SplitFunc yielding blank-line delimited frames.
// A partial frame stays buffered until more data arrives; at end of stream
// it is returned as the last frame.
func splitFrames(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.Index(data, frameDelimiter); i >= 0 {
		return i + len(frameDelimiter), data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (a *aggregation) consumeFrame(frame []byte, logger *slog.Logger) error {
	for _, line := range strings.Split(string(frame), "\n") {
		line = strings.TrimRight(line, "\r")
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == "" || payload == doneSentinel {
			continue
		}

		ev, err := decodeEvent([]byte(payload))
		if err != nil {
			metrics.StreamFramesSkipped.Inc()
			logger.Warn("skipping malformed stream frame", "error", err, "payload", truncate(payload, 200))
			continue
		}

		if err := a.apply(ev); err != nil {
			return err
		}
		if a.answered {
			return nil
		}
	}
	return nil
}

// decodeEvent parses one data payload, unwrapping {eventId, data} events.
func decodeEvent(payload []byte) (streamEvent, error) {
	var ev streamEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, err
	}
	if ev.Type != "" || len(ev.Data) == 0 {
		return ev, nil
	}

	inner := bytes.TrimSpace(ev.Data)
	if len(inner) == 0 || inner[0] != '{' {
		return ev, nil
	}
	var wrapped streamEvent
	if err := json.Unmarshal(inner, &wrapped); err != nil {
		return ev, fmt.Errorf("decode wrapped event: %w", err)
	}
	return wrapped, nil
}

func (a *aggregation) apply(ev streamEvent) error {
	switch ev.Type {
	case eventGenerationTokens:
		if stringOf(ev.Classification) != classificationTokens {
			return nil
		}
		if text := stringOf(ev.Text); text != "" {
			a.tokens.WriteString(text)
		}

	case eventAgentSuccess:
		if len(ev.Message) == 0 {
			return nil
		}
		var msg struct {
			Content json.RawMessage `json:"content"`
		}
		if err := json.Unmarshal(ev.Message, &msg); err != nil {
			return nil
		}
		// Only string and list contents count as a final answer.
		content := ParseTextContent(msg.Content)
		if content.kind != contentPlain && content.kind != contentSequence {
			return nil
		}
		a.final = content.String()
		a.answered = true

	case eventAgentError, eventUserMessageError, eventError:
		msg := messageOf(ev.Error)
		if msg == "" {
			msg = messageOf(ev.Content)
		}
		if msg == "" {
			msg = stringOf(ev.Message)
		}
		if msg == "" {
			msg = defaultStreamError
		}
		return &StreamError{Type: ev.Type, Message: msg}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
