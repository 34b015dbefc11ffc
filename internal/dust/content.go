package dust

import (
	"bytes"
	"encoding/json"
	"strings"
)

type contentKind int

const (
	contentEmpty contentKind = iota
	contentPlain
	contentSequence
	contentWrapped
)

// wrapperFields are the object fields that may carry text, in lookup order,
// with the JSON value kinds accepted for each: '"' for a string, '[' for a
// list.
var wrapperFields = []struct {
	key   string
	kinds string
}{
	{"text", `"`},
	{"content", `"[`},
	{"parts", `[`},
	{"value", `"`},
}

// TextContent is text as the agent platform delivers it: a plain string, a
// list of nested contents, or an object wrapping one of them under one of
// wrapperFields.
type TextContent struct {
	kind    contentKind
	plain   string
	items   []TextContent
	wrapped *TextContent
}

func Plain(s string) TextContent {
	return TextContent{kind: contentPlain, plain: s}
}

func Sequence(items ...TextContent) TextContent {
	return TextContent{kind: contentSequence, items: items}
}

func Wrapped(inner TextContent) TextContent {
	return TextContent{kind: contentWrapped, wrapped: &inner}
}

// ParseTextContent decodes raw JSON into a TextContent. Shapes that carry no
// text (numbers, null, objects without a known text field) yield an empty
// content rather than an error.
func ParseTextContent(raw json.RawMessage) TextContent {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return TextContent{}
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return TextContent{}
		}
		return Plain(s)

	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return TextContent{}
		}
		items := make([]TextContent, 0, len(elems))
		for _, elem := range elems {
			items = append(items, ParseTextContent(elem))
		}
		return Sequence(items...)

	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return TextContent{}
		}
		for _, field := range wrapperFields {
			value := bytes.TrimSpace(fields[field.key])
			if len(value) == 0 || !strings.ContainsRune(field.kinds, rune(value[0])) {
				continue
			}
			return Wrapped(ParseTextContent(value))
		}
	}
	return TextContent{}
}

// String flattens the content. Sequences drop empty parts, join the rest
// with newlines and trim the result.
func (c TextContent) String() string {
	switch c.kind {
	case contentPlain:
		return c.plain
	case contentSequence:
		parts := make([]string, 0, len(c.items))
		for _, item := range c.items {
			if s := item.String(); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n"))
	case contentWrapped:
		return c.wrapped.String()
	}
	return ""
}
