package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/irsalhamdi/sleepoutside/core/product"
)

// Kind tells how a failure message was derived from the service's answer.
type Kind int

const (
	// KindOpaque covers transport failures and bodies with no recognizable
	// shape. The message is the raw body, truncated.
	KindOpaque Kind = iota
	// KindValidation carries one message per rejected field.
	KindValidation
	// KindMessage carries a single message or error string.
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindMessage:
		return "message"
	default:
		return "opaque"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// MaxMessageLen bounds opaque messages, in runes.
const MaxMessageLen = 200

// ServiceError is a failed call to the remote service.
type ServiceError struct {
	Kind     Kind
	Status   int
	Messages []string
	Err      error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString("service error")
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, "; "))
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is lets a 404 from the catalog match product.ErrNotFound.
func (e *ServiceError) Is(target error) bool {
	return target == product.ErrNotFound && e.Status == http.StatusNotFound
}

type errorResponse struct {
	Error    string   `json:"error"`
	Kind     Kind     `json:"kind"`
	Messages []string `json:"messages"`
}

// Response renders the failure for the storefront's own clients.
func (e *ServiceError) Response() (interface{}, int) {
	msgs := e.Messages
	if msgs == nil {
		msgs = []string{}
	}
	body := errorResponse{
		Error:    "the order service could not process the request",
		Kind:     e.Kind,
		Messages: msgs,
	}
	return body, http.StatusBadGateway
}

// derive reads a failure body, preferring an errors list, then a single
// message or error field, then the raw text.
func derive(status int, body []byte) *ServiceError {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		if raw, ok := obj["errors"]; ok {
			if msgs := messagesOf(raw); len(msgs) > 0 {
				return &ServiceError{Kind: KindValidation, Status: status, Messages: msgs}
			}
		}

		for _, key := range []string{"message", "error"} {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && s != "" {
				return &ServiceError{Kind: KindMessage, Status: status, Messages: []string{s}}
			}
			if msgs := messagesOf(raw); len(msgs) > 0 {
				return &ServiceError{Kind: KindValidation, Status: status, Messages: msgs}
			}
		}
	}

	return opaque(status, body, nil)
}

func opaque(status int, body []byte, err error) *ServiceError {
	msg := strings.TrimSpace(string(body))
	if msg == "" && err != nil {
		msg = err.Error()
	}
	if msg == "" && status != 0 {
		msg = http.StatusText(status)
	}

	e := &ServiceError{Kind: KindOpaque, Status: status, Err: err}
	if msg != "" {
		e.Messages = []string{truncate(msg, MaxMessageLen)}
	}
	return e
}

// messagesOf flattens an array of entries, or an object of field to
// message, into display strings. Objects are ordered by field name.
func messagesOf(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, it := range list {
			if m := entryText(it); m != "" {
				msgs = append(msgs, m)
			}
		}
		return msgs
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		names := make([]string, 0, len(fields))
		for k := range fields {
			names = append(names, k)
		}
		sort.Strings(names)

		msgs := make([]string, 0, len(fields))
		for _, k := range names {
			if m := entryText(fields[k]); m != "" {
				msgs = append(msgs, k+": "+m)
			}
		}
		return msgs
	}

	return nil
}

func entryText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Field   string `json:"field"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		m := obj.Message
		if m == "" {
			m = obj.Msg
		}
		if m != "" {
			if obj.Field != "" {
				return obj.Field + ": " + m
			}
			return m
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err == nil {
		return truncate(compact.String(), MaxMessageLen)
	}
	return ""
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
