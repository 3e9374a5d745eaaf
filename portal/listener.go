// Package portal passively captures error reports posted by the
// authentication portal on the cross-origin message channel. The
// captured snapshot is a correlation aid only: it is merged into later
// payment-failure messages, never surfaced as its own error.
package portal

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"

	"github.com/paylazor/paylazor-go/logger"
)

// Message is a single inbound cross-origin message: the declared
// origin plus a payload that is either already-structured data
// (map[string]any) or a JSON-encoded string/byte payload.
type Message struct {
	Origin string
	Data   any
}

// Snapshot is the most recent error reported by the portal.
type Snapshot struct {
	Error   string
	Details string
}

// Listener filters portal messages by host and keeps the last error
// snapshot. Writes are last-wins and independent of any checkout
// state; there is no acknowledgement or backpressure.
type Listener struct {
	host string
	log  logger.Logger

	mu   sync.Mutex
	last *Snapshot
}

// NewListener builds a Listener for the given portal endpoint.
func NewListener(portalURL string, log logger.Logger) *Listener {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Listener{host: safeHost(portalURL), log: log}
}

// Run pumps messages until ctx is done or the channel closes.
func (l *Listener) Run(ctx context.Context, messages <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			l.Handle(msg)
		}
	}
}

// Handle processes one message. Messages from other hosts, unparsable
// payloads, and payloads without a usable error text are discarded
// silently.
func (l *Listener) Handle(msg Message) {
	origin, err := url.Parse(msg.Origin)
	if err != nil || origin.Host == "" || origin.Host != l.host {
		return
	}

	payload, ok := normalizePayload(msg.Data)
	if !ok {
		return
	}

	errText := extractErrorText(payload)
	if errText == "" {
		return
	}

	snap := &Snapshot{
		Error:   errText,
		Details: extractDetails(payload),
	}

	l.mu.Lock()
	l.last = snap
	l.mu.Unlock()

	l.log.Debug("portal error captured", map[string]any{
		"error":   snap.Error,
		"details": snap.Details,
	})
}

// Last returns a copy of the current snapshot, or nil.
func (l *Listener) Last() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil {
		return nil
	}
	snap := *l.last
	return &snap
}

// Clear drops the current snapshot. Called at the start of every
// connect and pay attempt.
func (l *Listener) Clear() {
	l.mu.Lock()
	l.last = nil
	l.mu.Unlock()
}

func normalizePayload(data any) (map[string]any, bool) {
	switch d := data.(type) {
	case map[string]any:
		return d, true
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(d), &obj); err != nil {
			return nil, false
		}
		return obj, true
	case []byte:
		var obj map[string]any
		if err := json.Unmarshal(d, &obj); err != nil {
			return nil, false
		}
		return obj, true
	default:
		return nil, false
	}
}

// extractErrorText takes the first present field among error, message
// and reason, accepting either a plain string or a {message}-shaped
// nested object. Only the first present field is considered; if it
// yields no text the message is discarded.
func extractErrorText(payload map[string]any) string {
	for _, key := range []string{"error", "message", "reason"} {
		v, present := payload[key]
		if !present || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return strings.TrimSpace(t)
		case map[string]any:
			if msg, ok := t["message"].(string); ok {
				return strings.TrimSpace(msg)
			}
		}
		return ""
	}
	return ""
}

func extractDetails(payload map[string]any) string {
	for _, key := range []string{"details", "stack"} {
		if s, ok := payload[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func safeHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
