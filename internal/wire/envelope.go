// Package wire implements the JSON wire codec shared by internal/tcpproto
// and internal/wsgateway: snake_case fields, lowercase "type" discriminators,
// the same schema over both transports. It depends on internal/engine and
// internal/events only for their typed Command/Response/Event shapes — it
// never touches a repository or the engine's dispatch logic itself, just
// pure marshaling with no business logic.
package wire

import (
	"encoding/json"
	"time"
)

// commandEnvelope is the inbound shape for every Command: a type tag plus
// raw JSON for DecodeCommand to route into a specific payload type.
// RequestID is an opaque client-chosen correlation token, optional and
// otherwise unused by the engine, that EncodeResponse echoes back so a
// client that pipelines several commands ahead of their responses over the
// same connection can match each response to the request that caused it.
type commandEnvelope struct {
	Type string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// responseEnvelope is the outbound shape for every Response:
// "<command>_response" with success: bool and either the payload or an
// error object.
type responseEnvelope struct {
	Type string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Success bool `json:"success"`
	Data json.RawMessage `json:"data,omitempty"`
	Error *ErrorDTO `json:"error,omitempty"`
}

// eventEnvelope is the outbound shape for every Event, matching the type
// tag each events.Kind.String() produces.
type eventEnvelope struct {
	Type string `json:"type"`
	ID string `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Data json.RawMessage `json:"data,omitempty"`
}
