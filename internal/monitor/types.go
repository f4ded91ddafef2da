package monitor

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/carebridge/phi-sentinel/internal/redact"
)

// EventType classifies telemetry events pushed to monitor clients.
// Event payloads carry counts, tiers, and field paths only — never text,
// tokens, or identifiers.
type EventType string

const (
	// EventTypeRedaction reports a completed anonymization pass
	EventTypeRedaction EventType = "redaction"
	// EventTypeExportProgress reports batch export progress
	EventTypeExportProgress EventType = "export_progress"
	// EventTypeViolation reports a payload rejected by the PII scan
	EventTypeViolation EventType = "violation"
	// EventTypeConnection reports monitor client connects/disconnects
	EventTypeConnection EventType = "connection"
)

// Event is one telemetry message sent to monitor clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RunID     string      `json:"run_id,omitempty"`
}

// RedactionEvent summarizes one anonymization pass
type RedactionEvent struct {
	TotalRedactions int                       `json:"total_redactions"`
	ByType          map[redact.EntityType]int `json:"by_type"`
	ProcessingMS    float64                   `json:"processing_ms"`
}

// ExportProgressEvent reports progress through a batch export run
type ExportProgressEvent struct {
	RunID      string `json:"run_id"`
	Processed  int    `json:"processed"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
	Total      int    `json:"total"`
}

// ViolationEvent reports a scan rejection. Field is a payload path like
// "payload.procedureCodes[2]"; the matched text is never included.
type ViolationEvent struct {
	RunID   string `json:"run_id"`
	Field   string `json:"field"`
	Pattern string `json:"pattern"`
}

// ConnectionEvent reports monitor client lifecycle
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
}

// Client is one connected monitor consumer
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan Event
	ConnectedAt time.Time
	IP          string
}
