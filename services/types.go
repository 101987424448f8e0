// types.go - Row, status and event types shared by the pipeline and the UI
package services

import "time"

// IP cell sentinels.
const (
	IPResolving   = "resolving..."
	IPUnavailable = "N/A"
)

// HostRecord is one dashboard row. FQDN is the row key.
type HostRecord struct {
	FQDN     string `json:"fqdn"`
	DB       string `json:"db"`
	Env      string `json:"env"`
	Platform string `json:"platform"`
	DC       string `json:"dc"`
	Zone     string `json:"zone"`
	Node     string `json:"node"`
	IP       string `json:"ip"`
	Repo     string `json:"repo,omitempty"`
}

// Status severities, mirrored as CSS classes by the UI.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

type Status struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Cycle   string    `json:"cycle,omitempty"`
	At      time.Time `json:"at"`
}

// Event types pushed to UI sinks.
const (
	EventClear    = "clear"
	EventRow      = "row"
	EventIP       = "ip"
	EventStatus   = "status"
	EventSnapshot = "snapshot"
)

// Event is a single render change. Only the fields relevant to Type are set.
type Event struct {
	Type       string       `json:"type"`
	Generation uint64       `json:"generation"`
	Row        *HostRecord  `json:"row,omitempty"`
	FQDN       string       `json:"fqdn,omitempty"`
	IP         string       `json:"ip,omitempty"`
	Status     *Status      `json:"status,omitempty"`
	Rows       []HostRecord `json:"rows,omitempty"`
}

// Sink receives render events. Implementations must not block.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

type discardSink struct{}

func (discardSink) Publish(Event) {}
