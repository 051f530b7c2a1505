package models

// Run is one batch simulation launched through the API or the CLI.
type Run struct {
	ID   string `json:"id" db:"id"`
	Kind string `json:"kind" db:"kind"` // visitor, airport

	// Status
	Status    string `json:"status" db:"status"` // pending, running, completed, failed
	Total     int64  `json:"total" db:"total"`
	Processed int64  `json:"processed" db:"processed"`
	Failed    int64  `json:"failed" db:"failed"`
	Error     string `json:"error,omitempty" db:"error"`

	// Unix timestamps
	CreatedAt   int64 `json:"created_at" db:"created_at"`
	StartedAt   int64 `json:"started_at,omitempty" db:"started_at"`
	CompletedAt int64 `json:"completed_at,omitempty" db:"completed_at"`
}

// Run kinds
const (
	RunKindVisitor = "visitor"
	RunKindAirport = "airport"
)

// Run status constants
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)
