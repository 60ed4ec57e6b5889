package core

import (
	"encoding/json"
	"time"
)

// Archive is a stored analytics snapshot for one scope and calendar month.
type Archive struct {
	ScopeKey   string          `json:"scope"`
	Period     string          `json:"period"` // YYYY-MM
	Snapshot   json.RawMessage `json:"snapshot"`
	ArchivedAt time.Time       `json:"archived_at"`
}
