package domain

// Roles for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single persisted conversation turn. Identity is
// (SessionID, Timestamp) and turns are never mutated after creation. The
// assistant turn of an exchange carries the user timestamp plus one so the
// pair stays ordered even when the clock does not advance between writes.
type Turn struct {
	SessionID string   `json:"session_id"`
	Timestamp int64    `json:"timestamp"` // milliseconds since epoch
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Sources   []string `json:"sources,omitempty"` // assistant turns only
	TTL       int64    `json:"ttl,omitempty"`     // epoch seconds, 7-day retention
}
