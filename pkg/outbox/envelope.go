package outbox

import (
	"encoding/json"
	"time"
)

// EnvelopeVersion is the newest envelope layout writers produce. The
// publisher refuses rows stamped with a later version.
const EnvelopeVersion = 1

// ActorRef identifies who triggered the event.
type ActorRef struct {
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
