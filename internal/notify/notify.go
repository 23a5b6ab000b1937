// Package notify delivers collaboration events to the notification
// pipeline. Delivery is fire-and-forget: the primary state mutation has
// already committed by the time an event is sent, so send failures are
// logged and swallowed.
package notify

import (
	"context"
	"time"
)

// Notification kinds emitted by the collaboration subsystem.
const (
	KindCollaborationInvite   = "collaboration_invite"
	KindCollaborationResponse = "collaboration_response"
	KindNewCollaborationEntry = "new_collaboration_entry"
)

// Event is the wire shape of one notification.
type Event struct {
	TargetUserID string         `json:"target_user_id"`
	Kind         string         `json:"kind"`
	Payload      map[string]any `json:"payload,omitempty"`
	EmittedAt    time.Time      `json:"emitted_at"`
}

// Emitter sends one notification to one user. Implementations must not
// block beyond a single synchronous send and must never propagate delivery
// failures to the caller.
type Emitter interface {
	Send(ctx context.Context, targetUserID, kind string, payload map[string]any)
}

// NopEmitter discards every event. Used when the notification pipeline is
// unavailable at startup.
type NopEmitter struct{}

func (NopEmitter) Send(context.Context, string, string, map[string]any) {}
