package lifecycle

import (
	"time"

	"github.com/lenskeep/studio-api/internal/model"
)

// DecideTransition is the pure decision at the heart of the engine: given an
// event's current status code and the datetimes bounding its shoot window,
// return the status it should move to right now, if any.
//
// Only two transitions are time-driven:
//
//	SCHEDULED         -> SHOOT_IN_PROGRESS  when from <= now < to
//	SHOOT_IN_PROGRESS -> AWAITING_EDITING   when to <= now
//
// Each evaluation checks only the current status's single eligible next
// state, so an event advances at most one step per tick. A SCHEDULED event
// whose whole window has already passed stays SCHEDULED; starting it late
// is a human decision, not the scheduler's.
func DecideTransition(statusCode string, now, from, to time.Time) (string, bool) {
	switch statusCode {
	case model.DeliveryStatusScheduled:
		if !now.Before(from) && now.Before(to) {
			return model.DeliveryStatusShootInProgress, true
		}
	case model.DeliveryStatusShootInProgress:
		if !now.Before(to) {
			return model.DeliveryStatusAwaitingEditing, true
		}
	}
	return "", false
}
