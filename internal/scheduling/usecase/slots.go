package usecase

import (
	"time"

	"nexus-backend/internal/scheduling/domain"
)

// FindAvailableSlots scans free slots in time order and proposes one
// [start, start+duration) offer per slot long enough to hold it, stopping after count
func FindAvailableSlots(slots []domain.Slot, duration time.Duration, count int) []domain.Offer {
	if duration <= 0 || count <= 0 {
		return nil
	}
	offers := make([]domain.Offer, 0, count)
	for _, s := range slots {
		if s.IsBusy || s.Duration() < duration {
			continue
		}
		offers = append(offers, domain.Offer{Start: s.Start, End: s.Start.Add(duration)})
		if len(offers) == count {
			break
		}
	}
	return offers
}

// ClipSlots trims free slots to [from, to); busy slots pass through unchanged
func ClipSlots(slots []domain.Slot, from, to time.Time) []domain.Slot {
	out := make([]domain.Slot, 0, len(slots))
	for _, s := range slots {
		if s.IsBusy {
			out = append(out, s)
			continue
		}
		if s.Start.Before(from) {
			s.Start = from
		}
		if !to.IsZero() && s.End.After(to) {
			s.End = to
		}
		if s.End.After(s.Start) {
			out = append(out, s)
		}
	}
	return out
}
