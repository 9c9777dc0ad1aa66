package domain

import "time"

// Slot is a free or busy span on the timeline
type Slot struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	IsBusy     bool      `json:"isBusy"`
	EventTitle string    `json:"eventTitle,omitempty"`
}

func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Offer is a proposed [Start, End) meeting time
type Offer struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
