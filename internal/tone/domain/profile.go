package domain

import (
	"time"

	"nexus-backend/pkg/utils/dbtype"
)

const (
	MinScore     = 1.0
	MaxScore     = 10.0
	NeutralScore = 5.0
)

// Dimensions is the four-axis style vector
type Dimensions struct {
	Formality float64 `json:"formality"`
	Length    float64 `json:"length"`
	Warmth    float64 `json:"warmth"`
	Certainty float64 `json:"certainty"`
}

// Clamp bounds every axis to [MinScore, MaxScore]
func (d Dimensions) Clamp() Dimensions {
	return Dimensions{
		Formality: clamp(d.Formality),
		Length:    clamp(d.Length),
		Warmth:    clamp(d.Warmth),
		Certainty: clamp(d.Certainty),
	}
}

// Damped returns d + delta*factor, clamped
func (d Dimensions) Damped(delta Dimensions, factor float64) Dimensions {
	return Dimensions{
		Formality: d.Formality + delta.Formality*factor,
		Length:    d.Length + delta.Length*factor,
		Warmth:    d.Warmth + delta.Warmth*factor,
		Certainty: d.Certainty + delta.Certainty*factor,
	}.Clamp()
}

func clamp(v float64) float64 {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// ToneProfile is one user's learned writing style
type ToneProfile struct {
	UserID      string             `json:"user_id" gorm:"primaryKey"`
	Formality   float64            `json:"formality"`
	Length      float64            `json:"length"`
	Warmth      float64            `json:"warmth"`
	Certainty   float64            `json:"certainty"`
	Quirks      dbtype.StringArray `json:"quirks" gorm:"type:text"`
	SampleCount int                `json:"sample_count"`
	SyncedAt    *time.Time         `json:"synced_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewProfile starts every axis at the neutral midpoint
func NewProfile(userID string) *ToneProfile {
	return &ToneProfile{
		UserID:    userID,
		Formality: NeutralScore,
		Length:    NeutralScore,
		Warmth:    NeutralScore,
		Certainty: NeutralScore,
		Quirks:    dbtype.StringArray{},
	}
}

func (p *ToneProfile) Dimensions() Dimensions {
	return Dimensions{Formality: p.Formality, Length: p.Length, Warmth: p.Warmth, Certainty: p.Certainty}
}

// SetDimensions stores d after clamping it
func (p *ToneProfile) SetDimensions(d Dimensions) {
	d = d.Clamp()
	p.Formality, p.Length, p.Warmth, p.Certainty = d.Formality, d.Length, d.Warmth, d.Certainty
}

const maxQuirks = 10

// AddQuirk records a free-text style note, keeping the newest few
func (p *ToneProfile) AddQuirk(q string) {
	if q == "" {
		return
	}
	for _, existing := range p.Quirks {
		if existing == q {
			return
		}
	}
	p.Quirks = append(p.Quirks, q)
	if len(p.Quirks) > maxQuirks {
		p.Quirks = p.Quirks[len(p.Quirks)-maxQuirks:]
	}
}
