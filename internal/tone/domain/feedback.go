package domain

// FeedbackOutcome classifies a draft edit
type FeedbackOutcome string

const (
	FeedbackTrivial FeedbackOutcome = "trivial"
	FeedbackRewrite FeedbackOutcome = "rewrite"
	FeedbackAdjust  FeedbackOutcome = "adjusted"
	FeedbackSkipped FeedbackOutcome = "skipped"
)

const (
	TrivialEditRatio = 0.05
	RewriteEditRatio = 0.80
	DampingFactor    = 0.3
)

// FeedbackResult reports what one delta-feedback application did
type FeedbackResult struct {
	Outcome    FeedbackOutcome `json:"outcome"`
	EditRatio  float64         `json:"editRatio"`
	Delta      *Dimensions     `json:"delta,omitempty"`
	Quirk      string          `json:"quirk,omitempty"`
	Profile    *ToneProfile    `json:"profile,omitempty"`
	ExemplarID string          `json:"exemplarId,omitempty"`
}

// SyncResult reports a historical sync
type SyncResult struct {
	Profile         *ToneProfile `json:"profile"`
	MessagesUsed    int          `json:"messagesUsed"`
	BatchesScored   int          `json:"batchesScored"`
	BatchesSkipped  int          `json:"batchesSkipped"`
	ExemplarsStored int          `json:"exemplarsStored"`
}
