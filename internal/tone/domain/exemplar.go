package domain

import (
	"time"

	"nexus-backend/pkg/utils/dbtype"
)

const (
	CategoryHistorical  = "historical"
	CategoryUserRewrite = "user_rewrite"
)

// Exemplar is a sanitized sample of the user's own writing. The corpus is append-only.
type Exemplar struct {
	ID        string            `json:"id" gorm:"primaryKey"`
	UserID    string            `json:"user_id" gorm:"index;not null"`
	Text      string            `json:"text" gorm:"type:text"`
	Category  string            `json:"category" gorm:"index"`
	Channel   string            `json:"channel"`
	Embedding dbtype.FloatArray `json:"-" gorm:"type:text"`
	CreatedAt time.Time         `json:"created_at"`
}

// SimilarExemplar is an exemplar returned by style retrieval
type SimilarExemplar struct {
	Exemplar
	Distance float64 `json:"distance"`
}
