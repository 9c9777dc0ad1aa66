package repository

import (
	tonedomain "nexus-backend/internal/tone/domain"
)

// ProfileRepository stores one tone profile per user
type ProfileRepository interface {
	FindByUser(userID string) (*tonedomain.ToneProfile, error)
	Save(profile *tonedomain.ToneProfile) error
}

// ExemplarRepository appends and reads writing samples
type ExemplarRepository interface {
	Create(exemplar *tonedomain.Exemplar) error
	FindByIDs(userID string, ids []string) ([]*tonedomain.Exemplar, error)
	ListByUser(userID string, limit int) ([]*tonedomain.Exemplar, error)
}
