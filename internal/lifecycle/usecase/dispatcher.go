package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"nexus-backend/internal/lifecycle/domain"
	tonedomain "nexus-backend/internal/tone/domain"
	toneusecase "nexus-backend/internal/tone/usecase"
)

type ToneLearner interface {
	ApplyFeedback(ctx context.Context, userID, draft, final, channel string) (*tonedomain.FeedbackResult, error)
	SyncFromSentMail(ctx context.Context, userID string) (*tonedomain.SyncResult, error)
}

type Importer interface {
	Run(ctx context.Context, userID string) (*domain.BackfillResult, error)
}

// Dispatcher routes lifecycle events to the tone engine and the backfill
type Dispatcher struct {
	tone     ToneLearner
	backfill Importer
}

func NewDispatcher(tone ToneLearner, backfill Importer) *Dispatcher {
	return &Dispatcher{tone: tone, backfill: backfill}
}

// Handle processes one event. Events with nothing to learn from are ignored.
func (d *Dispatcher) Handle(ctx context.Context, e domain.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	switch e.Type {
	case domain.EventMessageSent:
		if e.Draft == "" || e.Final == "" {
			log.Printf("[Lifecycle] message_sent for user %s carries no draft, nothing to learn", e.UserID)
			return nil
		}
		return d.learn(ctx, e)

	case domain.EventDraftEdited:
		return d.learn(ctx, e)

	case domain.EventAccountConnected:
		if _, err := d.backfill.Run(ctx, e.UserID); err != nil {
			return fmt.Errorf("backfill: %w", err)
		}
		res, err := d.tone.SyncFromSentMail(ctx, e.UserID)
		if errors.Is(err, toneusecase.ErrNoSamples) {
			log.Printf("[Lifecycle] No sent mail to learn tone from for user %s", e.UserID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("tone sync: %w", err)
		}
		log.Printf("[Lifecycle] Tone synced for user %s from %d messages", e.UserID, res.MessagesUsed)
		return nil
	}
	return nil
}

func (d *Dispatcher) learn(ctx context.Context, e domain.Event) error {
	res, err := d.tone.ApplyFeedback(ctx, e.UserID, e.Draft, e.Final, e.Channel)
	if err != nil {
		return fmt.Errorf("tone feedback: %w", err)
	}
	log.Printf("[Lifecycle] %s for user %s: %s (edit ratio %.2f)", e.Type, e.UserID, res.Outcome, res.EditRatio)
	return nil
}

// AccountConnected handles the event in-process, detached from the caller.
// It stands in for the Pub/Sub bus when no project is configured.
func (d *Dispatcher) AccountConnected(_ context.Context, userID string) error {
	e := domain.Event{Type: domain.EventAccountConnected, UserID: userID, OccurredAt: time.Now()}
	if err := e.Validate(); err != nil {
		return err
	}
	go func() {
		if err := d.Handle(context.Background(), e); err != nil {
			log.Printf("[Lifecycle] Import for user %s failed: %v", userID, err)
		}
	}()
	return nil
}
