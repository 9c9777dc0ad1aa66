package notification

import (
	"context"
	"log"

	authrepo "nexus-backend/internal/auth/repository"
	"nexus-backend/pkg/fcm"
)

// Sender delivers one notification to a set of device tokens
type Sender interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) (fcm.Delivery, error)
}

// PushNotifier fans a notification out to every registered device of a user
type PushNotifier struct {
	fcmRepo authrepo.FCMTokenRepository
	sender  Sender
}

// NewPushNotifier returns nil when push is not configured; a nil notifier drops notifications
func NewPushNotifier(fcmRepo authrepo.FCMTokenRepository, sender Sender) *PushNotifier {
	if fcmRepo == nil || sender == nil {
		return nil
	}
	return &PushNotifier{fcmRepo: fcmRepo, sender: sender}
}

// NotifyUser sends to all devices of userID and prunes tokens FCM reports as stale.
// It returns the number of devices reached.
func (p *PushNotifier) NotifyUser(ctx context.Context, userID string, notification fcm.NotificationData) (int, error) {
	if p == nil {
		return 0, nil
	}

	tokens, err := p.fcmRepo.GetTokensByUserID(userID)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		log.Printf("[FCM] No tokens found for user %s, skipping push notification", userID)
		return 0, nil
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	delivery, err := p.sender.SendToDevices(ctx, tokenStrings, notification)
	if err != nil {
		return 0, err
	}

	for _, token := range delivery.Stale {
		if err := p.fcmRepo.DeleteToken(token); err != nil {
			log.Printf("[FCM] Failed to delete stale token: %v", err)
		}
	}
	return delivery.Reached, nil
}
