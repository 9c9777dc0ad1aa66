package fcm

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// multicastLimit is the most tokens FCM accepts in one multicast request
const multicastLimit = 500

// Client sends web push notifications through Firebase Cloud Messaging
type Client struct {
	messaging *messaging.Client
}

func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	mc, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}

	log.Println("[FCM] Client initialized")
	return &Client{messaging: mc}, nil
}

type NotificationData struct {
	Title string
	Body  string
	Data  map[string]string
	// ClickAction is the app path opened when the notification is clicked
	ClickAction string
}

// Delivery summarizes one fan-out
type Delivery struct {
	Reached int
	// Stale tokens are unregistered or malformed and should be forgotten
	Stale []string
}

func (n NotificationData) multicast(tokens []string) *messaging.MulticastMessage {
	data := make(map[string]string, len(n.Data)+1)
	for k, v := range n.Data {
		data[k] = v
	}
	webpush := &messaging.WebpushConfig{
		Notification: &messaging.WebpushNotification{Title: n.Title, Body: n.Body, Icon: "/icon-192.svg"},
	}
	if n.ClickAction != "" {
		data["click_action"] = n.ClickAction
		webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: n.ClickAction}
	}
	return &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: n.Title, Body: n.Body},
		Data:         data,
		Webpush:      webpush,
	}
}

func isStale(err error) bool {
	return messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err) || messaging.IsSenderIDMismatch(err)
}

// SendToDevices pushes the notification to every token in batches of multicastLimit
func (c *Client) SendToDevices(ctx context.Context, tokens []string, n NotificationData) (Delivery, error) {
	var out Delivery
	for start := 0; start < len(tokens); start += multicastLimit {
		end := min(start+multicastLimit, len(tokens))
		batch := tokens[start:end]

		resp, err := c.messaging.SendEachForMulticast(ctx, n.multicast(batch))
		if err != nil {
			return out, fmt.Errorf("fcm multicast: %w", err)
		}
		out.Reached += resp.SuccessCount
		for i, r := range resp.Responses {
			if r.Success {
				continue
			}
			if isStale(r.Error) {
				out.Stale = append(out.Stale, batch[i])
			}
			log.Printf("[FCM] Delivery to %s failed: %v", shorten(batch[i]), r.Error)
		}
	}
	return out, nil
}

func shorten(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
