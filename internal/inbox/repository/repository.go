package repository

import (
	"time"

	inboxdomain "nexus-backend/internal/inbox/domain"
)

// InboxRepository is the read/write contract over threads, messages, contacts, drafts and orders
type InboxRepository interface {
	ListThreads(userID string, filter inboxdomain.ThreadFilter) ([]*inboxdomain.Thread, error)
	FindThread(userID, threadID string) (*inboxdomain.Thread, error)
	UpsertThread(thread *inboxdomain.Thread) error

	ListMessages(userID, threadID string) ([]*inboxdomain.Message, error)
	UpsertMessage(message *inboxdomain.Message) error
	// ListSentMessages returns the most recent outbound messages
	ListSentMessages(userID string, since time.Time, limit int) ([]*inboxdomain.Message, error)

	FindContactByEmail(userID, email string) (*inboxdomain.Contact, error)
	SearchContacts(userID, query string, limit int) ([]*inboxdomain.Contact, error)
	UpsertContact(contact *inboxdomain.Contact) error

	ListDrafts(userID, threadID string) ([]*inboxdomain.Draft, error)

	ListOrders(userID, customerEmail, orderNumber string, limit int) ([]*inboxdomain.Order, error)
}
