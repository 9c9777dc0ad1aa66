package repository

import (
	"errors"
	"strings"
	"time"

	inboxdomain "nexus-backend/internal/inbox/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormInboxRepository struct {
	db *gorm.DB
}

// NewGormInboxRepository creates a new GORM-based InboxRepository
func NewGormInboxRepository(db *gorm.DB) InboxRepository {
	return &gormInboxRepository{db: db}
}

func (r *gormInboxRepository) ListThreads(userID string, filter inboxdomain.ThreadFilter) ([]*inboxdomain.Thread, error) {
	var threads []*inboxdomain.Thread
	query := r.db.Where("user_id = ?", userID)
	if !filter.IncludeArchived {
		query = query.Where("status <> ?", inboxdomain.ThreadStatusArchived)
	}
	if filter.Since != nil {
		query = query.Where("last_message_at >= ?", *filter.Since)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	err := query.Order("last_message_at DESC").Find(&threads).Error
	return threads, err
}

func (r *gormInboxRepository) FindThread(userID, threadID string) (*inboxdomain.Thread, error) {
	var thread inboxdomain.Thread
	err := r.db.Where("user_id = ? AND id = ?", userID, threadID).First(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &thread, nil
}

// UpsertThread inserts or refreshes a thread keyed by (user_id, external_id)
func (r *gormInboxRepository) UpsertThread(thread *inboxdomain.Thread) error {
	if thread.ID == "" {
		thread.ID = uuid.New().String()
	}
	now := time.Now()
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = now
	}
	thread.UpdatedAt = now
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subject", "snippet", "participants", "is_unread", "last_message_at", "updated_at",
		}),
	}).Create(thread).Error
	if err != nil || thread.ExternalID == "" {
		return err
	}

	// On conflict the generated id is discarded, so report the stored one
	var stored inboxdomain.Thread
	err = r.db.Select("id").Where("user_id = ? AND external_id = ?", thread.UserID, thread.ExternalID).First(&stored).Error
	if err != nil {
		return err
	}
	thread.ID = stored.ID
	return nil
}

func (r *gormInboxRepository) ListMessages(userID, threadID string) ([]*inboxdomain.Message, error) {
	var messages []*inboxdomain.Message
	err := r.db.Where("user_id = ? AND thread_id = ?", userID, threadID).
		Order("sent_at ASC").Find(&messages).Error
	return messages, err
}

func (r *gormInboxRepository) UpsertMessage(message *inboxdomain.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "external_id"}},
		DoNothing: true,
	}).Create(message).Error
}

func (r *gormInboxRepository) ListSentMessages(userID string, since time.Time, limit int) ([]*inboxdomain.Message, error) {
	var messages []*inboxdomain.Message
	query := r.db.Where("user_id = ? AND direction = ? AND sent_at >= ?", userID, inboxdomain.DirectionOutbound, since).
		Order("sent_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&messages).Error
	return messages, err
}

func (r *gormInboxRepository) FindContactByEmail(userID, email string) (*inboxdomain.Contact, error) {
	var contact inboxdomain.Contact
	err := r.db.Where("user_id = ? AND LOWER(email) = ?", userID, strings.ToLower(email)).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

func (r *gormInboxRepository) SearchContacts(userID, query string, limit int) ([]*inboxdomain.Contact, error) {
	var contacts []*inboxdomain.Contact
	like := "%" + strings.ToLower(query) + "%"
	if limit <= 0 {
		limit = 10
	}
	err := r.db.Where("user_id = ? AND (LOWER(email) LIKE ? OR LOWER(name) LIKE ? OR LOWER(company) LIKE ?)", userID, like, like, like).
		Order("last_interaction_at DESC").Limit(limit).Find(&contacts).Error
	return contacts, err
}

func (r *gormInboxRepository) UpsertContact(contact *inboxdomain.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	now := time.Now()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "last_interaction_at", "updated_at"}),
	}).Create(contact).Error
}

func (r *gormInboxRepository) ListDrafts(userID, threadID string) ([]*inboxdomain.Draft, error) {
	var drafts []*inboxdomain.Draft
	err := r.db.Where("user_id = ? AND thread_id = ?", userID, threadID).
		Order("created_at DESC").Find(&drafts).Error
	return drafts, err
}

func (r *gormInboxRepository) ListOrders(userID, customerEmail, orderNumber string, limit int) ([]*inboxdomain.Order, error) {
	var orders []*inboxdomain.Order
	query := r.db.Where("user_id = ?", userID)
	if customerEmail != "" {
		query = query.Where("LOWER(customer_email) = ?", strings.ToLower(customerEmail))
	}
	if orderNumber != "" {
		query = query.Where("order_number = ?", strings.TrimPrefix(orderNumber, "#"))
	}
	if limit <= 0 {
		limit = 10
	}
	err := query.Order("placed_at DESC").Limit(limit).Find(&orders).Error
	return orders, err
}
