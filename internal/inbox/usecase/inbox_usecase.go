package usecase

import (
	"errors"
	"sort"

	inboxdomain "nexus-backend/internal/inbox/domain"
	"nexus-backend/internal/inbox/repository"
	"nexus-backend/pkg/fuzzy"
)

var ErrThreadNotFound = errors.New("thread not found")

// searchWindow bounds how many recent threads are ranked per query
const searchWindow = 300

// ThreadDetail is a thread with its messages, drafts and the primary contact
type ThreadDetail struct {
	Thread   *inboxdomain.Thread    `json:"thread"`
	Messages []*inboxdomain.Message `json:"messages"`
	Drafts   []*inboxdomain.Draft   `json:"drafts,omitempty"`
	Contact  *inboxdomain.Contact   `json:"contact,omitempty"`
}

// SearchHit is one ranked search result
type SearchHit struct {
	Thread *inboxdomain.Thread `json:"thread"`
	Score  float64             `json:"score"`
}

type InboxUsecase struct {
	repo repository.InboxRepository
}

func NewInboxUsecase(repo repository.InboxRepository) *InboxUsecase {
	return &InboxUsecase{repo: repo}
}

// SearchThreads ranks the user's recent threads against query with typo tolerance.
// An empty query returns the most recent threads.
func (u *InboxUsecase) SearchThreads(userID, query string, unreadOnly bool, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	threads, err := u.repo.ListThreads(userID, inboxdomain.ThreadFilter{Limit: searchWindow})
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(threads))
	for _, t := range threads {
		if unreadOnly && !t.IsUnread {
			continue
		}
		if query == "" {
			hits = append(hits, SearchHit{Thread: t})
			continue
		}
		if score := fuzzy.ScoreThread(query, t.Subject, t.Snippet, t.Participants); score > 0 {
			hits = append(hits, SearchHit{Thread: t, Score: score})
		}
	}

	// Stable keeps recency order among equal scores
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (u *InboxUsecase) GetThreadDetail(userID, threadID string) (*ThreadDetail, error) {
	thread, err := u.repo.FindThread(userID, threadID)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, ErrThreadNotFound
	}

	messages, err := u.repo.ListMessages(userID, threadID)
	if err != nil {
		return nil, err
	}
	drafts, err := u.repo.ListDrafts(userID, threadID)
	if err != nil {
		return nil, err
	}

	detail := &ThreadDetail{Thread: thread, Messages: messages, Drafts: drafts}
	// Primary contact is the first inbound sender
	for _, m := range messages {
		if m.Direction == inboxdomain.DirectionInbound && m.FromEmail != "" {
			detail.Contact, err = u.repo.FindContactByEmail(userID, m.FromEmail)
			if err != nil {
				return nil, err
			}
			break
		}
	}
	return detail, nil
}

// LatestInbound returns the newest inbound message of a thread, or nil
func (u *InboxUsecase) LatestInbound(userID, threadID string) (*inboxdomain.Message, error) {
	messages, err := u.repo.ListMessages(userID, threadID)
	if err != nil {
		return nil, err
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Direction == inboxdomain.DirectionInbound {
			return messages[i], nil
		}
	}
	return nil, nil
}

func (u *InboxUsecase) FindContact(userID, emailOrName string) ([]*inboxdomain.Contact, error) {
	contact, err := u.repo.FindContactByEmail(userID, emailOrName)
	if err != nil {
		return nil, err
	}
	if contact != nil {
		return []*inboxdomain.Contact{contact}, nil
	}
	return u.repo.SearchContacts(userID, emailOrName, 5)
}

func (u *InboxUsecase) ListOrders(userID, customerEmail, orderNumber string, limit int) ([]*inboxdomain.Order, error) {
	return u.repo.ListOrders(userID, customerEmail, orderNumber, limit)
}

// ListThreads passes through to the repository for read-only views
func (u *InboxUsecase) ListThreads(userID string, filter inboxdomain.ThreadFilter) ([]*inboxdomain.Thread, error) {
	return u.repo.ListThreads(userID, filter)
}
