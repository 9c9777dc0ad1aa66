package gmail

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"nexus-backend/pkg/mailbox"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
)

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestConvertMessage(t *testing.T) {
	msg := &gmail.Message{
		Id:           "m1",
		ThreadId:     "t1",
		LabelIds:     []string{"INBOX", "UNREAD", "IMPORTANT"},
		InternalDate: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC).UnixMilli(),
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "Ana Lopez <Ana@Example.com>"},
				{Name: "To", Value: "me@example.com, Bob <bob@example.com>"},
				{Name: "Subject", Value: "Contract"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: encode("<p>Hi</p>")}},
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encode("Hi there")}},
			},
		},
	}

	got := convertMessage(msg)
	assert.Equal(t, "ana@example.com", got.From)
	assert.Equal(t, "Ana Lopez", got.FromName)
	assert.Equal(t, []string{"me@example.com", "bob@example.com"}, got.To)
	assert.Equal(t, "Hi there", got.Body)
	assert.False(t, got.IsHTML)
	assert.True(t, got.Unread)
	assert.True(t, got.Important)
	assert.False(t, got.Sent)
	assert.Equal(t, 2026, got.SentAt.UTC().Year())
}

func TestGetEmailBody_HTMLOnly(t *testing.T) {
	body, isHTML := getEmailBody(&gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: encode("<b>x</b>")}},
			{MimeType: "text/plain", Filename: "notes.txt", Body: &gmail.MessagePartBody{Data: encode("attachment")}},
		},
	})
	assert.Equal(t, "<b>x</b>", body)
	assert.True(t, isHTML)
}

func TestConvertThreadOrdersMessages(t *testing.T) {
	thread := convertThread(&gmail.Thread{
		Id: "t1",
		Messages: []*gmail.Message{
			{Id: "late", InternalDate: 2000, Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{{Name: "Subject", Value: "Re: Plan"}}}},
			{Id: "early", InternalDate: 1000, Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{{Name: "Subject", Value: "Plan"}}}},
		},
	})
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, "early", thread.Messages[0].ExternalID)
	assert.Equal(t, "Plan", thread.Subject)
	assert.Equal(t, "late", thread.Latest().ExternalID)
}

func TestFetchAllSkipsFailures(t *testing.T) {
	got := fetchAll([]string{"a", "bad", "c"}, func(id string) (*string, error) {
		if id == "bad" {
			return nil, errors.New("boom")
		}
		return &id, nil
	})
	assert.Len(t, got, 2)
}

func TestNewestThreadsFirst(t *testing.T) {
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	fetched := []*mailbox.Thread{
		{ExternalID: "old", Messages: []mailbox.Message{{SentAt: base}}},
		{ExternalID: "empty"},
		{ExternalID: "new", Messages: []mailbox.Message{{SentAt: base}, {SentAt: base.Add(48 * time.Hour)}}},
	}

	threads := newestThreadsFirst(fetched)

	require.Len(t, threads, 3)
	assert.Equal(t, "new", threads[0].ExternalID)
	assert.Equal(t, "old", threads[1].ExternalID)
	assert.Equal(t, "empty", threads[2].ExternalID)
}
