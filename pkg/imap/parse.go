package imap

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"nexus-backend/pkg/mailbox"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const maxBodyBytes = 1 << 20

// ParseMessage reads an RFC 5322 message. The plain-text part is preferred over HTML.
func ParseMessage(r io.Reader) (mailbox.Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return mailbox.Message{}, fmt.Errorf("parse message: %w", err)
	}
	defer mr.Close()

	h := mr.Header
	msg := mailbox.Message{}
	msg.Subject, _ = h.Subject()
	msg.SentAt, _ = h.Date()
	msg.ExternalID, _ = h.MessageID()
	msg.ThreadID = threadID(h, msg.ExternalID)

	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = strings.ToLower(from[0].Address)
		msg.FromName = from[0].Name
	}
	if to, err := h.AddressList("To"); err == nil {
		for _, a := range to {
			msg.To = append(msg.To, strings.ToLower(a.Address))
		}
	}

	var plain, html string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// keep what was read so far
			break
		}
		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := inline.ContentType()
		data, err := io.ReadAll(io.LimitReader(part.Body, maxBodyBytes))
		if err != nil {
			continue
		}
		switch contentType {
		case "text/plain":
			if plain == "" {
				plain = string(data)
			}
		case "text/html":
			if html == "" {
				html = string(data)
			}
		}
	}

	if plain != "" {
		msg.Body = plain
	} else {
		msg.Body, msg.IsHTML = html, html != ""
	}
	return msg, nil
}

// threadID is the root of the References chain, else In-Reply-To, else the message itself
func threadID(h mail.Header, messageID string) string {
	if refs, err := h.MsgIDList("References"); err == nil && len(refs) > 0 {
		return refs[0]
	}
	if parents, err := h.MsgIDList("In-Reply-To"); err == nil && len(parents) > 0 {
		return parents[0]
	}
	return messageID
}
