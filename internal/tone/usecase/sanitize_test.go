package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_StripsReplyChain(t *testing.T) {
	in := "Hi Ana,\n\nTuesday works for me.\n\nOn Mon, Oct 19, 2026 at 9:00 AM Ana <ana@example.com> wrote:\n> Does Tuesday work?\n> Thanks"
	assert.Equal(t, "Hi Ana,\n\nTuesday works for me.", Sanitize(in))
}

func TestSanitize_StripsSignatureAndQuotes(t *testing.T) {
	in := "Quick update:\n> earlier text\nShipping tomorrow.\n\n\n\nThanks!\n-- \nJohn Smith\nCEO"
	assert.Equal(t, "Quick update:\nShipping tomorrow.\n\nThanks!", Sanitize(in))
}

func TestSanitize_MobileFooter(t *testing.T) {
	assert.Equal(t, "On my way", Sanitize("On my way\n\nSent from my iPhone"))
}

func TestSanitize_ForwardedAndOutlookHeaders(t *testing.T) {
	assert.Equal(t, "See below.", Sanitize("See below.\n\n---------- Forwarded message ---------\nFrom: x"))
	assert.Equal(t, "Agreed.", Sanitize("Agreed.\n\nFrom: Bob <bob@example.com>\nSent: Monday\nSubject: plan"))
}

func TestSanitize_Markup(t *testing.T) {
	in := `<html><head><style>p{}</style></head><body><div>Hello team,</div><p>The launch moved to <b>Friday</b>.</p><blockquote>old thread</blockquote></body></html>`
	assert.Equal(t, "Hello team,\nThe launch moved to Friday.", Sanitize(in))
}
