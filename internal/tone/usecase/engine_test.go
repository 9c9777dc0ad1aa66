package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	inboxdomain "nexus-backend/internal/inbox/domain"
	"nexus-backend/internal/tone/domain"
	"nexus-backend/pkg/ai"
	"nexus-backend/pkg/chroma"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedChat struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (s *scriptedChat) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls >= len(s.responses) {
		return nil, errors.New("no scripted response")
	}
	out := s.responses[s.calls]
	s.calls++
	return &ai.ChatResponse{Content: out}, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

type memProfiles struct {
	profiles map[string]*domain.ToneProfile
}

func (m *memProfiles) FindByUser(userID string) (*domain.ToneProfile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) Save(p *domain.ToneProfile) error {
	cp := *p
	m.profiles[p.UserID] = &cp
	return nil
}

type memExemplars struct {
	items []*domain.Exemplar
}

func (m *memExemplars) Create(e *domain.Exemplar) error {
	m.items = append(m.items, e)
	return nil
}

func (m *memExemplars) FindByIDs(userID string, ids []string) ([]*domain.Exemplar, error) {
	var out []*domain.Exemplar
	for _, e := range m.items {
		for _, id := range ids {
			if e.ID == id && e.UserID == userID {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (m *memExemplars) ListByUser(userID string, limit int) ([]*domain.Exemplar, error) {
	var out []*domain.Exemplar
	for _, e := range m.items {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeIndex struct {
	upserts []string
	matches []chroma.Match
}

func (f *fakeIndex) Upsert(ctx context.Context, id, userID, category, text string) error {
	f.upserts = append(f.upserts, id)
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, userID, text string, limit int) ([]chroma.Match, error) {
	return f.matches, nil
}

func newEngine(chat ai.ChatService) (*Engine, *memProfiles, *memExemplars) {
	profiles := &memProfiles{profiles: map[string]*domain.ToneProfile{}}
	exemplars := &memExemplars{}
	e := NewEngine(chat, fakeEmbedder{}, profiles, exemplars)
	e.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return e, profiles, exemplars
}

func seedProfile(p *memProfiles, formality float64) {
	profile := domain.NewProfile("u1")
	profile.Formality = formality
	p.profiles["u1"] = profile
}

func TestEditRatio(t *testing.T) {
	assert.Equal(t, 0.0, EditRatio("", ""))
	assert.Equal(t, 0.0, EditRatio("same text", "same text"))
	draft := strings.Repeat("abcde", 20)
	assert.InDelta(t, 0.03, EditRatio(draft, draft[:97]+"XYZ"), 1e-9)
	assert.InDelta(t, 1.0, EditRatio("abc", "xyz"), 1e-9)
	assert.InDelta(t, 5.0/6, EditRatio("bbbaa ", " abccc"), 1e-9)
	assert.InDelta(t, 0.2, EditRatio("naïve café", "naive cafe"), 1e-9)
}

func TestEditRatio_RealisticPartialEdits(t *testing.T) {
	cases := []struct {
		draft, final string
		want         float64
	}{
		{
			"Thanks so much for reaching out! I'd love to chat next week.",
			"Happy to chat next week, thanks for reaching out.",
			43.0 / 60,
		},
		{
			"Hello team, please find attached the quarterly report for review.",
			"Team: quarterly report attached for review.",
			39.0 / 65,
		},
	}
	for _, tc := range cases {
		got := EditRatio(tc.draft, tc.final)
		assert.InDelta(t, tc.want, got, 1e-9, tc.final)
		assert.Less(t, got, domain.RewriteEditRatio, tc.final)
	}
}

func TestApplyFeedback_RewordedReplyIsDamped(t *testing.T) {
	chat := &scriptedChat{responses: []string{`{"formalityDelta": -2, "lengthDelta": -1, "warmthDelta": 0, "certaintyDelta": 1}`}}
	e, profiles, exemplars := newEngine(chat)
	seedProfile(profiles, 6)

	res, err := e.ApplyFeedback(context.Background(), "u1",
		"Thanks so much for reaching out! I'd love to chat next week.",
		"Happy to chat next week, thanks for reaching out.", "email")
	require.NoError(t, err)

	assert.Equal(t, domain.FeedbackAdjust, res.Outcome)
	assert.Empty(t, exemplars.items)
	stored := profiles.profiles["u1"]
	assert.InDelta(t, 5.4, stored.Formality, 1e-9)
	assert.InDelta(t, 4.7, stored.Length, 1e-9)
	assert.InDelta(t, 5.3, stored.Certainty, 1e-9)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo", 10))
	assert.Equal(t, "hé", truncate("héllo", 2))
	assert.Equal(t, "日本", truncate("日本語", 2))
}

func TestApplyFeedback_TrivialEditLeavesProfile(t *testing.T) {
	chat := &scriptedChat{}
	e, profiles, _ := newEngine(chat)
	seedProfile(profiles, 6)

	draft := strings.Repeat("abcde", 20)
	res, err := e.ApplyFeedback(context.Background(), "u1", draft, draft[:97]+"XYZ", "email")
	require.NoError(t, err)

	assert.Equal(t, domain.FeedbackTrivial, res.Outcome)
	assert.InDelta(t, 0.03, res.EditRatio, 1e-9)
	assert.Equal(t, 6.0, profiles.profiles["u1"].Formality)
	assert.Zero(t, chat.calls)
}

func TestApplyFeedback_PartialEditDampsDelta(t *testing.T) {
	chat := &scriptedChat{responses: []string{`{"formalityDelta": 2, "lengthDelta": 0, "warmthDelta": 0, "certaintyDelta": 0, "quirk": "drops greetings"}`}}
	e, profiles, _ := newEngine(chat)
	seedProfile(profiles, 6)

	draft := strings.Repeat("abcde", 20)
	final := draft[:55] + strings.Repeat("X", 45)
	res, err := e.ApplyFeedback(context.Background(), "u1", draft, final, "email")
	require.NoError(t, err)

	assert.Equal(t, domain.FeedbackAdjust, res.Outcome)
	assert.InDelta(t, 0.45, res.EditRatio, 1e-9)
	stored := profiles.profiles["u1"]
	assert.InDelta(t, 6.6, stored.Formality, 1e-9)
	assert.Equal(t, 5.0, stored.Warmth)
	assert.Equal(t, []string{"drops greetings"}, []string(stored.Quirks))
}

func TestApplyFeedback_RewriteStoresExemplarOnly(t *testing.T) {
	chat := &scriptedChat{}
	e, profiles, exemplars := newEngine(chat)
	index := &fakeIndex{}
	e.SetIndex(index)
	seedProfile(profiles, 6)

	res, err := e.ApplyFeedback(context.Background(), "u1",
		strings.Repeat("a", 60),
		"Totally different words written by the user themselves here.", "email")
	require.NoError(t, err)

	assert.Equal(t, domain.FeedbackRewrite, res.Outcome)
	require.Len(t, exemplars.items, 1)
	assert.Equal(t, domain.CategoryUserRewrite, exemplars.items[0].Category)
	assert.Equal(t, res.ExemplarID, exemplars.items[0].ID)
	assert.Equal(t, []string{res.ExemplarID}, index.upserts)
	assert.Equal(t, 6.0, profiles.profiles["u1"].Formality)
	assert.Zero(t, chat.calls)
}

func TestApplyFeedback_UnparseableDeltaIsSkipped(t *testing.T) {
	e, profiles, _ := newEngine(&scriptedChat{responses: []string{"not json at all"}})
	seedProfile(profiles, 6)

	draft := strings.Repeat("abcde", 20)
	res, err := e.ApplyFeedback(context.Background(), "u1", draft, draft[:55]+strings.Repeat("X", 45), "email")
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackSkipped, res.Outcome)
	assert.Equal(t, 6.0, profiles.profiles["u1"].Formality)
}

func TestApplyFeedback_ProfileStaysInRange(t *testing.T) {
	var responses []string
	for i := 0; i < 30; i++ {
		responses = append(responses, `{"formalityDelta": 5, "lengthDelta": -5, "warmthDelta": 5, "certaintyDelta": -5}`)
	}
	e, profiles, _ := newEngine(&scriptedChat{responses: responses})

	draft := strings.Repeat("abcde", 20)
	final := draft[:50] + strings.Repeat("X", 50)
	for i := 0; i < 30; i++ {
		_, err := e.ApplyFeedback(context.Background(), "u1", draft, final, "email")
		require.NoError(t, err)
		p := profiles.profiles["u1"]
		for _, v := range []float64{p.Formality, p.Length, p.Warmth, p.Certainty} {
			assert.GreaterOrEqual(t, v, domain.MinScore)
			assert.LessOrEqual(t, v, domain.MaxScore)
		}
	}
}

func syncMessages(n int) []string {
	var out []string
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("Message %02d with enough words to be a real sample.", i))
	}
	return out
}

func TestHistoricalSync_MedianOfScoredBatches(t *testing.T) {
	chat := &scriptedChat{responses: []string{
		`{"formality": 4, "length": 2, "warmth": 7, "certainty": 5}`,
		`this batch is garbage`,
		`{"formality": 8, "length": 4, "warmth": 9, "certainty": 5}`,
	}}
	e, profiles, exemplars := newEngine(chat)
	index := &fakeIndex{}
	e.SetIndex(index)

	messages := append(syncMessages(25), "ok", "thx!", "> quoted only")
	res, err := e.HistoricalSync(context.Background(), "u1", messages)
	require.NoError(t, err)

	assert.Equal(t, 25, res.MessagesUsed)
	assert.Equal(t, 2, res.BatchesScored)
	assert.Equal(t, 1, res.BatchesSkipped)
	assert.Equal(t, 3, chat.calls)

	stored := profiles.profiles["u1"]
	assert.Equal(t, 6.0, stored.Formality)
	assert.Equal(t, 3.0, stored.Length)
	assert.Equal(t, 8.0, stored.Warmth)
	assert.Equal(t, 5.0, stored.Certainty)
	require.NotNil(t, stored.SyncedAt)

	assert.Equal(t, 10, res.ExemplarsStored)
	assert.Len(t, exemplars.items, 10)
	assert.Len(t, index.upserts, 10)
	assert.Equal(t, domain.CategoryHistorical, exemplars.items[0].Category)
}

func TestHistoricalSync_NoUsableSamples(t *testing.T) {
	e, _, _ := newEngine(&scriptedChat{})
	_, err := e.HistoricalSync(context.Background(), "u1", []string{"ok", "thanks"})
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestHistoricalSync_AllBatchesFail(t *testing.T) {
	e, profiles, _ := newEngine(&scriptedChat{responses: []string{`{"formality": 42}`}})
	_, err := e.HistoricalSync(context.Background(), "u1", syncMessages(5))
	assert.ErrorIs(t, err, ErrNothingScored)
	assert.Empty(t, profiles.profiles)
}

func TestMedianDimensions_OrderIndependent(t *testing.T) {
	scores := []domain.Dimensions{
		{Formality: 3, Length: 9, Warmth: 1, Certainty: 2},
		{Formality: 7, Length: 1, Warmth: 4, Certainty: 2},
		{Formality: 5, Length: 5, Warmth: 10, Certainty: 8},
	}
	want := domain.Dimensions{Formality: 5, Length: 5, Warmth: 4, Certainty: 2}
	assert.Equal(t, want, MedianDimensions(scores))

	reversed := []domain.Dimensions{scores[2], scores[1], scores[0]}
	assert.Equal(t, want, MedianDimensions(reversed))
	assert.Equal(t, domain.Dimensions{Formality: 3, Length: 9, Warmth: 1, Certainty: 2}, scores[0], "input not mutated")
}

type fakeSent []*inboxdomain.Message

func (f fakeSent) ListSentMessages(userID string, since time.Time, limit int) ([]*inboxdomain.Message, error) {
	return f, nil
}

func TestSyncFromSentMail(t *testing.T) {
	e, profiles, _ := newEngine(&scriptedChat{responses: []string{`{"formality": 7, "length": 3, "warmth": 6, "certainty": 8}`}})
	var sent fakeSent
	for _, body := range syncMessages(4) {
		sent = append(sent, &inboxdomain.Message{Body: body + "\n\nOn Mon someone wrote:\n> hi"})
	}
	e.SetSentSource(sent)

	res, err := e.SyncFromSentMail(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, res.MessagesUsed)
	assert.Equal(t, 7.0, profiles.profiles["u1"].Formality)
}

func TestSimilarExemplars_UsesIndexOrder(t *testing.T) {
	e, _, exemplars := newEngine(&scriptedChat{})
	exemplars.items = []*domain.Exemplar{
		{ID: "a", UserID: "u1", Text: "first"},
		{ID: "b", UserID: "u1", Text: "second"},
	}
	e.SetIndex(&fakeIndex{matches: []chroma.Match{{ID: "b", Distance: 0.1}, {ID: "missing"}, {ID: "a", Distance: 0.4}}})

	got, err := e.SimilarExemplars(context.Background(), "u1", "query", 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestSimilarExemplars_LocalFallback(t *testing.T) {
	e, _, exemplars := newEngine(&scriptedChat{})
	exemplars.items = []*domain.Exemplar{
		{ID: "far", UserID: "u1", Embedding: []float32{0, 1}},
		{ID: "near", UserID: "u1", Embedding: []float32{5, 1}},
		{ID: "none", UserID: "u1"},
	}

	got, err := e.SimilarExemplars(context.Background(), "u1", "hello", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].ID)
}
