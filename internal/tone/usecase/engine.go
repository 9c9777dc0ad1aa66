package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	inboxdomain "nexus-backend/internal/inbox/domain"
	"nexus-backend/internal/tone/domain"
	"nexus-backend/internal/tone/repository"
	"nexus-backend/pkg/ai"
	"nexus-backend/pkg/chroma"
	"nexus-backend/pkg/fuzzy"
	"nexus-backend/pkg/metrics"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	minSampleChars   = 20
	syncBatchSize    = 10
	seedExemplars    = 10
	syncLookback     = 180 * 24 * time.Hour
	syncMessageLimit = 200
	maxPromptSample  = 1200
)

var (
	ErrNoSamples     = errors.New("no usable sent messages to learn from")
	ErrNothingScored = errors.New("no batch could be scored")
	ErrEmptyFeedback = errors.New("draft and final text are required")
)

// SentSource lists the user's sent messages
type SentSource interface {
	ListSentMessages(userID string, since time.Time, limit int) ([]*inboxdomain.Message, error)
}

// ExemplarIndex is the vector index exemplars are mirrored into
type ExemplarIndex interface {
	Upsert(ctx context.Context, id, userID, category, text string) error
	Query(ctx context.Context, userID, text string, limit int) ([]chroma.Match, error)
}

// Engine learns and maintains each user's tone profile
type Engine struct {
	chat      ai.ChatService
	embedder  ai.Embedder
	profiles  repository.ProfileRepository
	exemplars repository.ExemplarRepository
	index     ExemplarIndex
	sent      SentSource
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewEngine(chat ai.ChatService, embedder ai.Embedder, profiles repository.ProfileRepository, exemplars repository.ExemplarRepository) *Engine {
	return &Engine{
		chat:      chat,
		embedder:  embedder,
		profiles:  profiles,
		exemplars: exemplars,
		now:       time.Now,
	}
}

func (e *Engine) SetIndex(index ExemplarIndex) {
	e.index = index
}

func (e *Engine) SetSentSource(sent SentSource) {
	e.sent = sent
}

func (e *Engine) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// GetProfile returns the stored profile or a neutral one
func (e *Engine) GetProfile(userID string) (*domain.ToneProfile, error) {
	profile, err := e.profiles.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return domain.NewProfile(userID), nil
	}
	return profile, nil
}

// SyncFromSentMail runs HistoricalSync over the user's recent sent messages
func (e *Engine) SyncFromSentMail(ctx context.Context, userID string) (*domain.SyncResult, error) {
	if e.sent == nil {
		return nil, fmt.Errorf("no sent message source configured")
	}
	messages, err := e.sent.ListSentMessages(userID, e.now().Add(-syncLookback), syncMessageLimit)
	if err != nil {
		return nil, err
	}
	bodies := make([]string, 0, len(messages))
	for _, m := range messages {
		bodies = append(bodies, m.Body)
	}
	return e.HistoricalSync(ctx, userID, bodies)
}

// HistoricalSync replaces the numeric profile with the per-dimension median of the
// scored batches and seeds the exemplar corpus. Batches that fail are skipped.
func (e *Engine) HistoricalSync(ctx context.Context, userID string, messages []string) (*domain.SyncResult, error) {
	samples := make([]string, 0, len(messages))
	for _, m := range messages {
		clean := Sanitize(m)
		if utf8.RuneCountInString(clean) < minSampleChars {
			continue
		}
		samples = append(samples, clean)
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	result := &domain.SyncResult{MessagesUsed: len(samples)}
	var scores []domain.Dimensions
	for start := 0; start < len(samples); start += syncBatchSize {
		end := start + syncBatchSize
		if end > len(samples) {
			end = len(samples)
		}
		dims, err := e.scoreBatch(ctx, samples[start:end])
		if err != nil {
			log.Printf("[ToneSync] Skipping batch %d-%d for user %s: %v", start, end, userID, err)
			result.BatchesSkipped++
			continue
		}
		scores = append(scores, dims)
	}
	result.BatchesScored = len(scores)
	if len(scores) == 0 {
		return nil, ErrNothingScored
	}

	profile, err := e.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	profile.SetDimensions(MedianDimensions(scores))
	profile.SampleCount = len(samples)
	syncedAt := e.now()
	profile.SyncedAt = &syncedAt
	if err := e.profiles.Save(profile); err != nil {
		return nil, err
	}
	result.Profile = profile
	e.metrics.IncToneUpdate("sync")

	seeds := samples
	if len(seeds) > seedExemplars {
		seeds = seeds[:seedExemplars]
	}
	for _, text := range seeds {
		if _, err := e.storeExemplar(ctx, userID, text, domain.CategoryHistorical, "email"); err != nil {
			log.Printf("[ToneSync] Failed to store exemplar for user %s: %v", userID, err)
			continue
		}
		result.ExemplarsStored++
	}

	log.Printf("[ToneSync] User %s: %d samples, %d/%d batches scored, %d exemplars",
		userID, len(samples), result.BatchesScored, result.BatchesScored+result.BatchesSkipped, result.ExemplarsStored)
	return result, nil
}

// ApplyFeedback learns from a user's edit of an assistant draft
func (e *Engine) ApplyFeedback(ctx context.Context, userID, draft, final, channel string) (*domain.FeedbackResult, error) {
	if strings.TrimSpace(draft) == "" || strings.TrimSpace(final) == "" {
		return nil, ErrEmptyFeedback
	}

	ratio := EditRatio(draft, final)
	result := &domain.FeedbackResult{EditRatio: ratio}

	switch {
	case ratio < domain.TrivialEditRatio:
		result.Outcome = domain.FeedbackTrivial
		e.metrics.IncToneUpdate(string(domain.FeedbackTrivial))
		return result, nil

	case ratio > domain.RewriteEditRatio:
		exemplar, err := e.storeExemplar(ctx, userID, Sanitize(final), domain.CategoryUserRewrite, channel)
		if err != nil {
			return nil, err
		}
		result.Outcome = domain.FeedbackRewrite
		result.ExemplarID = exemplar.ID
		e.metrics.IncToneUpdate(string(domain.FeedbackRewrite))
		return result, nil
	}

	delta, quirk, err := e.estimateDelta(ctx, draft, final)
	if err != nil {
		var parseErr *deltaParseError
		if errors.As(err, &parseErr) {
			log.Printf("[ToneFeedback] Unusable delta estimate for user %s: %v", userID, err)
			result.Outcome = domain.FeedbackSkipped
			e.metrics.IncToneUpdate(string(domain.FeedbackSkipped))
			return result, nil
		}
		return nil, err
	}

	profile, err := e.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	profile.SetDimensions(profile.Dimensions().Damped(delta, domain.DampingFactor))
	profile.AddQuirk(quirk)
	if err := e.profiles.Save(profile); err != nil {
		return nil, err
	}

	result.Outcome = domain.FeedbackAdjust
	result.Delta = &delta
	result.Quirk = quirk
	result.Profile = profile
	e.metrics.IncToneUpdate(string(domain.FeedbackAdjust))
	return result, nil
}

// SimilarExemplars returns the k exemplars closest in style to text
func (e *Engine) SimilarExemplars(ctx context.Context, userID, text string, k int) ([]domain.SimilarExemplar, error) {
	if k <= 0 {
		k = 3
	}
	if e.index != nil {
		matches, err := e.index.Query(ctx, userID, text, k)
		if err == nil {
			return e.resolveMatches(userID, matches)
		}
		log.Printf("[ToneSync] Vector index query failed, scanning locally: %v", err)
	}
	return e.localSimilar(ctx, userID, text, k)
}

func (e *Engine) resolveMatches(userID string, matches []chroma.Match) ([]domain.SimilarExemplar, error) {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	found, err := e.exemplars.FindByIDs(userID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Exemplar, len(found))
	for _, ex := range found {
		byID[ex.ID] = ex
	}

	out := make([]domain.SimilarExemplar, 0, len(matches))
	for _, m := range matches {
		if ex, ok := byID[m.ID]; ok {
			out = append(out, domain.SimilarExemplar{Exemplar: *ex, Distance: m.Distance})
		}
	}
	return out, nil
}

func (e *Engine) localSimilar(ctx context.Context, userID, text string, k int) ([]domain.SimilarExemplar, error) {
	query, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	all, err := e.exemplars.ListByUser(userID, 0)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SimilarExemplar, 0, len(all))
	for _, ex := range all {
		if len(ex.Embedding) == 0 {
			continue
		}
		out = append(out, domain.SimilarExemplar{Exemplar: *ex, Distance: 1 - cosine(query, ex.Embedding)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (e *Engine) storeExemplar(ctx context.Context, userID, text, category, channel string) (*domain.Exemplar, error) {
	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed exemplar: %w", err)
	}
	if channel == "" {
		channel = "email"
	}
	exemplar := &domain.Exemplar{
		ID:        uuid.New().String(),
		UserID:    userID,
		Text:      text,
		Category:  category,
		Channel:   channel,
		Embedding: vector,
	}
	if err := e.exemplars.Create(exemplar); err != nil {
		return nil, err
	}
	if e.index != nil {
		if err := e.index.Upsert(ctx, exemplar.ID, userID, category, text); err != nil {
			log.Printf("[ToneSync] Failed to index exemplar %s: %v", exemplar.ID, err)
		}
	}
	return exemplar, nil
}

func (e *Engine) scoreBatch(ctx context.Context, batch []string) (domain.Dimensions, error) {
	var b strings.Builder
	for i, s := range batch {
		fmt.Fprintf(&b, "--- Message %d ---\n%s\n\n", i+1, truncate(s, maxPromptSample))
	}

	resp, err := e.chat.Chat(ctx, ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: scorePrompt},
			{Role: ai.RoleUser, Content: b.String()},
		},
		Temperature:  0.1,
		MaxTokens:    200,
		JSONResponse: true,
	})
	if err != nil {
		return domain.Dimensions{}, err
	}

	var dims domain.Dimensions
	if err := ai.DecodeJSON(resp.Content, &dims); err != nil {
		return domain.Dimensions{}, err
	}
	for _, v := range []float64{dims.Formality, dims.Length, dims.Warmth, dims.Certainty} {
		if v < domain.MinScore || v > domain.MaxScore {
			return domain.Dimensions{}, fmt.Errorf("score %v out of range", v)
		}
	}
	return dims, nil
}

type deltaParseError struct {
	err error
}

func (e *deltaParseError) Error() string { return "parse delta: " + e.err.Error() }

func (e *Engine) estimateDelta(ctx context.Context, draft, final string) (domain.Dimensions, string, error) {
	resp, err := e.chat.Chat(ctx, ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: deltaPrompt},
			{Role: ai.RoleUser, Content: fmt.Sprintf("ORIGINAL DRAFT:\n%s\n\nWHAT THE USER SENT:\n%s", truncate(draft, 3000), truncate(final, 3000))},
		},
		Temperature:  0.1,
		MaxTokens:    200,
		JSONResponse: true,
	})
	if err != nil {
		return domain.Dimensions{}, "", err
	}

	var raw struct {
		FormalityDelta float64 `json:"formalityDelta"`
		LengthDelta    float64 `json:"lengthDelta"`
		WarmthDelta    float64 `json:"warmthDelta"`
		CertaintyDelta float64 `json:"certaintyDelta"`
		Quirk          string  `json:"quirk"`
	}
	if err := ai.DecodeJSON(resp.Content, &raw); err != nil {
		return domain.Dimensions{}, "", &deltaParseError{err: err}
	}
	return domain.Dimensions{
		Formality: raw.FormalityDelta,
		Length:    raw.LengthDelta,
		Warmth:    raw.WarmthDelta,
		Certainty: raw.CertaintyDelta,
	}, strings.TrimSpace(raw.Quirk), nil
}

// EditRatio is the Levenshtein distance between a and b over the longer length, in runes.
// The shared prefix and suffix cost nothing, so only the differing middle is compared.
func EditRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longer := max(len(ra), len(rb))
	if longer == 0 {
		return 0
	}

	dmp := diffmatchpatch.New()
	prefix := dmp.DiffCommonPrefix(a, b)
	ra, rb = ra[prefix:], rb[prefix:]
	suffix := dmp.DiffCommonSuffix(string(ra), string(rb))
	ra, rb = ra[:len(ra)-suffix], rb[:len(rb)-suffix]

	return float64(fuzzy.RuneDistance(string(ra), string(rb))) / float64(longer)
}

// MedianDimensions takes the per-axis median, so the result does not depend on order
func MedianDimensions(scores []domain.Dimensions) domain.Dimensions {
	pick := func(get func(domain.Dimensions) float64) float64 {
		vals := make([]float64, len(scores))
		for i, s := range scores {
			vals[i] = get(s)
		}
		return median(vals)
	}
	return domain.Dimensions{
		Formality: pick(func(d domain.Dimensions) float64 { return d.Formality }),
		Length:    pick(func(d domain.Dimensions) float64 { return d.Length }),
		Warmth:    pick(func(d domain.Dimensions) float64 { return d.Warmth }),
		Certainty: pick(func(d domain.Dimensions) float64 { return d.Certainty }),
	}
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return domain.NeutralScore
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// truncate keeps at most n runes so multi-byte characters are never split
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

const scorePrompt = `You analyse the writing style of one person from a batch of their sent emails.
Score the batch as a whole on four dimensions from 1 to 10:
- formality: 1 = very casual, 10 = very formal
- length: 1 = terse one-liners, 10 = long detailed messages
- warmth: 1 = cold and transactional, 10 = very warm and personal
- certainty: 1 = hedging and tentative, 10 = direct and assertive

Return ONLY a JSON object: {"formality": n, "length": n, "warmth": n, "certainty": n}`

const deltaPrompt = `A user edited an AI-written email draft before sending it.
Estimate how the user's edit shifted the style on each dimension, as a signed number between -5 and 5:
formality, length, warmth, certainty. Positive means the user's version is more of that quality.
Optionally note one short recurring habit ("quirk") the edit reveals, or an empty string.

Return ONLY a JSON object:
{"formalityDelta": n, "lengthDelta": n, "warmthDelta": n, "certaintyDelta": n, "quirk": string}`
