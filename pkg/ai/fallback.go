package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

// quotaCooldown is how long a provider that answered 429 is skipped for chat
const quotaCooldown = 2 * time.Minute

var (
	quotaMarkers      = []string{"429", "quota", "rate limit", "too many requests", "resource_exhausted", "resource exhausted"}
	connectionMarkers = []string{"connection refused", "no such host", "network is unreachable", "connection reset", "timeout", "dial tcp", "eof"}
)

func containsAny(err error, markers []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func isQuotaError(err error) bool {
	return containsAny(err, quotaMarkers)
}

func isConnectionError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return containsAny(err, connectionMarkers)
}

// FallbackService routes chat to the primary provider (hosted, better tool calling)
// and embeddings to the secondary (local), each falling back to the other.
type FallbackService struct {
	primary   Provider
	secondary Provider

	mu          sync.Mutex
	benchedTill time.Time
	now         func() time.Time
}

func NewFallbackService(primary, secondary Provider) *FallbackService {
	return &FallbackService{primary: primary, secondary: secondary, now: time.Now}
}

func (f *FallbackService) primaryBenched() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now().Before(f.benchedTill)
}

func (f *FallbackService) bench() {
	f.mu.Lock()
	f.benchedTill = f.now().Add(quotaCooldown)
	f.mu.Unlock()
}

func (f *FallbackService) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	triedPrimary := false
	if !f.primaryBenched() {
		triedPrimary = true
		resp, err := f.primary.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		if isQuotaError(err) {
			f.bench()
			log.Printf("[AI] Primary provider out of quota, benched for %s: %v", quotaCooldown, err)
		} else {
			log.Printf("[AI] Primary provider failed, falling back: %v", err)
		}
	}

	resp, err := f.secondary.Chat(ctx, req)
	if err == nil {
		return resp, nil
	}
	// A benched primary is still better than nothing when the local model is down
	if isConnectionError(err) && (!triedPrimary || f.primaryBenched()) {
		log.Printf("[AI] Secondary provider unreachable, retrying primary: %v", err)
		return f.primary.Chat(ctx, req)
	}
	return nil, fmt.Errorf("fallback chat failed: %w", err)
}

func (f *FallbackService) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := f.secondary.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}
	log.Printf("[AI] Local embedding failed, using primary: %v", err)
	return f.primary.Embed(ctx, text)
}
