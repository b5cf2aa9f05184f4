// Package digest builds and caches the compressed skill and question
// summary that is embedded in every interview system prompt.
//
// A digest is computed once per interview and reused by every later turn.
// Concurrent turns of the same interview share one computation.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache stores digests by interview ID.
type Cache interface {
	// Get returns the cached digest and whether one was found.
	Get(ctx context.Context, interviewID string) (string, bool, error)
	// Set stores a digest.
	Set(ctx context.Context, interviewID, digest string) error
}

// Source is the interview content a digest summarizes.
type Source struct {
	InterviewID string
	Skills      []string
	Questions   []string
}

// Digester resolves digests through a Cache, computing missing ones.
type Digester struct {
	cache    Cache
	maxChars int
	logger   *slog.Logger
	group    singleflight.Group
}

// Option configures a Digester.
type Option func(*Digester)

// WithMaxChars bounds the digest length. Default: 4000.
func WithMaxChars(n int) Option {
	return func(d *Digester) {
		if n > 0 {
			d.maxChars = n
		}
	}
}

// WithLogger logs cache failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Digester) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a Digester over cache. A nil cache gets a MemoryCache.
func New(cache Cache, opts ...Option) *Digester {
	if cache == nil {
		cache = NewMemoryCache(0)
	}
	d := &Digester{
		cache:    cache,
		maxChars: 4000,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Get returns the digest for src, computing and caching it when absent.
//
// Cache failures are logged and the freshly computed digest is returned, so
// a broken cache degrades to recomputation rather than failing the turn.
func (d *Digester) Get(ctx context.Context, src Source) (string, error) {
	if src.InterviewID == "" {
		return Compute(src.Skills, src.Questions, d.maxChars), nil
	}

	v, err, _ := d.group.Do(src.InterviewID, func() (any, error) {
		cached, ok, err := d.cache.Get(ctx, src.InterviewID)
		if err != nil {
			d.logger.Warn("digest cache get failed",
				slog.String("interview_id", src.InterviewID),
				slog.String("error", err.Error()))
		} else if ok {
			return cached, nil
		}

		digest := Compute(src.Skills, src.Questions, d.maxChars)
		if err := d.cache.Set(ctx, src.InterviewID, digest); err != nil {
			d.logger.Warn("digest cache set failed",
				slog.String("interview_id", src.InterviewID),
				slog.String("error", err.Error()))
		}
		return digest, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Compute builds a digest: skills de-duplicated case-insensitively in first
// seen order, then questions numbered from 1, truncated to maxChars runes.
// A non-positive maxChars disables truncation.
func Compute(skills, questions []string, maxChars int) string {
	var b strings.Builder

	seen := make(map[string]bool, len(skills))
	var unique []string
	for _, s := range skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, s)
	}
	if len(unique) > 0 {
		b.WriteString("Skills: ")
		b.WriteString(strings.Join(unique, ", "))
		b.WriteString("\n")
	}

	n := 0
	for _, q := range questions {
		q = strings.Join(strings.Fields(q), " ")
		if q == "" {
			continue
		}
		if n == 0 {
			b.WriteString("Questions:\n")
		}
		n++
		fmt.Fprintf(&b, "%d. %s\n", n, q)
	}

	return truncate(strings.TrimRight(b.String(), "\n"), maxChars)
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	const ellipsis = "..."
	if maxChars <= len(ellipsis) {
		return string(runes[:maxChars])
	}
	return string(runes[:maxChars-len(ellipsis)]) + ellipsis
}

// entry is a cached digest with its expiry; a zero expiry never expires.
type entry struct {
	digest    string
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}
