// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package proxy finds a working proxy from free proxy lists so the Scholar
// client can spread its requests. Selection is best-effort: callers log the
// error and continue without a proxy.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pubfetch/pkg/types"
)

// ErrNoProxy means no candidate passed validation.
var ErrNoProxy = errors.New("no working proxy found")

// Candidate is a proxy address reported by a source.
type Candidate struct {
	// Scheme is "http" or "socks5".
	Scheme string

	// Host is "ip:port".
	Host string

	// Source names the list the candidate came from.
	Source string

	// User carries credentials for a configured proxy, if any.
	User *url.Userinfo
}

// Key identifies the candidate across sources.
func (c Candidate) Key() string {
	return c.Scheme + "://" + c.Host
}

// URL returns the proxy URL for use with http.ProxyURL.
func (c Candidate) URL() *url.URL {
	return &url.URL{Scheme: c.Scheme, Host: c.Host, User: c.User}
}

// Source lists proxy candidates.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Candidate, error)
}

// Selector hands out validated proxies, never the same one twice. Each
// Select call rotates to the next working candidate.
type Selector struct {
	sources       []Source
	check         func(ctx context.Context, c Candidate) error
	maxCandidates int
	log           zerolog.Logger

	pool []Candidate
	used map[string]bool
}

// NewSelector builds a selector over sources, validating candidates with a
// Validator configured from cfg.
func NewSelector(cfg types.ProxyConfig, log zerolog.Logger, sources ...Source) *Selector {
	maxCandidates := cfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = types.DefaultProxyCandidates
	}
	v := &Validator{Timeout: cfg.Timeout, Target: cfg.ValidationTarget}
	return &Selector{
		sources:       sources,
		check:         v.Check,
		maxCandidates: maxCandidates,
		log:           log,
		used:          make(map[string]bool),
	}
}

// Select returns the next working proxy. At most maxCandidates candidates
// are validated per call. The candidate pool is gathered on first use and
// gathered again whenever a call starts with it empty.
func (s *Selector) Select(ctx context.Context) (*url.URL, error) {
	if len(s.pool) == 0 {
		s.refill(ctx)
	}

	tried := 0
	for len(s.pool) > 0 && tried < s.maxCandidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := s.pool[0]
		s.pool = s.pool[1:]
		s.used[c.Key()] = true
		tried++

		if err := s.check(ctx, c); err != nil {
			s.log.Debug().Err(err).Str("proxy", c.Key()).Str("source", c.Source).Msg("Proxy failed validation.")
			continue
		}
		s.log.Info().Str("proxy", c.Key()).Str("source", c.Source).Int("tried", tried).Msg("Proxy validated.")
		return c.URL(), nil
	}
	return nil, fmt.Errorf("%w (%d candidates tried)", ErrNoProxy, tried)
}

// refill gathers unused candidates from every source, in source order. A
// failing source is logged and skipped.
func (s *Selector) refill(ctx context.Context) {
	seen := make(map[string]bool)
	for _, src := range s.sources {
		cands, err := src.Fetch(ctx)
		if err != nil {
			s.log.Warn().Err(err).Str("source", src.Name()).Msg("Proxy source failed.")
			continue
		}
		added := 0
		for _, c := range cands {
			if s.used[c.Key()] || seen[c.Key()] {
				continue
			}
			seen[c.Key()] = true
			s.pool = append(s.pool, c)
			added++
		}
		s.log.Debug().Str("source", src.Name()).Int("count", added).Msg("Proxy source listed candidates.")
	}
}
