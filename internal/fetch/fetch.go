// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch runs the publication pipeline: locate the profile, list its
// publications, fetch each detail record, normalize, sort, and persist.
// The whole pipeline is one attempt; failed attempts are retried from
// scratch with backoff.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pubfetch/internal/backoff"
	"github.com/pdiddy/pubfetch/internal/scholar"
	"github.com/pdiddy/pubfetch/pkg/types"
)

// ErrAttemptsExhausted is wrapped by Run's error when every attempt failed.
// The output file is left untouched in that case.
var ErrAttemptsExhausted = errors.New("fetch attempts exhausted")

// Source is the publication data source.
type Source interface {
	LookupProfile(ctx context.Context, id string) (scholar.Profile, error)
	ListPublications(ctx context.Context, p scholar.Profile, limit int) ([]scholar.PublicationStub, error)
	FetchDetail(ctx context.Context, stub scholar.PublicationStub) (scholar.BibRecord, error)
}

// ProxySelector hands out a proxy for the next attempt.
type ProxySelector interface {
	Select(ctx context.Context) (*url.URL, error)
}

// proxyUser is implemented by sources that can route through a proxy.
type proxyUser interface {
	UseProxy(u *url.URL)
}

// Fetcher runs attempts against a Source until one succeeds.
type Fetcher struct {
	cfg     types.FetchConfig
	source  Source
	proxies ProxySelector
	log     zerolog.Logger
	out     io.Writer
	sleep   backoff.Sleeper
	rand    func() float64
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithProxySelector enables proxy rotation before every attempt.
func WithProxySelector(s ProxySelector) Option {
	return func(f *Fetcher) { f.proxies = s }
}

// WithProgress sets where the final "Wrote N publications" line goes.
func WithProgress(w io.Writer) Option {
	return func(f *Fetcher) { f.out = w }
}

// WithSleeper replaces the sleep used for pacing and backoff.
func WithSleeper(s backoff.Sleeper) Option {
	return func(f *Fetcher) { f.sleep = s }
}

// WithRand replaces the random source used for jitter and pacing.
func WithRand(rnd func() float64) Option {
	return func(f *Fetcher) { f.rand = rnd }
}

// New builds a Fetcher. Progress goes to io.Discard unless WithProgress is given.
func New(cfg types.FetchConfig, source Source, log zerolog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		cfg:    cfg,
		source: source,
		log:    log,
		out:    io.Discard,
		sleep:  backoff.Sleep,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run executes attempts until one writes the output file. It returns nil on
// success, including when the profile has no publications, and an error
// wrapping ErrAttemptsExhausted when the retry policy is used up. A
// cancelled context stops the loop with ctx.Err().
func (f *Fetcher) Run(ctx context.Context) error {
	maxAttempts := f.cfg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = types.DefaultMaxAttempts
	}

	r := &backoff.Retrier{
		Policy: f.cfg.Retry,
		Sleep:  f.sleep,
		Rand:   f.rand,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			f.log.Info().Int("attempt", attempt).Dur("wait", wait).Msg("Backing off before retry.")
		},
	}

	err := r.Do(ctx, func(ctx context.Context, attempt int) error {
		f.log.Info().Int("attempt", attempt).Int("max_attempts", maxAttempts).Msg("Starting attempt.")
		f.rotateProxy(ctx)

		n, err := f.attempt(ctx)
		if err != nil {
			f.log.Error().Err(err).Int("attempt", attempt).Msg("Attempt failed.")
			return err
		}
		f.log.Info().Int("count", n).Str("output", f.cfg.OutputPath).Msg("Publications written.")
		fmt.Fprintf(f.out, "Wrote %d publications\n", n)
		return nil
	})
	if errors.Is(err, backoff.ErrExhausted) {
		return fmt.Errorf("%w: %w", ErrAttemptsExhausted, err)
	}
	return err
}

// rotateProxy asks the selector for a fresh proxy. Failure is logged and the
// source goes back to direct connections.
func (f *Fetcher) rotateProxy(ctx context.Context) {
	if f.proxies == nil {
		return
	}
	pu, canProxy := f.source.(proxyUser)
	if !canProxy {
		return
	}

	u, err := f.proxies.Select(ctx)
	if err != nil {
		f.log.Warn().Err(err).Msg("No proxy available, fetching directly.")
		pu.UseProxy(nil)
		return
	}
	f.log.Info().Str("proxy", u.Redacted()).Msg("Using proxy.")
	pu.UseProxy(u)
}

// attempt runs the pipeline once. A panic is recovered into an error.
func (f *Fetcher) attempt(ctx context.Context) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("Recovered panic during attempt.")
			err = fmt.Errorf("panic during attempt: %v", r)
		}
	}()

	profile, err := f.source.LookupProfile(ctx, f.cfg.ProfileID)
	if err != nil {
		return 0, fmt.Errorf("looking up profile %s: %w", f.cfg.ProfileID, err)
	}
	f.log.Info().Str("profile", profile.ID).Str("name", profile.Name).Msg("Profile found.")

	stubs, err := f.source.ListPublications(ctx, profile, f.cfg.MaxPublications)
	if err != nil {
		return 0, fmt.Errorf("listing publications: %w", err)
	}
	f.log.Info().Int("count", len(stubs)).Msg("Publications listed.")

	pubs := make([]types.Publication, 0, len(stubs))
	for i, stub := range stubs {
		if err := f.sleep(ctx, backoff.Between(f.cfg.ItemDelayMin, f.cfg.ItemDelayMax, f.rand)); err != nil {
			return 0, err
		}
		bib, err := f.source.FetchDetail(ctx, stub)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			f.log.Warn().Err(err).Int("index", i).Str("title", stub.Title).Msg("Skipping publication.")
			continue
		}
		pubs = append(pubs, Normalize(bib))
	}

	SortByYear(pubs)

	if err := WriteJSON(f.cfg.OutputPath, pubs); err != nil {
		return 0, err
	}
	if f.cfg.YAMLOutputPath != "" {
		if err := WriteYAML(f.cfg.YAMLOutputPath, pubs); err != nil {
			return 0, err
		}
	}
	return len(pubs), nil
}
