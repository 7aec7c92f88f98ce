package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultInterval is how often the provider's language list is re-read.
const DefaultInterval = 5 * time.Hour

// defaultRetryDelay paces retries while no catalog has been loaded yet.
const defaultRetryDelay = time.Minute

// LanguageFetcher fetches the provider's list of canonical language identifiers.
type LanguageFetcher interface {
	Languages(ctx context.Context) ([]string, error)
}

// Refresher periodically rebuilds the catalog from the provider.
type Refresher struct {
	fetcher       LanguageFetcher
	store         *Store
	interval      time.Duration
	retryDelay    time.Duration
	quickAlias    map[string]string
	familyDefault map[string]string
}

func NewRefresher(fetcher LanguageFetcher, store *Store, interval time.Duration, quickAlias, familyDefault map[string]string) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Refresher{
		fetcher:       fetcher,
		store:         store,
		interval:      interval,
		retryDelay:    defaultRetryDelay,
		quickAlias:    quickAlias,
		familyDefault: familyDefault,
	}
}

// Refresh fetches the language list once and swaps in a new snapshot.
// On failure the previous snapshot stays authoritative.
func (r *Refresher) Refresh(ctx context.Context) error {
	slog.Info("Updating list of languages")

	languages, err := r.fetcher.Languages(ctx)
	if err != nil {
		slog.Warn("Couldn't reach language list, keeping previous catalog", "error", err)
		return err
	}
	if len(languages) == 0 {
		err := errors.New("provider returned an empty language list")
		slog.Warn("Refusing empty language list, keeping previous catalog")
		return err
	}

	snap := NewSnapshot(languages, r.quickAlias, r.familyDefault)
	r.store.Swap(snap)

	slog.Info("Successfully updated list of languages", "count", snap.Len())
	return nil
}

// Run refreshes immediately and then every interval until ctx is done.
// Until the first refresh succeeds it retries every retryDelay instead.
func (r *Refresher) Run(ctx context.Context) {
	timer := time.NewTimer(r.next(r.Refresh(ctx)))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			timer.Reset(r.next(r.Refresh(ctx)))
		}
	}
}

func (r *Refresher) next(err error) time.Duration {
	if err != nil && r.store.Load() == nil && r.retryDelay < r.interval {
		return r.retryDelay
	}
	return r.interval
}
