// Package threatlist holds one indicator collection fetched from the backend,
// reveals it in fixed steps, and answers exact-match lookups against the part
// that has been revealed.
package threatlist

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/activecm/rita-threats/credentials"
	"github.com/activecm/rita-threats/datatypes/threat"
	"github.com/activecm/rita-threats/util"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultInitialLimit is the visible prefix length of a fresh List
	DefaultInitialLimit = 50
	// DefaultRevealStep is how far each Reveal grows the visible prefix
	DefaultRevealStep = 50
)

// ErrSuperseded is returned by Load when a later Load started before this
// one finished. The superseded response is dropped.
var ErrSuperseded = errors.New("load superseded by a newer load")

type (
	// Fetcher retrieves a complete indicator collection. *intelapi.Client
	// satisfies it
	Fetcher interface {
		FetchIndicators(ctx context.Context, endpoint, token string) ([]threat.Indicator, error)
	}

	// Config parameterizes a List
	Config struct {
		Kind         threat.Kind
		Credentials  credentials.Provider
		InitialLimit int
		RevealStep   int
	}

	// List is the collection state of one indicator kind. It is safe for
	// concurrent use
	List struct {
		kind    threat.Kind
		creds   credentials.Provider
		fetcher Fetcher
		step    int
		log     *log.Logger

		mu         sync.Mutex
		full       []threat.Indicator
		limit      int
		state      State
		err        error
		generation uint64
		attempted  bool
		token      string
	}

	// View is a point in time copy of a List for rendering
	View struct {
		Kind    threat.Kind
		State   State
		Err     error
		Visible []threat.Indicator
		Total   int
		Limit   int
		HasMore bool
	}
)

// New creates a List in the Loading state. Nothing is fetched until Load or
// SyncCredential is called
func New(cfg Config, fetcher Fetcher, logger *log.Logger) *List {
	limit := cfg.InitialLimit
	if limit <= 0 {
		limit = DefaultInitialLimit
	}
	step := cfg.RevealStep
	if step <= 0 {
		step = DefaultRevealStep
	}
	return &List{
		kind:    cfg.Kind,
		creds:   cfg.Credentials,
		fetcher: fetcher,
		step:    step,
		log:     logger,
		limit:   limit,
		state:   Loading,
	}
}

// Kind returns the indicator kind this List holds
func (l *List) Kind() threat.Kind { return l.kind }

// Load fetches the full collection with the current credential and replaces
// the held one. On failure the held collection is kept, the List moves to the
// Error state and a *FetchError is returned. Only the most recently started
// Load may update the List; older ones return ErrSuperseded.
func (l *List) Load(ctx context.Context) error {
	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.state = Loading
	l.mu.Unlock()

	token, err := l.creds.Token(ctx)
	var indicators []threat.Indicator
	if err == nil {
		indicators, err = l.fetcher.FetchIndicators(ctx, l.kind.Endpoint, token)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.generation {
		l.log.WithFields(log.Fields{
			"kind":       l.kind.Name,
			"generation": gen,
			"latest":     l.generation,
		}).Debug("Discarding superseded threat list response")
		return ErrSuperseded
	}

	l.attempted = true
	l.token = token

	if err != nil {
		l.state = Error
		l.err = &FetchError{Kind: l.kind, Err: err}
		l.log.WithFields(log.Fields{
			"kind":     l.kind.Name,
			"endpoint": l.kind.Endpoint,
			"error":    err.Error(),
		}).Error("Failed to load threat list")
		return l.err
	}

	l.full = indicators
	l.state = Loaded
	l.err = nil
	l.log.WithFields(log.Fields{
		"kind":  l.kind.Name,
		"total": len(indicators),
	}).Info("Loaded threat list")
	return nil
}

// SyncCredential reloads the List if the credential differs from the one
// used by the last completed Load, or if nothing has been loaded yet. It
// reports whether a Load was triggered.
func (l *List) SyncCredential(ctx context.Context) (bool, error) {
	token, err := l.creds.Token(ctx)
	if err != nil {
		token = ""
	}

	l.mu.Lock()
	changed := !l.attempted || token != l.token
	l.mu.Unlock()

	if !changed {
		return false, nil
	}
	return true, l.Load(ctx)
}

// Reveal grows the visible prefix by the reveal step. The held collection is
// re-sliced; nothing is fetched.
func (l *List) Reveal() {
	l.mu.Lock()
	l.limit += l.step
	l.mu.Unlock()
}

// Find reports whether query, with surrounding whitespace removed, exactly
// equals the value of an indicator in the visible prefix. The matched value
// is returned. Indicators beyond the visible prefix are never matched.
func (l *List) Find(query string) (string, bool) {
	query = strings.TrimSpace(query)

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ind := range l.visibleLocked() {
		if ind.Value == query {
			return ind.Value, true
		}
	}
	return "", false
}

// Visible returns a copy of the visible prefix
func (l *List) Visible() []threat.Indicator {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]threat.Indicator{}, l.visibleLocked()...)
}

// HasMore reports whether part of the held collection is not yet visible
func (l *List) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visibleLocked()) < len(l.full)
}

// Limit returns the visible prefix length target
func (l *List) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

// Total returns the size of the held collection
func (l *List) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.full)
}

// State returns the current state
func (l *List) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the error of the last completed Load, if it failed
func (l *List) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Snapshot copies the List for rendering
func (l *List) Snapshot() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	visible := l.visibleLocked()
	return View{
		Kind:    l.kind,
		State:   l.state,
		Err:     l.err,
		Visible: append([]threat.Indicator{}, visible...),
		Total:   len(l.full),
		Limit:   l.limit,
		HasMore: len(visible) < len(l.full),
	}
}

func (l *List) visibleLocked() []threat.Indicator {
	return l.full[:util.Min(l.limit, len(l.full))]
}
