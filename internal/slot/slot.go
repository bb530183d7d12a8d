// Package slot implements AdSlot: a container element in a page that fetches
// a placement for its zone and splices the resulting markup into itself.
//
// Fetches are neither de-duplicated nor cancelled. By default the response
// that resolves last wins, even when it answers an older set of props, so
// rapid prop changes can leave an older zone's creative on screen.
//
// Every fetch is also tagged with a sequence number. With
// Options.DiscardStale set, a response that resolves after a newer fetch was
// issued is discarded instead of applied.
package slot

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/adserve"
	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/events"
	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/markup"
	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/page"
	apperrors "github.com/EmpowerLocal/empowerlocal-ad-components/pkg/errors"
	"github.com/EmpowerLocal/empowerlocal-ad-components/pkg/logger"
	"github.com/EmpowerLocal/empowerlocal-ad-components/pkg/metrics"
)

// DefaultKeyword is used when neither Props nor Options name one.
const DefaultKeyword = "article"

// Fetcher performs one ad retrieval. *adserve.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, req adserve.Request) adserve.Response
}

// Props are the slot's public inputs.
type Props struct {
	ZoneID    string
	Keyword   string
	ClassName string
}

// Options wire a slot to its collaborators. Only Fetcher is required.
type Options struct {
	Fetcher Fetcher
	// Policy admits ad bodies into the page. Nil means markup.Trusted.
	Policy  markup.Policy
	Tracker events.Tracker
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// PageURL is the location of the page the slot lives on. It is
	// percent-encoded into the referrer at every fetch.
	PageURL        string
	DefaultKeyword string
	// DiscardStale drops responses overtaken by a newer fetch.
	DiscardStale bool
}

// Slot is one mounted AdSlot. Its methods are safe for concurrent use.
type Slot struct {
	opts      Options
	container *page.Container

	mu    sync.Mutex
	props Props

	issued atomic.Uint64
}

// Mount validates props, makes sure the pixel stylesheet is in doc's head,
// appends the slot's container and issues the first fetch. The returned
// Result is what that fetch resolved to.
func Mount(ctx context.Context, doc *page.Document, props Props, opts Options) (*Slot, adserve.Result, error) {
	s, err := New(doc, props, opts)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Load(ctx), nil
}

// New does everything Mount does except the fetch. Callers placing several
// slots use it to fix container order before loading them concurrently.
func New(doc *page.Document, props Props, opts Options) (*Slot, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("mounting slot: no fetcher configured")
	}
	props = props.normalize(opts.DefaultKeyword)
	if err := props.validate(); err != nil {
		return nil, err
	}
	if opts.Tracker == nil {
		opts.Tracker = events.Nop{}
	}
	if opts.Policy == nil {
		opts.Policy = markup.Trusted{}
	}

	if doc.EnsureStyle(markup.StyleID, markup.PixelStylesheet) && opts.Metrics != nil {
		opts.Metrics.StyleInsertionsTotal.Inc()
	}

	return &Slot{
		opts:      opts,
		props:     props,
		container: doc.NewContainer(props.ClassName),
	}, nil
}

// Load issues one fetch for the current props.
func (s *Slot) Load(ctx context.Context) adserve.Result {
	return s.load(ctx, s.Props())
}

// SetProps applies new props. A fetch is issued only when the zone or the
// keyword changed; the returned Result is nil otherwise.
func (s *Slot) SetProps(ctx context.Context, props Props) (adserve.Result, error) {
	props = props.normalize(s.opts.DefaultKeyword)
	if err := props.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	prev := s.props
	s.props = props
	s.mu.Unlock()

	if props.ClassName != prev.ClassName {
		s.container.SetClass(props.ClassName)
	}
	if props.ZoneID == prev.ZoneID && props.Keyword == prev.Keyword {
		return nil, nil
	}
	return s.load(ctx, props), nil
}

// Props returns the slot's current props.
func (s *Slot) Props() Props {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.props
}

// Container returns the element the slot renders into.
func (s *Slot) Container() *page.Container {
	return s.container
}

// HTML renders the slot's container with whatever markup it currently holds.
func (s *Slot) HTML() template.HTML {
	return s.container.HTML()
}

// load runs one fetch for props and applies the result if it is still the
// latest one issued.
func (s *Slot) load(ctx context.Context, props Props) adserve.Result {
	seq := s.issued.Add(1)
	log := s.slotLogger(ctx).With("zone_id", props.ZoneID, "keyword", props.Keyword, "sequence", seq)

	start := time.Now()
	resp := s.opts.Fetcher.Fetch(ctx, adserve.Request{
		ZoneID:      props.ZoneID,
		ReferrerURL: adserve.EncodeReferrer(s.opts.PageURL),
		Keyword:     props.Keyword,
	})
	latency := time.Since(start)
	result := adserve.Classify(resp)

	if m := s.opts.Metrics; m != nil {
		m.AdFetchesTotal.WithLabelValues(resp.Status).Inc()
		m.AdFetchDuration.Observe(latency.Seconds())
	}

	outcome := events.Outcome{
		ZoneID:    props.ZoneID,
		Keyword:   props.Keyword,
		Sequence:  seq,
		LatencyMs: latency.Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
	}

	var rendered template.HTML
	switch r := result.(type) {
	case adserve.Success:
		html, err := markup.Render(r.Placement, s.opts.Policy)
		if err != nil {
			log.Error("failed to render ad markup", "error", err)
			result = adserve.Failure{StatusCode: adserve.StatusFetchError, Message: err.Error()}
			break
		}
		rendered = html
	}

	switch r := result.(type) {
	case adserve.Success:
		outcome.Type = events.EventSlotFilled
		outcome.Status = adserve.StatusSuccess
		outcome.Stale = !s.apply(seq, rendered)
		if outcome.Stale {
			log.Debug("discarding stale ad response", "latest", s.issued.Load())
		}
	case adserve.Failure:
		outcome.Type = events.EventSlotFailed
		outcome.Status = r.StatusCode
		outcome.Message = r.Message
		outcome.Stale = !s.current(seq)
		log.Warn("issue loading ad", "reason", r.StatusCode, "message", r.Message)
	}

	if m := s.opts.Metrics; m != nil {
		switch {
		case outcome.Stale:
			m.StaleResultsTotal.Inc()
		case outcome.Type == events.EventSlotFilled:
			m.SlotOutcomesTotal.WithLabelValues("filled").Inc()
		default:
			m.SlotOutcomesTotal.WithLabelValues("failed").Inc()
		}
	}
	s.opts.Tracker.Track(outcome)
	return result
}

// apply swaps rendered markup into the container, unless stale responses are
// discarded and a newer fetch has been issued since seq. It reports whether the markup was applied.
func (s *Slot) apply(seq uint64, rendered template.HTML) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.DiscardStale && seq != s.issued.Load() {
		return false
	}
	s.container.Replace(rendered)
	return true
}

func (s *Slot) current(seq uint64) bool {
	return !s.opts.DiscardStale || seq == s.issued.Load()
}

func (s *Slot) slotLogger(ctx context.Context) *slog.Logger {
	l := s.opts.Logger
	if l == nil {
		l = slog.Default()
	}
	l = l.With("component", "adslot")
	if id := logger.RequestID(ctx); id != "" {
		l = l.With("request_id", id)
	}
	return l
}

func (p Props) normalize(defaultKeyword string) Props {
	if p.Keyword == "" {
		p.Keyword = defaultKeyword
	}
	if p.Keyword == "" {
		p.Keyword = DefaultKeyword
	}
	return p
}

func (p Props) validate() error {
	if p.ZoneID == "" {
		return apperrors.InvalidInput("zone id is required")
	}
	return nil
}
