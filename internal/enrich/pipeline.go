// Package enrich turns the hand-maintained bill list into enriched bill
// records using Open States data.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/bills-enricher/internal/categories"
	"github.com/DeafMist/bills-enricher/internal/logger"
	"github.com/DeafMist/bills-enricher/internal/models"
	"github.com/DeafMist/bills-enricher/internal/processing"
)

// BillFetcher loads bill detail from the remote API.
type BillFetcher interface {
	FetchBill(ctx context.Context, billID string) (*models.BillDetail, error)
	BillURL(billID string) string
}

// SponsorCache resolves legislators, remembering what it has seen.
type SponsorCache interface {
	Get(legID string) (models.SponsorDetail, bool)
	Lookup(ctx context.Context, legID string) (*models.Legislator, error)
	Len() int
}

// PersistFunc receives the complete result set once per run.
type PersistFunc func(ctx context.Context, bills models.Bills) error

// TransformError reports a bill whose remote detail could not be mapped.
type TransformError struct {
	BillID string
	URL    string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform bill %s (%s): %v", e.BillID, e.URL, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

var errNoSources = errors.New("bill detail has no sources")

// Options tune a Pipeline.
type Options struct {
	Concurrency int
	Logger      *slog.Logger
}

// Pipeline enriches bills concurrently and persists the result once.
type Pipeline struct {
	bills       BillFetcher
	sponsors    SponsorCache
	categories  *categories.Map
	concurrency int
	log         *slog.Logger
}

// New builds a Pipeline.
func New(bills BillFetcher, sponsors SponsorCache, cats *categories.Map, opts Options) *Pipeline {
	if cats == nil {
		cats = categories.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	return &Pipeline{
		bills:       bills,
		sponsors:    sponsors,
		categories:  cats,
		concurrency: opts.Concurrency,
		log:         opts.Logger,
	}
}

type results struct {
	mu    sync.Mutex
	bills models.Bills
}

func (r *results) put(b *models.EnrichedBill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bills[b.BillID] = b
}

// Run enriches every record, waits until all of them have settled and then
// calls persist exactly once. Per-bill failures are logged and leave the bill
// absent or partially populated; they never fail the run. When ctx ends
// before every bill settles, Run returns the context error and persist is
// not called.
func (p *Pipeline) Run(ctx context.Context, records []models.SourceBill, persist PersistFunc) (models.Bills, error) {
	out := &results{bills: make(models.Bills, len(records))}
	var settled atomic.Int64

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, rec := range records {
		g.Go(func() error {
			p.enrichBill(ctx, rec, out)
			n := settled.Add(1)
			p.log.Debug("bill settled",
				slog.String("bill", rec.Bill),
				slog.Int64("settled", n),
				slog.Int("total", len(records)),
			)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("enrichment aborted: %w", err)
	}

	p.log.Info("enrichment finished",
		slog.Int("input", len(records)),
		slog.Int("enriched", len(out.bills)),
		slog.Int("legislators", p.sponsors.Len()),
	)

	if persist != nil {
		if err := persist(ctx, out.bills); err != nil {
			return out.bills, fmt.Errorf("persist bills: %w", err)
		}
	}
	return out.bills, nil
}

func (p *Pipeline) enrichBill(ctx context.Context, rec models.SourceBill, out *results) {
	url := p.bills.BillURL(rec.Bill)

	detail, err := p.bills.FetchBill(ctx, rec.Bill)
	if err != nil {
		p.log.Warn("bill lookup failed",
			slog.String("bill", rec.Bill),
			slog.String("url", url),
			slog.Any("err", err),
		)
		return
	}

	bill, err := p.buildBill(rec, detail)
	if err != nil {
		terr := &TransformError{BillID: rec.Bill, URL: url, Err: err}
		p.log.Error("bill data creation failed",
			slog.String("bill", rec.Bill),
			slog.String("url", url),
			slog.Any("err", terr),
		)
		if bill != nil {
			out.put(bill)
		}
		return
	}

	p.resolveSponsors(ctx, bill, detail.Sponsors)
	out.put(bill)
}

// buildBill derives every non-sponsor field. On failure it returns whatever
// had been populated so far, or nil when nothing was.
func (p *Pipeline) buildBill(rec models.SourceBill, detail *models.BillDetail) (*models.EnrichedBill, error) {
	b, err := p.fromSource(rec)
	if err != nil {
		return nil, err
	}

	b.Title = detail.Title
	if len(detail.Sources) == 0 {
		return b, errNoSources
	}
	b.BillURL = detail.Sources[0].URL
	if detail.ActionDates.Last != nil {
		b.EndDate = *detail.ActionDates.Last
	}
	b.StartDate = processing.StartDate(detail.Actions)

	b.Categories = processing.Categories(detail.Subjects, p.categories)

	status := processing.DeriveStatus(processing.StatusFacts{
		LocalSigned:  deref(rec.Signed),
		RemoteSigned: detail.ActionDates.Signed != nil && *detail.ActionDates.Signed != "",
		Vetoed:       b.Vetoed,
		VetoLink:     deref(rec.VetoLink),
	})
	b.Status = status.Status
	if status.AddVetoed {
		b.Categories = append(b.Categories, processing.VetoedCategory)
	}
	return b, nil
}

func (p *Pipeline) fromSource(rec models.SourceBill) (*models.EnrichedBill, error) {
	b := &models.EnrichedBill{
		BillID:         rec.Bill,
		Description:    rec.Description,
		Signed:         rec.Signed,
		Vetoed:         processing.IsVetoed(rec.Vetoed),
		VetoLink:       rec.VetoLink,
		Categories:     []string{},
		SenateSponsors: []models.SponsorDetail{},
		HouseSponsors:  []models.SponsorDetail{},
	}

	if rec.HouseVote != nil && *rec.HouseVote != "" {
		ayes, nays, err := processing.ParseVote(*rec.HouseVote)
		if err != nil {
			return nil, fmt.Errorf("house vote: %w", err)
		}
		b.HouseAyes, b.HouseNays = &ayes, &nays
	} else {
		p.log.Info("no house vote", slog.String("bill", rec.Bill))
	}

	if rec.SenateVote != nil && *rec.SenateVote != "" {
		ayes, nays, err := processing.ParseVote(*rec.SenateVote)
		if err != nil {
			return nil, fmt.Errorf("senate vote: %w", err)
		}
		b.SenateAyes, b.SenateNays = &ayes, &nays
	} else {
		p.log.Info("no senate vote", slog.String("bill", rec.Bill))
	}

	return b, nil
}

// resolveSponsors fills one slot per sponsor entry, in entry order. A cache
// hit is placed by the entry's chamber, a looked-up legislator by its own
// chamber. Slots whose lookup failed are dropped.
func (p *Pipeline) resolveSponsors(ctx context.Context, b *models.EnrichedBill, sponsors []models.BillSponsor) {
	type slot struct {
		detail models.SponsorDetail
		senate bool
		ok     bool
	}
	slots := make([]slot, len(sponsors))

	var g errgroup.Group
	for i, s := range sponsors {
		if d, ok := p.sponsors.Get(s.LegID); ok {
			switch s.Chamber {
			case models.ChamberUpper:
				slots[i] = slot{detail: d, senate: true, ok: true}
				continue
			case models.ChamberLower:
				slots[i] = slot{detail: d, ok: true}
				continue
			}
		}
		g.Go(func() error {
			leg, err := p.sponsors.Lookup(ctx, s.LegID)
			if err != nil {
				p.log.Warn("legislator lookup failed",
					slog.String("bill", b.BillID),
					slog.String("leg_id", s.LegID),
					slog.Any("err", err),
				)
				return nil
			}
			slots[i] = slot{
				detail: models.NewSponsorDetail(*leg),
				senate: leg.Chamber == models.ChamberUpper,
				ok:     true,
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, sl := range slots {
		switch {
		case !sl.ok:
		case sl.senate:
			b.SenateSponsors = append(b.SenateSponsors, sl.detail)
		default:
			b.HouseSponsors = append(b.HouseSponsors, sl.detail)
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
