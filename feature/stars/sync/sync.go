package sync

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"startion/feature/stars/models"
	"startion/feature/stars/reconcile"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the worker-pool size when none is configured.
const DefaultConcurrency = 5

// Source fetches the starred-repository list and per-repo README content.
type Source interface {
	// Starred returns the complete starred list for the user, or the
	// authenticated user when username is empty.
	Starred(ctx context.Context, username string) ([]models.Repo, error)
	// Readme returns the README text for a repo, empty when none is
	// available. It never fails the caller.
	Readme(ctx context.Context, fullName string) string
}

// Store reads and mutates the Notion database.
type Store interface {
	// Snapshot performs the full paginated read the pass classifies against.
	Snapshot(ctx context.Context) (*models.Snapshot, error)
	// Upsert creates a page, or updates it when pageID is non-empty.
	Upsert(ctx context.Context, repo models.Repo, pageID string) error
	// Archive marks the page inactive. Idempotent.
	Archive(ctx context.Context, pageID string) error
}

// Summarizer generates the AI summary for a repo. An empty result means
// failure or a genuinely empty completion; the coordinator decides which
// matters.
type Summarizer interface {
	Summarize(ctx context.Context, repo models.Repo, readme string) string
}

// Options controls a single sync pass.
type Options struct {
	// ForceResummarize re-generates summaries for every starred repo that
	// already has a page.
	ForceResummarize bool

	// DryRun stops after planning; no remote mutation occurs.
	DryRun bool

	// Limit truncates the starred list to its first N entries before
	// classification. Zero means no limit.
	Limit int

	// NoArchive disables the archive phase for unstarred repos.
	NoArchive bool

	// IncludeEmptySummary re-summarizes pages whose stored summary is
	// empty, and writes results even when the new summary is empty too.
	IncludeEmptySummary bool

	// Concurrency is the worker-pool size. Zero falls back to
	// DefaultConcurrency.
	Concurrency int
}

// mode maps the run flags onto a classification mode.
func (o Options) mode() reconcile.Mode {
	switch {
	case o.ForceResummarize:
		return reconcile.ModeForce
	case o.IncludeEmptySummary:
		return reconcile.ModeEmptyOnly
	default:
		return reconcile.ModeNormal
	}
}

// keepEmptySummaries reports whether an empty summary still gets written.
func (o Options) keepEmptySummaries() bool {
	return o.ForceResummarize || o.IncludeEmptySummary
}

// Unit is one pending piece of work: a repo to process plus the page id of
// its existing store record. An empty page id means the create path.
type Unit struct {
	Repo   models.Repo
	PageID string
}

// Plan is the outcome of the read-only phase of a pass: the classification
// of the starred list against the store snapshot, and the units the parallel
// phase would process. Building a plan performs no mutation.
type Plan struct {
	// Starred is the (possibly limited) starred list the pass covers.
	Starred []models.Repo

	// Classification partitions Starred against the snapshot.
	Classification reconcile.Classification

	// Units is the work list: new repos first, then re-summarizations.
	Units []Unit

	snapshot *models.Snapshot
}

// UnstarredSorted returns the unstarred names in lexical order for display.
func (p *Plan) UnstarredSorted() []string {
	out := append([]string(nil), p.Classification.Unstarred...)
	sort.Strings(out)
	return out
}

// Report aggregates the counters of one pass.
type Report struct {
	// Added counts created pages.
	Added int
	// Resummarized counts updated pages.
	Resummarized int
	// Skipped counts pre-existing pages left untouched.
	Skipped int
	// SkippedEmpty counts repos whose summary came back empty and were
	// therefore not written.
	SkippedEmpty int
	// Failed counts units that errored; they never abort the pass.
	Failed int
	// Archived counts pages archived for unstarred repos.
	Archived int
}

// Syncer drives one full sync pass: fetch, classify, process, archive.
type Syncer struct {
	source     Source
	store      Store
	summarizer Summarizer
	username   string
	log        *zap.Logger
}

// NewSyncer wires a coordinator from its three remote collaborators.
// username scopes the starred listing; empty means the authenticated user.
func NewSyncer(source Source, store Store, summarizer Summarizer, username string, log *zap.Logger) *Syncer {
	return &Syncer{
		source:     source,
		store:      store,
		summarizer: summarizer,
		username:   username,
		log:        log,
	}
}

// Plan runs the read-only phase: fetch the starred list, snapshot the store,
// and classify. The snapshot is taken after the starred list so both reflect
// a consistent point before any classification decision.
func (s *Syncer) Plan(ctx context.Context, opts Options) (*Plan, error) {
	s.log.Info("Fetching starred repos from GitHub")
	starred, err := s.source.Starred(ctx, s.username)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch starred repos: %w", err)
	}
	s.log.Info("Found starred repos", zap.Int("count", len(starred)))

	if opts.Limit > 0 && len(starred) > opts.Limit {
		starred = starred[:opts.Limit]
		s.log.Info("Limited starred list", zap.Int("limit", opts.Limit))
	}

	s.log.Info("Loading existing Notion entries")
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot store: %w", err)
	}
	s.log.Info("Found existing entries", zap.Int("count", len(snap.Pages)))

	classification := reconcile.Classify(starred, snap, opts.mode())

	units := make([]Unit, 0, len(classification.New)+len(classification.Resummarize))
	for _, repo := range classification.New {
		units = append(units, Unit{Repo: repo})
	}
	for _, repo := range classification.Resummarize {
		units = append(units, Unit{Repo: repo, PageID: snap.PageID(repo.FullName)})
	}

	return &Plan{
		Starred:        starred,
		Classification: classification,
		Units:          units,
		snapshot:       snap,
	}, nil
}

// tally holds the shared counters of the parallel phase. Workers only touch
// these atomically; everything else they use is unit-local or read-only.
type tally struct {
	added        atomic.Int64
	resummarized atomic.Int64
	skippedEmpty atomic.Int64
	failed       atomic.Int64
}

// Execute runs the mutation phase of a planned pass: the bounded worker pool
// over the units, then, strictly after every unit has finished, the
// sequential archive phase. DryRun plans must not reach Execute.
func (s *Syncer) Execute(ctx context.Context, plan *Plan, opts Options) (*Report, error) {
	report := &Report{Skipped: len(plan.Classification.Skip)}

	if len(plan.Units) == 0 && (opts.NoArchive || len(plan.Classification.Unstarred) == 0) {
		s.log.Info("Nothing to do — store is already up to date")
		return report, nil
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	total := len(plan.Units)
	counts := &tally{}

	s.log.Info("Processing repos",
		zap.Int("count", total),
		zap.Int("concurrency", concurrency),
	)

	// The group intentionally has no derived context: a failed unit is
	// isolated and must not cancel its siblings.
	var group errgroup.Group
	group.SetLimit(concurrency)

	for _, unit := range plan.Units {
		unit := unit
		group.Go(func() error {
			if err := s.processUnit(ctx, unit, opts, counts, total); err != nil {
				counts.failed.Add(1)
				s.log.Error("Failed to process repo",
					zap.String("repo", unit.Repo.FullName),
					zap.Error(err),
				)
			}
			return nil
		})
	}

	// Barrier: archiving starts only after the whole pool has drained.
	_ = group.Wait()

	report.Added = int(counts.added.Load())
	report.Resummarized = int(counts.resummarized.Load())
	report.SkippedEmpty = int(counts.skippedEmpty.Load())
	report.Failed = int(counts.failed.Load())

	if !opts.NoArchive {
		for _, fullName := range plan.Classification.Unstarred {
			if err := s.store.Archive(ctx, plan.snapshot.PageID(fullName)); err != nil {
				report.Failed++
				s.log.Error("Failed to archive repo",
					zap.String("repo", fullName),
					zap.Error(err),
				)
				continue
			}
			report.Archived++
			s.log.Info("Archived", zap.String("repo", fullName))
		}
	}

	return report, nil
}

// processUnit runs one unit end to end: README fetch, summary generation,
// then the store write. An empty summary short-circuits the write unless the
// run keeps empty summaries.
func (s *Syncer) processUnit(ctx context.Context, unit Unit, opts Options, counts *tally, total int) error {
	readme := s.source.Readme(ctx, unit.Repo.FullName)

	repo := unit.Repo
	repo.Summary = s.summarizer.Summarize(ctx, repo, readme)

	if repo.Summary == "" && !opts.keepEmptySummaries() {
		counts.skippedEmpty.Add(1)
		s.log.Warn("Skipped repo: empty AI summary", zap.String("repo", repo.FullName))
		return nil
	}

	if err := s.store.Upsert(ctx, repo, unit.PageID); err != nil {
		return err
	}

	if unit.PageID != "" {
		counts.resummarized.Add(1)
	} else {
		counts.added.Add(1)
	}
	done := counts.added.Load() + counts.resummarized.Load()

	s.log.Info("Processed repo",
		zap.String("repo", repo.FullName),
		zap.Int64("done", done),
		zap.Int("total", total),
	)
	return nil
}
