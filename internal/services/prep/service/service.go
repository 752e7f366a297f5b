// Package service provides the prep run implementation
//
// A run walks fixed phases: catalog, decode, index, resolve, align, summarize and
// optionally publish. File and subject level problems are collected as issues;
// only malformed input or cancellation stop the run, and then nothing is published.
package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"nhanes/internal/adapters/ingest/nhanesfiles"
	"nhanes/internal/adapters/ingest/variables"
	"nhanes/internal/core/align"
	"nhanes/internal/core/resolve"
	"nhanes/internal/core/sensor"
	"nhanes/internal/core/subjects"
	"nhanes/internal/core/table"
	"nhanes/internal/modkit/repokit"
	perr "nhanes/internal/platform/errors"
	"nhanes/internal/platform/logger"
	"nhanes/internal/services/prep/domain"
	"nhanes/internal/services/prep/guardrails"
)

// Config holds configuration options for the prep service
type Config struct {
	// Worker pools; <=0 -> 1
	DecodeWorkers int
	AlignWorkers  int

	// Timeouts applied via guardrails
	RunTimeout   time.Duration
	FileTimeout  time.Duration
	AlignTimeout time.Duration
	DBTimeout    time.Duration

	// FrameChunk is the number of frame rows per insert; 0 -> 1000
	FrameChunk int
}

// Service implements domain.RunnerPort
type Service struct {
	Source domain.Source
	Cfg    Config

	// DB and Binder publish the ledger; nil DB disables it
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.LedgerRepo]

	// Sink publishes tensors; nil disables it
	Sink domain.TensorSink

	now func() time.Time
}

// New constructs the prep service
func New(
	src domain.Source,
	db repokit.TxRunner,
	binder repokit.Binder[domain.LedgerRepo],
	sink domain.TensorSink,
	cfg Config,
) *Service {
	if src == nil {
		panic("prep.Service requires a non nil Source")
	}
	if db != nil && binder == nil {
		panic("prep.Service requires a Repo binder when a TxRunner is set")
	}
	return &Service{Source: src, DB: db, Binder: binder, Sink: sink, Cfg: cfg, now: time.Now}
}

func (s *Service) timeouts() guardrails.Timeouts {
	return guardrails.Timeouts{
		Run:   s.Cfg.RunTimeout,
		File:  s.Cfg.FileTimeout,
		Align: s.Cfg.AlignTimeout,
		DB:    s.Cfg.DBTimeout,
	}
}

// run carries the state of one Run call
type run struct {
	plan    domain.Plan
	sum     domain.Summary
	files   []decoded
	idx     *subjects.Index
	frame   *resolve.Frame
	tensors map[sensor.Generation]*align.Tensor
}

func (r *run) issue(is ...domain.Issue) { r.sum.Issues = append(r.sum.Issues, is...) }

// Run implements domain.RunnerPort
// On failure the partial result is still returned so callers can report it
func (s *Service) Run(ctx context.Context, plan domain.Plan) (*domain.Result, error) {
	if plan.Dir == "" {
		return nil, perr.InvalidArgf("prep: no input directory")
	}
	if len(plan.Variables) == 0 {
		return nil, perr.InvalidArgf("prep: no variables requested")
	}
	if plan.Publish && s.DB == nil && s.Sink == nil {
		return nil, perr.InvalidArgf("prep: publish requested but no store is configured")
	}
	if plan.RunID == "" {
		plan.RunID = uuid.NewString()
	}

	ctx = logger.WithRun(ctx, plan.RunID)
	ctx, cancel := guardrails.WithRun(ctx, s.timeouts())
	defer cancel()
	log := logger.C(ctx)

	r := &run{
		plan:    plan,
		tensors: map[sensor.Generation]*align.Tensor{},
		sum: domain.Summary{
			RunID:     plan.RunID,
			Dir:       plan.Dir,
			StartedAt: s.now().UTC(),
			Status:    domain.RunOK,
		},
	}
	for _, v := range plan.Variables {
		r.sum.Variables = append(r.sum.Variables, v.Name)
	}
	log.Info().Str("dir", plan.Dir).Int("variables", len(plan.Variables)).Msg("prep: run started")

	err := s.phases(ctx, r)
	if err == nil && plan.Publish {
		err = s.publish(ctx, r)
	}
	r.finish(s.now(), err)
	res := &domain.Result{Summary: r.sum, Frame: r.frame, Tensors: r.tensors, Index: r.idx}
	if err != nil {
		log.Error().Err(err).Str("status", string(r.sum.Status)).Msg("prep: run failed")
		return res, err
	}
	log.Info().
		Str("status", string(r.sum.Status)).
		Int("subjects", r.sum.Subjects).
		Int("frame_rows", r.sum.FrameRows).
		Int("issues", len(r.sum.Issues)).
		Bool("published", r.sum.Published).
		Msg("prep: run finished")
	return res, nil
}

func (s *Service) phases(ctx context.Context, r *run) error {
	if err := s.catalog(ctx, r); err != nil {
		return err
	}
	if err := s.decode(ctx, r); err != nil {
		return err
	}
	s.index(r)
	if err := s.resolve(r); err != nil {
		return err
	}
	return s.align(ctx, r)
}

// catalog lists inputs and decides which ones the run needs
func (s *Service) catalog(ctx context.Context, r *run) error {
	all, err := s.Source.Catalog(ctx, r.plan.Dir)
	if err != nil {
		if ctx.Err() != nil {
			return perr.Wrap(ctx.Err(), perr.ErrorCodeCanceled, "prep canceled")
		}
		return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "catalog %s", r.plan.Dir)
	}

	var need map[string]bool
	if r.plan.Codebook != nil {
		need = r.plan.Codebook.Categories(variables.Codes(r.plan.Variables))
		if len(need) == 0 {
			need = nil
		}
	}
	if miss := nhanesfiles.MissingCategories(all, need); len(miss) > 0 {
		logger.C(ctx).Warn().Strs("categories", miss).Msg("prep: needed categories have no files")
	}
	keep := nhanesfiles.Needed(all, need)

	for _, f := range all {
		wanted := slices.Contains(keep, f)
		if f.Kind == nhanesfiles.Sensor && len(r.plan.Generations) > 0 && !slices.Contains(r.plan.Generations, f.Gen) {
			wanted = false
		}
		if !wanted {
			rep := reportOf(f)
			rep.Status = domain.FileSkipped
			r.sum.Files = append(r.sum.Files, rep)
			continue
		}
		r.files = append(r.files, decoded{file: f})
	}
	logger.C(ctx).Debug().Int("cataloged", len(all)).Int("needed", len(r.files)).Msg("prep: catalog done")
	return nil
}

// decode runs one task per needed file, bounded by DecodeWorkers
func (s *Service) decode(ctx context.Context, r *run) error {
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(max(s.Cfg.DecodeWorkers, 1))
	for i := range r.files {
		f := r.files[i].file
		eg.Go(func() error {
			d, err := s.decodeFile(ectx, f)
			r.files[i] = d
			return err
		})
	}
	err := eg.Wait()

	for _, d := range r.files {
		if d.report.Name != "" {
			r.sum.Files = append(r.sum.Files, d.report)
		}
		r.issue(d.issues...)
	}
	if err != nil {
		if ctx.Err() != nil {
			return perr.Wrap(ctx.Err(), perr.ErrorCodeCanceled, "prep canceled")
		}
		return err
	}
	return nil
}

// index builds the subject index from response and mortality tables
func (s *Service) index(r *run) {
	b := subjects.NewBuilder(0)
	for fi, d := range r.files {
		if d.table == nil {
			continue
		}
		c := d.table.Col(resolve.DefaultKey)
		if c < 0 {
			continue
		}
		ids, ok := d.table.Keys(c)
		for row, id := range ids {
			if !ok[row] {
				continue
			}
			switch d.file.Kind {
			case nhanesfiles.Response:
				b.AddResponse(id, d.file.Cycle, fi, row)
			case nhanesfiles.Mortality:
				b.AddMortality(id, fi, row)
			}
		}
	}
	r.idx = b.Build()
}

// resolve binds variables per cycle and assembles the frame
func (s *Service) resolve(r *run) error {
	var (
		sources []resolve.Source
		mort    []*table.Table
		mortCyc = map[int]bool{}
	)
	at := map[int]int{}
	for _, d := range r.files {
		if d.table == nil {
			continue
		}
		switch d.file.Kind {
		case nhanesfiles.Response:
			i, ok := at[d.file.Cycle]
			if !ok {
				i = len(sources)
				at[d.file.Cycle] = i
				sources = append(sources, resolve.Source{Cycle: d.file.Cycle})
			}
			sources[i].Tables = append(sources[i].Tables, d.table)
		case nhanesfiles.Mortality:
			mort = append(mort, d.table)
			mortCyc[d.file.Cycle] = true
		}
	}

	res := resolve.Resolve(r.plan.Variables, sources)
	for _, u := range res.Unavailable {
		r.issue(domain.Issue{
			Kind:     perr.ErrorCodeVariableUnavailable.String(),
			Cycle:    u.Cycle,
			Variable: u.Variable,
			Detail:   "no alternative code present: " + strings.Join(u.Codes, ","),
		})
	}
	if r.plan.Mortality {
		for _, c := range res.Cycles {
			if !mortCyc[c] {
				r.issue(domain.Issue{
					Kind:     perr.ErrorCodeVariableUnavailable.String(),
					Cycle:    c,
					Variable: nhanesfiles.MortalityCategory,
					Detail:   "no mortality linkage file for cycle",
				})
			}
		}
	}

	opts := resolve.Options{Coalesce: r.plan.Coalesce, Mortality: mort}
	if r.plan.Codebook != nil {
		opts.Codebook = r.plan.Codebook
	}
	frame, err := resolve.Assemble(res, r.idx, opts)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "assemble frame")
	}
	r.frame = frame
	return nil
}

// align builds one tensor per generation with sensor input
// a subject seen in several files of one generation keeps its first series
func (s *Service) align(ctx context.Context, r *run) error {
	for _, gen := range sensor.Generations() {
		var (
			series []align.Series
			dups   int
		)
		seen := map[int64]bool{}
		for _, d := range r.files {
			if d.file.Kind != nhanesfiles.Sensor || d.file.Gen != gen {
				continue
			}
			for _, se := range d.series {
				if seen[se.Subject] {
					dups++
					continue
				}
				seen[se.Subject] = true
				series = append(series, se)
			}
		}
		if len(series) == 0 {
			continue
		}

		actx, cancel := guardrails.ForAlign(ctx, s.timeouts())
		t, excl, err := align.Batch(actx, gen, series, s.Cfg.AlignWorkers)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return perr.Wrap(ctx.Err(), perr.ErrorCodeCanceled, "prep canceled")
			}
			return perr.Wrapf(err, perr.ErrorCodeUnknown, "align %s", gen)
		}
		for _, e := range excl {
			r.issue(domain.Issue{
				Kind:       perr.ErrorCodeSubjectExcluded.String(),
				Subject:    e.Subject,
				Generation: gen.String(),
				Detail:     e.Reason,
			})
		}
		r.idx.SetTensorRows(gen, t.Subjects)
		r.tensors[gen] = t

		ts := domain.TensorSummary{
			Generation: gen.String(),
			Subjects:   t.Len(),
			Excluded:   len(excl),
			Duplicates: dups,
			Days:       t.Days,
			Epochs:     t.Epochs,
			Channels:   t.Channels,

			Truncated:       t.Truncated(),
			DiscardedEpochs: t.DiscardedEpochs(),
		}
		for i := range t.Len() {
			ts.ValidEpochs += int64(t.ValidEpochs(i))
		}
		r.sum.Tensors = append(r.sum.Tensors, ts)
		logger.C(ctx).Debug().Str("generation", gen.String()).Int("subjects", t.Len()).
			Int("excluded", len(excl)).Int("duplicates", dups).
			Int("truncated", ts.Truncated).Msg("prep: aligned")
	}
	return nil
}

// finish fills the counters and the final status; it may be called more than once
func (r *run) finish(now time.Time, err error) {
	r.sum.FinishedAt = now.UTC()
	r.sum.Status, r.sum.Err, r.sum.Subjects = domain.RunOK, "", 0
	if r.idx != nil {
		r.sum.SubjectsByCycle = r.idx.CountByCycle()
		delete(r.sum.SubjectsByCycle, 0)
		for _, n := range r.sum.SubjectsByCycle {
			r.sum.Subjects += n
		}
	}
	if r.frame != nil {
		r.sum.FrameRows = r.frame.Len()
		r.sum.Completeness = r.frame.Completeness()
	}
	slices.SortStableFunc(r.sum.Files, func(a, b domain.FileReport) int { return strings.Compare(a.Name, b.Name) })
	r.sum.IssueCounts = map[string]int{}
	for _, is := range r.sum.Issues {
		r.sum.IssueCounts[is.Kind]++
	}
	for _, f := range r.sum.Files {
		if f.Status == domain.FileFailed {
			r.sum.Status = domain.RunPartial
		}
	}
	if err != nil {
		r.sum.Err = err.Error()
		r.sum.Status = domain.RunFailed
		if perr.IsCode(err, perr.ErrorCodeCanceled) {
			r.sum.Status = domain.RunCanceled
		}
	}
}
