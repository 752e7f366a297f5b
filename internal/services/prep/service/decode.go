package service

import (
	"context"
	"errors"
	"io"
	"time"

	"nhanes/internal/adapters/ingest/nhanesfiles"
	"nhanes/internal/adapters/ingest/pax"
	"nhanes/internal/core/align"
	"nhanes/internal/core/fixedwidth"
	"nhanes/internal/core/resolve"
	"nhanes/internal/core/table"
	"nhanes/internal/core/xport"
	perr "nhanes/internal/platform/errors"
	"nhanes/internal/platform/logger"
	"nhanes/internal/services/prep/domain"
	"nhanes/internal/services/prep/guardrails"
)

// cancelEvery is how many sensor rows are streamed between context checks
const cancelEvery = 4096

// decoded is the outcome of one file task
type decoded struct {
	file   domain.FileRef
	report domain.FileReport
	table  *table.Table
	series []align.Series
	issues []domain.Issue
}

func reportOf(f domain.FileRef) domain.FileReport {
	r := domain.FileReport{
		Path:     f.Path,
		Name:     f.Name,
		Category: f.Category,
		Cycle:    f.Cycle,
		Kind:     f.Kind.String(),
		Status:   domain.FileOK,
		Declared: -1,
	}
	if f.Kind == nhanesfiles.Sensor {
		r.Gen = f.Gen.String()
	}
	return r
}

// decodeFile runs one file task; the returned error is non nil only for fatal or canceled work
func (s *Service) decodeFile(ctx context.Context, f domain.FileRef) (decoded, error) {
	d := decoded{file: f, report: reportOf(f)}
	t0 := time.Now()

	fctx, cancel := guardrails.ForFile(logger.WithFile(ctx, f.Name), s.timeouts())
	defer cancel()
	log := logger.C(fctx)

	err := s.decodeInto(fctx, &d)
	d.report.ElapsedMS = int(time.Since(t0).Milliseconds())
	if err == nil {
		for _, is := range d.issues {
			if is.Kind == perr.ErrorCodeTruncated.String() {
				d.report.Status = domain.FileWarning
			}
		}
		log.Debug().Int("rows", d.report.Rows).Int64("bytes", d.report.Bytes).
			Str("status", string(d.report.Status)).Msg("prep: file decoded")
		return d, nil
	}

	err = classify(ctx, err)
	d.report.Status = domain.FileFailed
	d.report.Err = err.Error()
	d.table, d.series = nil, nil
	switch code := perr.CodeOf(err); {
	case perr.Fatal(err), code == perr.ErrorCodeCanceled:
		log.Error().Err(err).Msg("prep: file aborted the run")
		return d, err
	default:
		log.Warn().Err(err).Str("code", code.String()).Msg("prep: file failed")
		d.issues = append(d.issues, domain.Issue{
			Kind:       code.String(),
			Cycle:      f.Cycle,
			File:       f.Name,
			Generation: d.report.Gen,
			Detail:     err.Error(),
		})
		return d, nil
	}
}

func (s *Service) decodeInto(ctx context.Context, d *decoded) error {
	rc, err := s.Source.Open(ctx, d.file)
	if err != nil {
		return err
	}
	defer rc.Close()
	cr := &countingReader{r: rc}
	defer func() { d.report.Bytes = cr.n }()

	switch d.file.Kind {
	case nhanesfiles.Response:
		t, warns, err := xport.DecodeAll(cr)
		if err != nil {
			return err
		}
		if t.Col(resolve.DefaultKey) < 0 {
			return perr.Newf(perr.ErrorCodeSchemaMismatch, "%s has no %s column", d.file.Name, resolve.DefaultKey)
		}
		d.table = t
		d.report.Rows, d.report.Columns = t.Len(), len(t.Schema.Columns)
		d.report.Declared = declared(t.Len(), warns)
		d.truncated(warns)

	case nhanesfiles.Mortality:
		t, err := fixedwidth.Decode(cr, fixedwidth.MortalityLayout())
		if err != nil {
			return err
		}
		d.table = t
		d.report.Rows, d.report.Columns = t.Len(), len(t.Schema.Columns)
		d.report.Declared = t.Len()

	case nhanesfiles.Sensor:
		dec, err := xport.NewDecoder(cr)
		if err != nil {
			return err
		}
		x, err := pax.New(d.file.Gen)
		if err != nil {
			return err
		}
		vals := make([]table.Value, len(dec.Columns()))
		for n := 0; ; n++ {
			if n%cancelEvery == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if err := dec.Scan(vals); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return err
			}
			if err := x.Consume(table.NewRecord(dec.Schema(), vals)); err != nil {
				return err
			}
		}
		d.series = x.Series()
		rows, _ := dec.Stats()
		d.report.Rows, d.report.Columns = rows, len(dec.Columns())
		d.report.Declared = dec.Declared()
		d.report.Subjects = len(d.series)
		d.truncated(dec.Warnings())
		if x.Skipped() > 0 {
			logger.C(ctx).Debug().Int("skipped", x.Skipped()).Msg("prep: sensor rows without subject or position")
		}

	default:
		return perr.InvalidArgf("unknown file kind %s", d.file.Kind)
	}
	return nil
}

func (d *decoded) truncated(warns []xport.TruncatedWarning) {
	for i := range warns {
		d.issues = append(d.issues, domain.Issue{
			Kind:       perr.ErrorCodeTruncated.String(),
			Cycle:      d.file.Cycle,
			File:       d.file.Name,
			Generation: d.report.Gen,
			Detail:     warns[i].Error(),
		})
	}
}

// declared reports the header row count, falling back to what was read
func declared(rows int, warns []xport.TruncatedWarning) int {
	for _, w := range warns {
		if w.Declared >= 0 {
			return w.Declared
		}
	}
	return rows
}

// classify maps decoder errors onto the platform taxonomy
// parent is the run context; a file timeout with a live parent fails only the file
func classify(parent context.Context, err error) error {
	if parent.Err() != nil {
		return perr.Wrap(parent.Err(), perr.ErrorCodeCanceled, "prep canceled")
	}
	if _, ok := perr.As(err); ok {
		return err
	}
	var (
		de *xport.DecodeError
		me *xport.MalformedError
		sm *fixedwidth.SchemaMismatchError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "file timed out")
	case errors.As(err, &me):
		return perr.Wrap(err, perr.ErrorCodeMalformed, "malformed transport file")
	case errors.As(err, &de):
		return perr.Wrap(err, perr.ErrorCodeDecode, "undecodable transport file")
	case errors.As(err, &sm), errors.Is(err, pax.ErrMissingColumn):
		return perr.Wrap(err, perr.ErrorCodeSchemaMismatch, "file does not match its layout")
	default:
		return perr.Wrap(err, perr.ErrorCodeDecode, "read failed")
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
