package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"nhanes/internal/adapters/ingest/codebook"
	"nhanes/internal/adapters/ingest/variables"
	"nhanes/internal/core/sensor"
	"nhanes/internal/modkit"
	"nhanes/internal/modkit/module"
	"nhanes/internal/platform/config"
	"nhanes/internal/platform/logger"
	"nhanes/internal/services/prep/domain"
	prepmod "nhanes/internal/services/prep/module"

	"github.com/spf13/cobra"
)

type runFlags struct {
	dir          string
	vars         string
	codebook     string
	runID        string
	generations  []string
	coalesce     bool
	mortality    bool
	publish      bool
	ensureSchema bool
	decode       int
	align        int
	out          string
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline over a release directory",
		Long: `Decodes every needed file of --dir, resolves the variables of --vars across cycles,
joins mortality linkage when asked, aligns accelerometer data, and prints the run summary.

Exit status is 0 for a clean run, 2 when some files failed but the run completed, and 1
when the run failed or was canceled. Nothing is published unless the run completes.`,
		Example: `  nhanes-prep run --dir ./data --vars vars.yaml --codebook codebook.csv --mortality
  nhanes-prep run --dir ./data --vars vars.yaml --generations gen2011 --publish`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.dir, "dir", "", "directory holding the release files")
	fl.StringVar(&f.vars, "vars", "", "YAML variable mapping (name to alternative codes)")
	fl.StringVar(&f.codebook, "codebook", "", "codebook export used for missing codes and file selection")
	fl.StringVar(&f.runID, "run-id", "", "run id to publish under (random when empty)")
	fl.StringSliceVar(&f.generations, "generations", nil, "accelerometer generations to align (gen2003, gen2011); all when empty")
	fl.BoolVar(&f.coalesce, "coalesce", false, "fill a missing value from later alternative codes of the same cycle")
	fl.BoolVar(&f.mortality, "mortality", false, "join mortality linkage columns into the frame")
	fl.BoolVar(&f.publish, "publish", false, "publish the ledger, frame and tensors to the configured stores")
	fl.BoolVar(&f.ensureSchema, "ensure-schema", false, "create ledger and tensor tables before publishing")
	fl.IntVar(&f.decode, "decode-workers", 0, "concurrent file decoders (PREP_DECODE_WORKERS)")
	fl.IntVar(&f.align, "align-workers", 0, "concurrent subject aligners (PREP_ALIGN_WORKERS)")
	fl.StringVar(&f.out, "out", "-", "summary destination, - for stdout")
	_ = cmd.MarkFlagRequired("dir")
	_ = cmd.MarkFlagRequired("vars")
	return cmd
}

// buildPlan loads the variable mapping and codebook named by f
func buildPlan(f runFlags) (domain.Plan, error) {
	vars, err := variables.Load(f.vars)
	if err != nil {
		return domain.Plan{}, err
	}
	plan := domain.Plan{
		RunID:     f.runID,
		Dir:       f.dir,
		Variables: vars,
		Coalesce:  f.coalesce,
		Mortality: f.mortality,
		Publish:   f.publish,
	}
	for _, g := range f.generations {
		gen, err := sensor.ParseGeneration(g)
		if err != nil {
			return domain.Plan{}, err
		}
		plan.Generations = append(plan.Generations, gen)
	}
	if f.codebook != "" {
		cb, err := codebook.Load(f.codebook)
		if err != nil {
			return domain.Plan{}, err
		}
		if f.mortality {
			cb = cb.Merge(codebook.Mortality())
		}
		plan.Codebook = cb
	}
	return plan, nil
}

func runPipeline(ctx context.Context, stdout io.Writer, f runFlags) error {
	plan, err := buildPlan(f)
	if err != nil {
		return err
	}

	if f.decode > 0 {
		mustSetEnv("PREP_DECODE_WORKERS", strconv.Itoa(f.decode))
	}
	if f.align > 0 {
		mustSetEnv("PREP_ALIGN_WORKERS", strconv.Itoa(f.align))
	}
	if f.ensureSchema {
		mustSetEnv("PREP_ENSURE_SCHEMA", "1")
	}

	root := config.New()
	l := logger.Get()
	deps := modkit.Deps{Cfg: root, Log: *l}
	if f.publish {
		st, err := openStore(ctx, root)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() {
			if err := st.Close(context.Background()); err != nil {
				l.Error().Err(err).Msg("failed to close store")
			}
		}()
		deps.PG, deps.CH = st.PG, st.CH
	}

	pm := prepmod.New(deps)
	module.Register(pm.Name(), pm.Ports())
	if pm.Options().EnsureSchema {
		if err := pm.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	ports, ok := module.PortsAs[prepmod.Ports](pm.Name())
	if !ok {
		return fmt.Errorf("prep ports not registered")
	}

	res, runErr := ports.Runner.Run(ctx, plan)
	if res == nil {
		return runErr
	}
	if err := writeSummary(stdout, f.out, res.Summary); err != nil {
		return err
	}
	switch {
	case runErr != nil:
		l.Error().Err(runErr).Msg("prep run failed")
		return exitError{code: exitFailed}
	case res.Summary.Status == domain.RunPartial:
		return exitError{code: exitPartial}
	}
	return nil
}

func writeSummary(stdout io.Writer, dest string, sum domain.Summary) error {
	w := stdout
	if dest != "" && dest != "-" {
		file, err := os.Create(dest)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sum); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
