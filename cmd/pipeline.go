package main

import (
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mapworks/censusmap/internal/model"
	"github.com/mapworks/censusmap/internal/pipeline"
)

var pipelineFlags joinFlags

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the tabular-spatial join",
	Long:  "Loads the attribute and boundary sources, joins attributes onto geometries by region code for one census year and parent region, and records the run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		res, opts, err := pipelineFlags.execute(ctx)
		if err != nil {
			return err
		}

		st, err := initStore()
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.RecordRun(ctx, model.PipelineRun{
			Year:         opts.Year,
			ParentRegion: opts.ParentRegion,
			GeometryRows: res.GeometryRows,
			MatchedRows:  res.MatchedRows,
			SkippedCodes: res.SkippedCodes,
			TargetSRID:   opts.TargetSRID,
			DurationMs:   int(res.Duration.Milliseconds()),
		})
		if err != nil {
			return eris.Wrap(err, "record run")
		}

		formatJoinSummary(os.Stdout, run.ID, res, opts)
		return nil
	},
}

func init() {
	pipelineFlags.register(pipelineCmd)
	rootCmd.AddCommand(pipelineCmd)
}

// formatJoinSummary prints the run counters with grouped thousands.
func formatJoinSummary(w io.Writer, runID string, res *pipeline.Result, opts pipeline.Options) {
	p := message.NewPrinter(language.English)
	_, _ = p.Fprintf(w, "Run %s\n", truncateID(runID))
	_, _ = p.Fprintf(w, "  Year:          %d\n", opts.Year)
	if opts.ParentRegion != "" {
		_, _ = p.Fprintf(w, "  Parent region: %s\n", opts.ParentRegion)
	}
	_, _ = p.Fprintf(w, "  Regions:       %v\n", res.GeometryRows)
	_, _ = p.Fprintf(w, "  Matched:       %v\n", res.MatchedRows)
	if res.SkippedCodes > 0 {
		_, _ = p.Fprintf(w, "  Skipped codes: %v\n", res.SkippedCodes)
	}
	if opts.TargetSRID != 0 {
		_, _ = p.Fprintf(w, "  Target SRID:   %d\n", opts.TargetSRID)
	}
	_, _ = p.Fprintf(w, "  Duration:      %s\n", res.Duration.Round(time.Millisecond))
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
