package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ministryofjustice/probation-case-sampler/internal/cases"
	"github.com/ministryofjustice/probation-case-sampler/internal/report"
	"github.com/ministryofjustice/probation-case-sampler/internal/sampler"
	"github.com/ministryofjustice/probation-case-sampler/internal/store/postgres"
)

type sampleFlags struct {
	input       string
	size        int
	buffer      float64
	maxPerAgent int
	seed        uint64
	jsonPath    string
	detail      bool
	databaseURL string
	topN        int
	showAll     bool
}

func newSampleCmd(a *app) *cobra.Command {
	var f sampleFlags
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Sample a long-list file and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("buffer") {
				a.cfg.Sample.BufferPercentage = f.buffer
			}
			if flags.Changed("max-per-agent") {
				a.cfg.Sample.MaxPerAgent = f.maxPerAgent
			}
			if flags.Changed("seed") {
				a.cfg.Sample.Seed = &f.seed
			}
			if flags.Changed("database-url") {
				a.cfg.Database.URL = f.databaseURL
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.runSample(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Long-list file, JSON or CSV (required)")
	cmd.Flags().IntVarP(&f.size, "size", "n", 0, "Requested sample size (required)")
	cmd.Flags().Float64Var(&f.buffer, "buffer", 0, "Buffer percentage added to the target")
	cmd.Flags().IntVar(&f.maxPerAgent, "max-per-agent", 0, "Most cases one responsible officer may contribute")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Fix the random draw")
	cmd.Flags().StringVar(&f.jsonPath, "json", "", "Write the report as JSON to this path")
	cmd.Flags().BoolVar(&f.detail, "detail", false, "Include the allocation breakdown in JSON output")
	cmd.Flags().StringVar(&f.databaseURL, "database-url", "", "Postgres URL to record the run in")
	cmd.Flags().IntVar(&f.topN, "top", 20, "Number of selected cases to list")
	cmd.Flags().BoolVar(&f.showAll, "show-all", false, "List every selected case")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("size")
	return cmd
}

func (a *app) runSample(ctx context.Context, out io.Writer, f sampleFlags) error {
	records, warnings, err := loadRecords(f.input)
	if err != nil {
		return err
	}
	if len(warnings) > 0 {
		fmt.Fprintln(out, "Warnings:")
		for _, warning := range warnings {
			fmt.Fprintf(out, "- %s\n", warning)
		}
		fmt.Fprintln(out)
	}
	if err := cases.Validate(records); err != nil {
		return err
	}

	opts := []sampler.Option{sampler.WithLogger(a.logger)}
	if seed := a.cfg.Sample.Seed; seed != nil {
		opts = append(opts, sampler.WithSeed(*seed))
	}
	rep, err := sampler.New(opts...).Allocate(sampler.Request{
		Records:          records,
		Size:             f.size,
		BufferPercentage: a.cfg.Sample.BufferPercentage,
		MaxPerAgent:      a.cfg.Sample.MaxPerAgent,
	})
	if err != nil {
		return err
	}

	report.PrintSummary(out, rep)
	report.PrintRows(out, rep, f.topN, f.showAll)

	if f.jsonPath != "" {
		if err := report.WriteJSON(f.jsonPath, rep, f.detail); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nJSON written to %s\n", f.jsonPath)
	}

	if url := a.cfg.Database.URL; url != "" {
		store, pool, err := postgres.Open(ctx, url)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := store.Save(ctx, rep); err != nil {
			return err
		}
		a.logger.Info("report stored", zap.String("run", rep.ID.String()))
	}
	return nil
}

// loadRecords picks the decoder from the file extension.
func loadRecords(path string) ([]cases.Record, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open long-list: %w", err)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return cases.LoadCSV(file)
	}
	records, err := cases.DecodeJSON(file)
	return records, nil, err
}
