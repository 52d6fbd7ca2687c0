package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/andresmejia3/stable/internal/card"
	"github.com/andresmejia3/stable/internal/types"
	"github.com/andresmejia3/stable/internal/utils"
	"github.com/andresmejia3/stable/internal/worker"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var batchOpts Options

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Tune every image in a directory with parallel engines",
	Run: func(cmd *cobra.Command, args []string) {
		batchOpts.applyDefaults(cmd.Flags().Changed, Cfg.Defaults)
		if !cmd.Flags().Changed("output") {
			batchOpts.OutputPath = filepath.Join(Cfg.Output.Dir, "tuned")
		}

		fmt.Fprintf(os.Stderr, "⚙️  Spawning %d Worker Engines...\n", max(batchOpts.NumEngines, 1))
		summary, err := runBatch(cmd.Context(), batchOpts, os.Stderr)
		if err != nil {
			utils.Die("Batch failed", err)
		}

		fmt.Fprintf(os.Stderr, "\n🏁 Batch Complete. Wrote %d images (%s) to %s.\n",
			summary.Written, humanize.Bytes(uint64(summary.Bytes)), batchOpts.OutputPath)
		if len(summary.Failed) > 0 {
			fmt.Fprintf(os.Stderr, "⚠️  Skipped %d files that could not be tuned.\n", len(summary.Failed))
		}
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchOpts.InputPath, "input", "i", "", "Directory of horse photos")
	batchCmd.Flags().StringVarP(&batchOpts.OutputPath, "output", "o", "", "Output directory (default: <output dir>/tuned)")
	batchCmd.Flags().IntVarP(&batchOpts.NumEngines, "engines", "e", 1, "Number of parallel engine workers")
	addTuningFlags(batchCmd, &batchOpts)

	batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

// batchSummary is what the aggregator reports once every result is in.
type batchSummary struct {
	Written int
	Bytes   int64
	Failed  []types.ImageResult
}

// validateBatchFlags ensures all CLI arguments are valid before spawning engines.
func validateBatchFlags(opts *Options) error {
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input directory does not exist: %w", err)
		}
		return fmt.Errorf("unable to access input directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("input path %s is a file, expected a directory", opts.InputPath)
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	in, _ := filepath.Abs(opts.InputPath)
	out, _ := filepath.Abs(opts.OutputPath)
	if in == out {
		return fmt.Errorf("output directory must differ from the input directory")
	}
	if opts.NumEngines < 1 {
		opts.NumEngines = 1
	}
	return card.ValidateTuning(opts.Tuning())
}

// collectImages lists the regular files in dir in name order. Decodability is
// left to the engines so bad files are reported rather than silently ignored.
func collectImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() || e.Name()[0] == '.' {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// runBatch orchestrates the pool: directory listing, engines, and ordered result reporting.
func runBatch(ctx context.Context, opts Options, progress io.Writer) (batchSummary, error) {
	if err := validateBatchFlags(&opts); err != nil {
		return batchSummary{}, err
	}

	paths, err := collectImages(opts.InputPath)
	if err != nil {
		return batchSummary{}, err
	}
	if len(paths) == 0 {
		return batchSummary{}, fmt.Errorf("no files found in %s", opts.InputPath)
	}

	// Two sources with the same base name would overwrite each other.
	namer := worker.NewEngine(0, opts.Tuning(), opts.OutputPath)
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		out := namer.OutputPath(p)
		if prev, ok := seen[out]; ok {
			return batchSummary{}, fmt.Errorf("%s and %s would both write %s", prev, p, out)
		}
		seen[out] = p
	}

	if err := os.MkdirAll(opts.OutputPath, 0755); err != nil {
		return batchSummary{}, fmt.Errorf("creating output directory: %w", err)
	}

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("🎨 Stable Tuning"),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
	)

	taskChan := make(chan types.ImageTask, opts.NumEngines)
	resultsChan := make(chan types.ImageResult, opts.NumEngines*2)
	var wg sync.WaitGroup

	// Start Aggregator (Consumer)
	// Must run concurrently to prevent deadlock on resultsChan
	aggDone := make(chan batchSummary, 1)
	go func() {
		aggDone <- processResults(resultsChan, bar, progress)
	}()

	// Spawn the Engine Pool
	for i := 0; i < opts.NumEngines; i++ {
		wg.Add(1)
		go func(engineID int) {
			defer wg.Done()
			worker.NewEngine(engineID, opts.Tuning(), opts.OutputPath).Run(ctx, taskChan, resultsChan)
		}(i)
	}

feed:
	for i, p := range paths {
		select {
		case taskChan <- types.ImageTask{Index: i, Path: p}:
		case <-ctx.Done():
			break feed
		}
	}

	close(taskChan)
	wg.Wait()
	close(resultsChan)

	// Wait for aggregator to finish processing
	summary := <-aggDone
	bar.Finish()

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// processResults reports results in input order. Engine 2 may finish before engine 1.
func processResults(results <-chan types.ImageResult, bar *progressbar.ProgressBar, w io.Writer) batchSummary {
	buffer := make(map[int]types.ImageResult)
	next := 0
	var summary batchSummary

	for res := range results {
		bar.Add(1)
		buffer[res.Index] = res

		for {
			r, ok := buffer[next]
			if !ok {
				break
			}
			delete(buffer, next)
			next++

			if r.Err != nil {
				fmt.Fprintf(w, "\n⚠️  Skipped %s: %v\n", filepath.Base(r.Source), r.Err)
				summary.Failed = append(summary.Failed, r)
				continue
			}
			Logger.Debug("image tuned", zap.String("source", r.Source), zap.String("output", r.Output), zap.Int64("bytes", r.Bytes))
			summary.Written++
			summary.Bytes += r.Bytes
		}
	}
	return summary
}
