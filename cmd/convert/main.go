// Command convert runs one conversion batch from the command line:
// queue the given images, convert them, and optionally move the outputs
// to a destination directory.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"batchconv/internal/codec"
	"batchconv/internal/export"
	"batchconv/internal/queue"
	"batchconv/internal/worker"
)

var (
	flagFormat   string
	flagQuality  int
	flagKeepMeta bool
	flagSuffix   string
	flagOutDir   string
	flagMoveTo   string
)

func main() {
	root := &cobra.Command{
		Use:   "convert [files...]",
		Short: "Convert a batch of images to a chosen output format",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run,
	}
	root.Flags().StringVarP(&flagFormat, "format", "f", "JPG", "output format (JPG, JPEG, PNG, WEBP, TIFF, BMP)")
	root.Flags().IntVarP(&flagQuality, "quality", "q", 90, "quality for JPEG/WEBP output")
	root.Flags().BoolVar(&flagKeepMeta, "keep-metadata", true, "carry EXIF metadata into the output when present")
	root.Flags().StringVar(&flagSuffix, "suffix", "_converted", "filename suffix appended to the source stem")
	root.Flags().StringVarP(&flagOutDir, "output", "o", "converted_output", "output directory")
	root.Flags().StringVar(&flagMoveTo, "move-to", "", "move converted files to this directory afterwards")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	q := queue.New()
	added := q.Add(args)
	if added == 0 {
		return fmt.Errorf("no supported images among the given paths")
	}
	if skipped := len(args) - added; skipped > 0 {
		log.Printf("skipped %d path(s): not images or duplicates", skipped)
	}

	runner := worker.New(export.New(codec.Default()), nil)
	_, events, err := runner.Start(q.List(), worker.Options{
		FormatName:   flagFormat,
		Quality:      flagQuality,
		KeepMetadata: flagKeepMeta,
		Suffix:       flagSuffix,
		OutputDir:    flagOutDir,
	})
	if err != nil {
		return err
	}

	var result *worker.Result
	for ev := range events {
		if ev.Result != nil {
			result = ev.Result
			continue
		}
		fmt.Printf("\r%d/%d", ev.Progress.Done, ev.Progress.Total)
	}
	fmt.Printf("\nconverted %d file(s), %d failed, output: %s\n",
		result.Successes, result.Failures, result.OutputDir)

	if flagMoveTo != "" {
		moved, err := runner.MoveArtifacts(flagMoveTo)
		if err != nil {
			return err
		}
		remaining := len(runner.Artifacts())
		fmt.Printf("moved %d file(s) to %s", moved, flagMoveTo)
		if remaining > 0 {
			fmt.Printf(", %d left for retry", remaining)
		}
		fmt.Println()
	}

	if result.Failures > 0 {
		os.Exit(1)
	}
	return nil
}
