package cmd

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/MeKo-Tech/objdet/internal/batch"
	"github.com/MeKo-Tech/objdet/internal/config"
	"github.com/MeKo-Tech/objdet/internal/decoder"
	"github.com/MeKo-Tech/objdet/internal/pipeline"
	"github.com/spf13/cobra"
)

// maxStdinBytes bounds an image read from standard input.
const maxStdinBytes = 256 << 20

var validFormats = []string{pipeline.FormatText, pipeline.FormatJSON, pipeline.FormatCSV}

// detectCmd represents the detect command.
var detectCmd = &cobra.Command{
	Use:   "detect [files|dirs|-]...",
	Short: "Detect objects in images",
	Long: `Detect objects in one or more images and print the labels found.

Arguments may be files, directories or glob patterns. Use "-" to read a
single image from standard input. Only labels scoring strictly above the
threshold are reported; an image with none prints "No Objects Detected".

Supported formats: JPEG, PNG, GIF, BMP, TIFF, WebP

Examples:
  objdet detect photo.jpg
  objdet detect images/ --recursive --workers 8
  objdet detect *.png --format json --output results.json
  cat photo.jpg | objdet detect - --threshold 0.6
  objdet detect photo.jpg --overlay-dir out/`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runDetectCommand,
}

func runDetectCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("no input files provided")
	}

	cfg := GetConfig()
	if err := applyDetectionFlags(cmd, cfg); err != nil {
		return err
	}
	bcfg, err := configToBatchConfig(cfg, cmd)
	if err != nil {
		return err
	}

	p, err := buildPipeline(cmd, cfg, bcfg.OverlayDir != "")
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	ctx := commandContext(cmd)
	var res *batch.Result
	if slices.Equal(args, []string{"-"}) {
		src, serr := decoder.ReaderSource("stdin", cmd.InOrStdin(), maxStdinBytes)
		if serr != nil {
			return serr
		}
		res, err = batch.RunSources(ctx, p, []decoder.Source{src}, bcfg)
	} else {
		res, err = batch.Run(ctx, p, args, bcfg)
	}
	if res == nil {
		return err
	}

	out := cmd.OutOrStdout()
	if serr := res.SaveResults(out, bcfg.Format, bcfg.OutputFile, bcfg.Quiet); serr != nil {
		return serr
	}
	if bcfg.ShowProgress && !bcfg.Quiet {
		res.PrintStats(cmd.ErrOrStderr())
	}
	if err != nil {
		return err
	}
	if failed := res.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(res.Items))
	}
	return nil
}

// configToBatchConfig maps the configuration and flags to batch.Config.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) (*batch.Config, error) {
	f := cmd.Flags()
	bc := &batch.Config{
		Format:     cfg.Output.Format,
		OutputFile: cfg.Output.File,
		OverlayDir: cfg.Output.OverlayDir,
		Overlay:    cfg.ToOverlayOptions(),
		Workers:    cfg.Batch.Workers,
		Recursive:  cfg.Batch.Recursive,
	}
	if f.Changed("format") {
		bc.Format, _ = f.GetString("format")
	}
	if f.Changed("output") {
		bc.OutputFile, _ = f.GetString("output")
	}
	if f.Changed("overlay-dir") {
		bc.OverlayDir, _ = f.GetString("overlay-dir")
	}
	if f.Changed("recursive") {
		bc.Recursive, _ = f.GetBool("recursive")
	}
	bc.IncludePatterns, _ = f.GetStringSlice("include")
	bc.ExcludePatterns, _ = f.GetStringSlice("exclude")
	bc.ShowProgress, _ = f.GetBool("progress")
	bc.Quiet, _ = f.GetBool("quiet")
	bc.ProgressInterval, _ = f.GetDuration("progress-interval")

	bc.Format = strings.ToLower(bc.Format)
	if !slices.Contains(validFormats, bc.Format) {
		return nil, fmt.Errorf("invalid output format: %s (must be one of: %s)",
			bc.Format, strings.Join(validFormats, ", "))
	}
	if bc.Workers < 1 {
		return nil, fmt.Errorf("invalid worker count: %d (must be positive)", bc.Workers)
	}
	if bc.OverlayDir != "" {
		if err := os.MkdirAll(bc.OverlayDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create overlay directory: %w", err)
		}
	}
	return bc, nil
}

func init() {
	rootCmd.AddCommand(detectCmd)

	addDetectionFlags(detectCmd)
	f := detectCmd.Flags()
	f.StringP("format", "f", pipeline.FormatText, "output format (text, json, csv)")
	f.StringP("output", "o", "", "write results to file instead of stdout")
	f.String("overlay-dir", "", "write annotated copies of each image to this directory")
	f.BoolP("recursive", "r", false, "descend into subdirectories")
	f.IntP("workers", "w", 4, "parallel decode workers")
	f.StringSlice("include", nil, "only process files matching these patterns")
	f.StringSlice("exclude", nil, "skip files matching these patterns")
	f.Bool("progress", false, "show a progress bar and statistics on stderr")
	f.Duration("progress-interval", 0, "minimum time between progress updates")
	f.BoolP("quiet", "q", false, "suppress informational output")
}
