package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/MeKo-Tech/objdet/internal/batch"
	"github.com/MeKo-Tech/objdet/internal/decoder"
	"github.com/MeKo-Tech/objdet/internal/pdf"
	"github.com/MeKo-Tech/objdet/internal/pipeline"
	"github.com/spf13/cobra"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf [file...]",
	Short: "Detect objects in images embedded in PDF files",
	Long: `Extract the images embedded in PDF pages and run detection on each.

Every extracted image goes through the same bounded decoder as regular
image input, so very large scans are subsampled before inference.

Examples:
  objdet pdf document.pdf
  objdet pdf *.pdf --format json
  objdet pdf scan.pdf --pages 1-5 --password secret`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         processPDFs,
}

func init() {
	rootCmd.AddCommand(pdfCmd)

	addDetectionFlags(pdfCmd)
	f := pdfCmd.Flags()
	f.StringP("format", "f", pipeline.FormatText, "output format (text, json, csv)")
	f.StringP("output", "o", "", "output file (default: stdout)")
	f.String("overlay-dir", "", "write annotated copies of each extracted image to this directory")
	f.String("pages", "", "page range to process (e.g., '1-5', '1,3,5')")
	f.String("password", "", "password for encrypted PDFs")
	f.IntP("workers", "w", 4, "parallel decode workers")
	f.Bool("progress", false, "show a progress bar and statistics on stderr")
	f.BoolP("quiet", "q", false, "suppress informational output")
}

func processPDFs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("no PDF files provided")
	}

	cfg := GetConfig()
	if err := applyDetectionFlags(cmd, cfg); err != nil {
		return err
	}
	bcfg, err := configToBatchConfig(cfg, cmd)
	if err != nil {
		return err
	}
	pages, _ := cmd.Flags().GetString("pages")
	password, _ := cmd.Flags().GetString("password")

	p, err := buildPipeline(cmd, cfg, bcfg.OverlayDir != "")
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	combined := &batch.Result{WorkerCount: bcfg.Workers}
	for _, file := range args {
		res, err := detectPDF(cmd, p, file, pdf.Options{Pages: pages, Password: password}, bcfg, len(args) > 1)
		if err != nil {
			return err
		}
		combined.Items = append(combined.Items, res.Items...)
		combined.Overlays = append(combined.Overlays, res.Overlays...)
		combined.Duration += res.Duration
	}

	if err := combined.SaveResults(cmd.OutOrStdout(), bcfg.Format, bcfg.OutputFile, bcfg.Quiet); err != nil {
		return err
	}
	if bcfg.ShowProgress && !bcfg.Quiet {
		combined.PrintStats(cmd.ErrOrStderr())
	}
	if failed := combined.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(combined.Items))
	}
	return nil
}

// detectPDF extracts the images of one PDF and predicts them. The temporary
// extraction directory is removed before returning.
func detectPDF(cmd *cobra.Command, p batch.Predictor, file string, opts pdf.Options,
	bcfg *batch.Config, prefix bool,
) (*batch.Result, error) {
	extracted, cleanup, err := pdf.ExtractImages(file, opts)
	defer cleanup()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	images := pdf.Sorted(extracted)
	if len(images) == 0 {
		slog.Info("no embedded images found", "file", file)
		return &batch.Result{}, nil
	}

	sources := make([]decoder.Source, len(images))
	for i, img := range images {
		sources[i] = img.Source()
		if prefix {
			sources[i].Name = filepath.Base(file) + " " + sources[i].Name
		}
	}
	res, err := batch.RunSources(commandContext(cmd), p, sources, bcfg)
	if res == nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return res, nil
}
