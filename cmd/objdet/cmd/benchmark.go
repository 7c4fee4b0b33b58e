package cmd

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/objdet/internal/common"
	"github.com/MeKo-Tech/objdet/internal/decoder"
	"github.com/MeKo-Tech/objdet/internal/pipeline"
	"github.com/MeKo-Tech/objdet/internal/testutil"
	"github.com/spf13/cobra"
)

// benchmarkCmd times the pipeline on synthetic images.
var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Measure prediction latency for several image sizes",
	Long: `Run the full pipeline repeatedly on synthetic gradient images and report
the average latency and allocations per image size.

Large sizes show the effect of subsampled decoding; compare them with
--gpu to measure the execution provider.

Examples:
  objdet benchmark --mock-model
  objdet benchmark --sizes 300x300,4000x3000 --iterations 20
  objdet benchmark --gpu`,
	SilenceUsage: true,
	RunE:         runBenchmarkCommand,
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)
	addDetectionFlags(benchmarkCmd)
	benchmarkCmd.Flags().String("sizes", "300x300,1280x720,1800x1200,4000x3000", "comma-separated WxH image sizes")
	benchmarkCmd.Flags().IntP("iterations", "n", 5, "predictions per size")
}

func runBenchmarkCommand(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()
	if err := applyDetectionFlags(cmd, cfg); err != nil {
		return err
	}
	sizesFlag, _ := cmd.Flags().GetString("sizes")
	iterations, _ := cmd.Flags().GetInt("iterations")
	if iterations < 1 {
		return fmt.Errorf("invalid iteration count: %d (must be positive)", iterations)
	}
	sizes, err := parseSizes(sizesFlag)
	if err != nil {
		return err
	}

	p, err := buildPipeline(cmd, cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	suite, err := benchmarkSuite(p, sizes)
	if err != nil {
		return err
	}

	// First inference pays for model loading; keep it out of the numbers.
	if err := p.Warmup(commandContext(cmd), 1); err != nil {
		return fmt.Errorf("warmup failed: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Benchmarking %d sizes, %d iterations each (target %d)\n\n",
		len(sizes), iterations, cfg.Detection.TargetSize)
	results := suite.RunAll(commandContext(cmd), iterations)
	common.WriteResults(out, results)
	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("benchmark %s failed: %w", r.Name, r.Error)
		}
	}
	return nil
}

type imageSize struct{ W, H int }

func (s imageSize) String() string { return fmt.Sprintf("%dx%d", s.W, s.H) }

func parseSizes(list string) ([]imageSize, error) {
	var sizes []imageSize
	for _, tok := range strings.Split(list, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		ws, hs, ok := strings.Cut(tok, "x")
		w, werr := strconv.Atoi(ws)
		h, herr := strconv.Atoi(hs)
		if !ok || werr != nil || herr != nil || w <= 0 || h <= 0 {
			return nil, fmt.Errorf("invalid size %q (expected WxH)", tok)
		}
		sizes = append(sizes, imageSize{W: w, H: h})
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no image sizes given")
	}
	return sizes, nil
}

// benchmarkSuite encodes one PNG per size up front so only prediction is timed.
func benchmarkSuite(p *pipeline.Pipeline, sizes []imageSize) (*common.Suite, error) {
	suite := &common.Suite{}
	for _, s := range sizes {
		var buf bytes.Buffer
		if err := png.Encode(&buf, testutil.CreateGradientImage(s.W, s.H)); err != nil {
			return nil, fmt.Errorf("encode %s: %w", s, err)
		}
		src := decoder.BytesSource(s.String()+".png", buf.Bytes())
		suite.Add(s.String(), func(ctx context.Context) error {
			_, err := p.Predict(ctx, src)
			return err
		})
	}
	return suite, nil
}
