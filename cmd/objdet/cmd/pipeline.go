package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/objdet/internal/config"
	"github.com/MeKo-Tech/objdet/internal/inference"
	"github.com/MeKo-Tech/objdet/internal/inference/mock"
	"github.com/MeKo-Tech/objdet/internal/labels"
	"github.com/MeKo-Tech/objdet/internal/onnx"
	"github.com/MeKo-Tech/objdet/internal/pipeline"
	"github.com/spf13/cobra"
)

// mockDetections is the number of rows the synthetic model emits per image.
const mockDetections = 10

// mockLabels is used with --mock-model when no label file can be read.
var mockLabels = []string{"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck"}

// addDetectionFlags registers the model and filtering flags shared by
// detect, pdf and serve.
func addDetectionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("model", "", "detection model file (name inside models dir or path)")
	f.String("labels", "", "label file (name inside models dir or path)")
	f.Float64("threshold", 0.5, "minimum confidence; scores must be strictly greater")
	f.Int("target-size", 300, "model input edge length in pixels")
	f.String("separator", "\n", "separator between labels in text output")
	f.Bool("dedup", false, "drop repeated labels from text output")
	f.Int("threads", 0, "ONNX Runtime intra-op threads (0 = runtime default)")
	f.String("library", "", "path to the ONNX Runtime shared library")
	f.Bool("gpu", false, "enable CUDA execution provider")
	f.Int("gpu-device", 0, "CUDA device ID")
	f.String("gpu-mem-limit", "auto", "GPU memory limit (e.g. 2GB, 512MB, auto)")
	f.Int("warmup", 0, "warmup iterations before the first prediction")
	f.Bool("mock-model", false, "use a synthetic in-process model instead of ONNX Runtime")
}

// applyDetectionFlags overlays explicitly set flags onto cfg.
func applyDetectionFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("model") {
		cfg.Detection.ModelPath, _ = f.GetString("model")
	}
	if f.Changed("labels") {
		cfg.Detection.LabelsPath, _ = f.GetString("labels")
	}
	if f.Changed("threshold") {
		cfg.Detection.MinConfidence, _ = f.GetFloat64("threshold")
	}
	if f.Changed("target-size") {
		cfg.Detection.TargetSize, _ = f.GetInt("target-size")
	}
	if f.Changed("separator") {
		cfg.Detection.Separator, _ = f.GetString("separator")
	}
	if f.Changed("dedup") {
		cfg.Detection.Dedup, _ = f.GetBool("dedup")
	}
	if f.Changed("threads") {
		cfg.Detection.NumThreads, _ = f.GetInt("threads")
	}
	if f.Changed("library") {
		cfg.Detection.LibraryPath, _ = f.GetString("library")
	}
	if f.Changed("warmup") {
		cfg.Detection.WarmupIterations, _ = f.GetInt("warmup")
	}
	if f.Changed("gpu") {
		cfg.GPU.Enabled, _ = f.GetBool("gpu")
	}
	if f.Changed("gpu-device") {
		cfg.GPU.Device, _ = f.GetInt("gpu-device")
	}
	if f.Changed("gpu-mem-limit") {
		cfg.GPU.MemoryLimit, _ = f.GetString("gpu-mem-limit")
	}
	if f.Lookup("workers") != nil && f.Changed("workers") {
		cfg.Batch.Workers, _ = f.GetInt("workers")
	}
	return cfg.Validate()
}

// buildPipeline constructs the detection pipeline from cfg.
func buildPipeline(cmd *cobra.Command, cfg *config.Config, keepImage bool) (*pipeline.Pipeline, error) {
	pcfg := cfg.ToPipelineConfig()
	pcfg.KeepImage = keepImage
	b := pipeline.NewBuilderFromConfig(pcfg)

	useMock, _ := cmd.Flags().GetBool("mock-model")
	if useMock {
		table, err := labels.Load(pcfg.LabelsPath)
		if err != nil {
			slog.Debug("mock model uses built-in labels", "labels_path", pcfg.LabelsPath, "error", err)
			table = labels.New(mockLabels)
		}
		b.WithLabels(table).WithModel(mock.NewSynthetic(mockInputShape(pcfg), mockDetections, table.Len()))
	}

	p, err := b.Build()
	if err != nil {
		if errors.Is(err, inference.ErrModelUnavailable) {
			return nil, fmt.Errorf("%w (run with --mock-model to try the pipeline without a model)", err)
		}
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return p, nil
}

func mockInputShape(cfg pipeline.Config) []int64 {
	s := int64(cfg.Preprocess.Size)
	if cfg.Preprocess.Layout == onnx.LayoutNCHW {
		return []int64{1, 3, s, s}
	}
	return []int64{1, s, s, 3}
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
