package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/objdet/internal/decoder"
	"github.com/MeKo-Tech/objdet/internal/testutil"
)

// imageSpec describes one generated image.
type imageSpec struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Solid  bool   `json:"solid,omitempty"`
}

// manifestEntry records what the decoder is expected to do with a file.
type manifestEntry struct {
	Path       string `json:"path"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleSize int    `json:"sample_size"`
	Valid      bool   `json:"valid"`
}

var images = []imageSpec{
	{Name: "small_200x120.png", Width: 200, Height: 120},
	{Name: "square_300x300.png", Width: 300, Height: 300},
	{Name: "solid_300x300.png", Width: 300, Height: 300, Solid: true},
	{Name: "medium_640x480.jpg", Width: 640, Height: 480},
	{Name: "landscape_1800x1200.jpg", Width: 1800, Height: 1200},
	{Name: "portrait_1200x1800.jpg", Width: 1200, Height: 1800},
}

var hugeImages = []imageSpec{
	{Name: "huge_8000x6000.jpg", Width: 8000, Height: 6000},
}

var labels = []string{"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat"}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir       = flag.String("out", "testdata", "output directory")
		withHuge     = flag.Bool("huge", false, "also generate multi-megapixel images")
		withPDF      = flag.Bool("pdf", true, "generate a PDF with embedded images")
		withFixtures = flag.Bool("fixtures", true, "generate invalid inputs, labels and the manifest")
		verbose      = flag.Bool("v", false, "verbose output")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate images, PDFs and fixtures for objdet testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *verbose {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	specs := images
	if *withHuge {
		specs = append(specs, hugeImages...)
	}

	imgDir := filepath.Join(*outDir, "images")
	paths, err := generateImages(imgDir, specs)
	if err != nil {
		slog.Error("Failed to generate images", "error", err)
		os.Exit(1)
	}
	slog.Info("✓ Generated synthetic images", "dir", imgDir, "count", len(paths))

	if *withPDF {
		pdfPath := filepath.Join(*outDir, "pdf", "images.pdf")
		if err := generatePDF(pdfPath, paths[:3]); err != nil {
			slog.Error("Failed to generate PDF", "error", err)
			os.Exit(1)
		}
		slog.Info("✓ Generated PDF", "path", pdfPath)
	}

	if *withFixtures {
		if err := generateFixtures(*outDir, specs); err != nil {
			slog.Error("Failed to generate fixtures", "error", err)
			os.Exit(1)
		}
		slog.Info("✓ Generated fixtures", "dir", filepath.Join(*outDir, "fixtures"))
	}

	slog.Info("Test data generation completed successfully!")
}

func generateImages(dir string, specs []imageSpec) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}
	paths := make([]string, 0, len(specs))
	for _, s := range specs {
		var img image.Image = testutil.CreateGradientImage(s.Width, s.Height)
		if s.Solid {
			img = testutil.CreateSolidImage(s.Width, s.Height, color.RGBA{R: 40, G: 120, B: 200, A: 255})
		}
		path := filepath.Join(dir, s.Name)
		if err := writeImage(path, img); err != nil {
			return nil, err
		}
		slog.Debug("wrote image", "path", path, "width", s.Width, "height", s.Height)
		paths = append(paths, path)
	}
	return paths, nil
}

func writeImage(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // G304: Test data generation uses controlled paths
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".jpg") {
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 85})
	} else {
		err = png.Encode(f, img)
	}
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

func generatePDF(path string, imagePaths []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create pdf directory: %w", err)
	}
	_ = os.Remove(path)
	return api.ImportImagesFile(imagePaths, path, nil, nil)
}

func generateFixtures(outDir string, specs []imageSpec) error {
	dir := filepath.Join(outDir, "fixtures")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create fixtures directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "labels.txt"), []byte(strings.Join(labels, "\n")+"\n"), 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "not_an_image.txt"), []byte("plain text, not pixels\n"), 0o600); err != nil {
		return err
	}

	// Half of a valid PNG: the header probes fine, pixel decoding fails.
	full, err := os.ReadFile(filepath.Join(outDir, "images", specs[0].Name)) //nolint:gosec // G304: generated above
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "truncated.png"), full[:len(full)/2], 0o600); err != nil {
		return err
	}

	manifest := make([]manifestEntry, 0, len(specs)+2)
	for _, s := range specs {
		manifest = append(manifest, manifestEntry{
			Path:       filepath.Join("images", s.Name),
			Width:      s.Width,
			Height:     s.Height,
			SampleSize: decoder.CalculateSampleSize(s.Width, s.Height, 300, 300),
			Valid:      true,
		})
	}
	manifest = append(manifest,
		manifestEntry{Path: filepath.Join("fixtures", "not_an_image.txt")},
		manifestEntry{Path: filepath.Join("fixtures", "truncated.png"), Width: specs[0].Width, Height: specs[0].Height},
	)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o600)
}
