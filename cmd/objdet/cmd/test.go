package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/objdet/internal/models"
	"github.com/MeKo-Tech/objdet/internal/onnx"
	"github.com/spf13/cobra"
)

// testCmd represents the test command.
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test ONNX Runtime setup and the detection model",
	Long: `Test the ONNX Runtime installation and verify that the detection model
can be loaded.

This command performs basic checks to ensure:
- ONNX Runtime is properly installed
- The detection model exists and declares its inputs and outputs
- The label file can be found`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cfg := GetConfig()
		lib, _ := cmd.Flags().GetString("library")
		if lib == "" {
			lib = cfg.Detection.LibraryPath
		}

		_, _ = fmt.Fprintln(out, cmd.Short)
		_, _ = fmt.Fprintln(out, "Testing ONNX Runtime setup...")

		info, err := onnx.CheckRuntime(lib, cfg.GPU.Enabled)
		if err != nil {
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintln(out, "Please ensure ONNX Runtime is properly set up:")
			_, _ = fmt.Fprintln(out, "1. Run: ./scripts/setup-onnxruntime.sh")
			_, _ = fmt.Fprintln(out, "2. Or pass --library /path/to/libonnxruntime.so")
			return fmt.Errorf("ONNX Runtime test failed: %w", err)
		}
		_, _ = fmt.Fprintf(out, "✓ ONNX Runtime %s (%s)\n", info.Version, info.LibraryPath)

		pcfg := cfg.ToPipelineConfig()
		if err := models.ValidateModelExists(pcfg.ModelPath); err != nil {
			return fmt.Errorf("detection model: %w", err)
		}
		mio, err := onnx.InspectModel(pcfg.ModelPath)
		if err != nil {
			return fmt.Errorf("inspect model: %w", err)
		}
		_, _ = fmt.Fprintf(out, "✓ Model %s\n", pcfg.ModelPath)
		for _, in := range mio.Inputs {
			_, _ = fmt.Fprintf(out, "    input  %-24s %v %s\n", in.Name, in.Shape, in.DataType)
		}
		for _, o := range mio.Outputs {
			_, _ = fmt.Fprintf(out, "    output %-24s %v %s\n", o.Name, o.Shape, o.DataType)
		}

		if err := models.ValidateModelExists(pcfg.LabelsPath); err != nil {
			_, _ = fmt.Fprintf(out, "! Labels not found at %s; every category will be reported as Unknown\n", pcfg.LabelsPath)
		} else {
			_, _ = fmt.Fprintf(out, "✓ Labels %s\n", pcfg.LabelsPath)
		}

		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "All checks passed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
	testCmd.Flags().String("library", "", "path to the ONNX Runtime shared library")
}
