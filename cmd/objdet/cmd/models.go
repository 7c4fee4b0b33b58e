package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/MeKo-Tech/objdet/internal/models"
	"github.com/spf13/cobra"
)

// modelsCmd lists the models objdet knows about.
var modelsCmd = &cobra.Command{
	Use:          "models",
	Short:        "List models and label files in the models directory",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := models.GetModelsDir(GetConfig().ModelsDir)
		list := models.ListAvailableModels(dir)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "NAME\tTYPE\tAVAILABLE\tPATH\n")
		for _, m := range list {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", m.Name, m.Type, m.Available, m.Path)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().Bool("json", false, "print as JSON")
}
