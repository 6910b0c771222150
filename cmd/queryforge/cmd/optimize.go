package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/queryforge/internal/types"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <tree.json>",
	Short: "Apply rewrite passes and print the simplified tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
	optimizeCmd.Flags().StringP("output", "o", "", "write simplified tree to file instead of stdout")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root, err := readTree(args[0])
	if err != nil {
		return err
	}

	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	simplified, notes := svc.Optimize(root)
	logger := newLogger()
	for _, note := range notes {
		logger.Info("rewrite applied", "note", note)
	}

	raw, err := types.MarshalNode(simplified)
	if err != nil {
		return err
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		return os.WriteFile(output, append(raw, '\n'), 0644)
	}

	_, err = os.Stdout.Write(append(raw, '\n'))
	return err
}
