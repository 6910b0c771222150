package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <tree.json>",
	Short: "Validate a filter tree and report diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
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

	result := svc.Validate(root)
	if err := printJSON(result); err != nil {
		return err
	}

	if !result.Valid {
		return fmt.Errorf("filter tree is invalid")
	}
	return nil
}
