package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage reusable filter fragments",
}

var presetCreateCmd = &cobra.Command{
	Use:   "create <fragment.json>",
	Short: "Save a filter fragment as a named preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetCreate,
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's presets",
	RunE:  runPresetList,
}

var presetGetCmd = &cobra.Command{
	Use:   "get <preset-id>",
	Short: "Print a preset's fragment",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetGet,
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete <preset-id>",
	Short: "Delete a preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetDelete,
}

func init() {
	rootCmd.AddCommand(presetCmd)
	presetCmd.AddCommand(presetCreateCmd)
	presetCmd.AddCommand(presetListCmd)
	presetCmd.AddCommand(presetGetCmd)
	presetCmd.AddCommand(presetDeleteCmd)

	presetCmd.PersistentFlags().String("tenant", "default", "tenant identifier")
	presetCreateCmd.Flags().String("name", "", "preset name (required)")
	presetCreateCmd.Flags().String("description", "", "preset description")
	presetCreateCmd.MarkFlagRequired("name")
}

func runPresetCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fragment, err := readTree(args[0])
	if err != nil {
		return err
	}

	svc, closeDB, err := newServiceWithStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	tenant, _ := cmd.Flags().GetString("tenant")
	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")

	p, err := svc.Store().CreatePreset(tenant, name, description, fragment)
	if err != nil {
		return err
	}

	fmt.Println(p.ID)
	return nil
}

func runPresetList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, closeDB, err := newServiceWithStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	tenant, _ := cmd.Flags().GetString("tenant")
	presets, err := svc.Store().ListPresets(tenant)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED\tDESCRIPTION")
	for _, p := range presets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.CreatedAt, p.Description)
	}
	return w.Flush()
}

func runPresetGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, closeDB, err := newServiceWithStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	tenant, _ := cmd.Flags().GetString("tenant")
	p, err := svc.Store().GetPreset(tenant, args[0])
	if err != nil {
		return err
	}

	fmt.Println(p.Fragment)
	return nil
}

func runPresetDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, closeDB, err := newServiceWithStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	tenant, _ := cmd.Flags().GetString("tenant")
	return svc.Store().DeletePreset(tenant, args[0])
}
