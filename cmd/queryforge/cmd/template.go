package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/queryforge/internal/types"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage saved filter templates",
}

var templateCreateCmd = &cobra.Command{
	Use:   "create <tree.json>",
	Short: "Save a filter tree as a named template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateCreate,
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's templates",
	RunE:  runTemplateList,
}

var templateGetCmd = &cobra.Command{
	Use:   "get <template-id>",
	Short: "Print a template's filter tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateGet,
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <template-id>",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateDelete,
}

var templateUpdateCmd = &cobra.Command{
	Use:   "update <template-id> <tree.json>",
	Short: "Replace a template's filter tree",
	Args:  cobra.ExactArgs(2),
	RunE:  runTemplateUpdate,
}

var templateShareCmd = &cobra.Command{
	Use:   "share <template-id>",
	Short: "Issue a signed share token for a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateShare,
}

var templateVerifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verify a share token and print the shared tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateVerify,
}

var templateRevokeCmd = &cobra.Command{
	Use:   "revoke <share-id>",
	Short: "Revoke an issued share token",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateRevoke,
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateCreateCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateGetCmd)
	templateCmd.AddCommand(templateUpdateCmd)
	templateCmd.AddCommand(templateDeleteCmd)
	templateCmd.AddCommand(templateShareCmd)
	templateCmd.AddCommand(templateVerifyCmd)
	templateCmd.AddCommand(templateRevokeCmd)

	templateCmd.PersistentFlags().String("tenant", "default", "tenant identifier")
	templateCreateCmd.Flags().String("name", "", "template name (required)")
	templateCreateCmd.Flags().String("description", "", "template description")
	templateCreateCmd.MarkFlagRequired("name")
	templateUpdateCmd.Flags().String("name", "", "new template name")
	templateUpdateCmd.Flags().String("description", "", "new template description")
	templateShareCmd.Flags().Duration("ttl", 7*24*time.Hour, "share token lifetime")
}

func runTemplateCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root, err := readTree(args[0])
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

	// Templates must be structurally valid before they are saved
	if result := svc.Validate(root); !result.Valid {
		printJSON(result)
		return fmt.Errorf("filter tree is invalid")
	}

	t, err := svc.Store().CreateTemplate(tenant, name, description, root)
	if err != nil {
		return err
	}

	fmt.Println(t.ID)
	return nil
}

func runTemplateList(cmd *cobra.Command, args []string) error {
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
	templates, err := svc.Store().ListTemplates(tenant)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED\tDESCRIPTION")
	for _, t := range templates {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.CreatedAt, t.Description)
	}
	return w.Flush()
}

func runTemplateGet(cmd *cobra.Command, args []string) error {
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
	t, err := svc.Store().GetTemplate(tenant, types.TemplateID(args[0]))
	if err != nil {
		return err
	}

	fmt.Println(t.Tree)
	return nil
}

func runTemplateDelete(cmd *cobra.Command, args []string) error {
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
	return svc.Store().DeleteTemplate(tenant, types.TemplateID(args[0]))
}

func runTemplateUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root, err := readTree(args[1])
	if err != nil {
		return err
	}

	svc, closeDB, err := newServiceWithStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	if result := svc.Validate(root); !result.Valid {
		printJSON(result)
		return fmt.Errorf("filter tree is invalid")
	}

	tenant, _ := cmd.Flags().GetString("tenant")
	id := types.TemplateID(args[0])

	existing, err := svc.Store().GetTemplate(tenant, id)
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")
	if name == "" {
		name = existing.Name
	}
	if description == "" {
		description = existing.Description
	}

	return svc.Store().UpdateTemplate(tenant, id, name, description, root)
}

func runTemplateRevoke(cmd *cobra.Command, args []string) error {
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
	return svc.Store().RevokeShare(tenant, types.ShareID(args[0]))
}

func runTemplateShare(cmd *cobra.Command, args []string) error {
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
	ttl, _ := cmd.Flags().GetDuration("ttl")

	token, sh, err := svc.CreateShare(tenant, types.TemplateID(args[0]), ttl)
	if err != nil {
		return err
	}

	fmt.Println(token)
	newLogger().Info("share token issued",
		"share_id", string(sh.ID),
		"template_id", sh.TemplateID,
		"expires_at", sh.ExpiresAt)
	return nil
}

func runTemplateVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, closeDB, err := newServiceWithStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	t, err := svc.VerifyShare(args[0])
	if err != nil {
		return err
	}

	fmt.Println(t.Tree)
	return nil
}
