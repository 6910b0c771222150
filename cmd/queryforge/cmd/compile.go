package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solatis/queryforge/internal/compile"
	"github.com/solatis/queryforge/internal/core/query"
)

var compileCmd = &cobra.Command{
	Use:   "compile <tree.json>",
	Short: "Compile a filter tree into a target query",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().String("target", "sql", "compilation target (sql, elasticsearch, mongodb)")
	compileCmd.Flags().String("collection", "", "table or collection name")
	compileCmd.Flags().StringSlice("field-map", nil, "field remappings as ui_name=storage_name")
	compileCmd.Flags().Bool("optimize", false, "apply rewrite passes before compiling")
	compileCmd.Flags().String("tenant", "default", "tenant identifier for breaker scoping")
	compileCmd.Flags().Int("size", 0, "result page size (elasticsearch)")
	compileCmd.Flags().Int("from", 0, "result page offset (elasticsearch)")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root, err := readTree(args[0])
	if err != nil {
		return err
	}

	target, _ := cmd.Flags().GetString("target")
	collection, _ := cmd.Flags().GetString("collection")
	fieldMaps, _ := cmd.Flags().GetStringSlice("field-map")
	optimize, _ := cmd.Flags().GetBool("optimize")
	tenant, _ := cmd.Flags().GetString("tenant")
	size, _ := cmd.Flags().GetInt("size")
	from, _ := cmd.Flags().GetInt("from")

	fieldMap := make(map[string]string)
	for _, fm := range fieldMaps {
		parts := strings.SplitN(fm, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid --field-map entry %q (expected ui_name=storage_name)", fm)
		}
		fieldMap[parts[0]] = parts[1]
	}

	params := make(map[string]any)
	if size > 0 {
		params["size"] = size
	}
	if from > 0 {
		params["from"] = from
	}

	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	sq, err := svc.Build(cmd.Context(), root, compile.Target(target), compile.ExecutionContext{
		Collection: collection,
		FieldMap:   fieldMap,
		Parameters: params,
	}, query.BuildOptions{Optimize: optimize, Tenant: tenant})
	if err != nil {
		var verr *query.ValidationError
		if errors.As(err, &verr) {
			printJSON(verr.Result)
		}
		return err
	}

	return printJSON(sq)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
