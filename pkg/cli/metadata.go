package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/xrmkit/xrmsoap/pkg/cli/internal/output"
	"github.com/xrmkit/xrmsoap/pkg/cli/internal/parse"
	"github.com/xrmkit/xrmsoap/pkg/metadata"
)

var (
	metadataFilters   string
	metadataPublished bool
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Retrieve entity and attribute metadata",
}

var metadataEntitiesCmd = &cobra.Command{
	Use:     "entities",
	Short:   "List metadata for every entity",
	Example: `  xrmsoap metadata entities --filters entity`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		items, err := client.RetrieveAllEntitiesMetadata(cmd.Context(), entityFilters(metadataFilters), metadataPublished)
		if err != nil {
			return fmt.Errorf("metadata entities: %w", err)
		}
		return printResult(cmd, items, func() {
			w := cmd.OutOrStdout()
			tw := output.Table(w)
			fmt.Fprintln(tw, "LOGICAL NAME\tDISPLAY NAME\tOBJECT TYPE CODE\tCUSTOM")
			for _, item := range items {
				o, ok := item.(metadata.Object)
				if !ok {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%t\n",
					o.String("LogicalName"), o.Label("DisplayName"), o.Int("ObjectTypeCode"), o.Bool("IsCustomEntity"))
			}
			_ = tw.Flush()
			fmt.Fprintf(w, "\n%d entities\n", len(items))
		})
	},
}

var metadataEntityCmd = &cobra.Command{
	Use:     "entity <name>",
	Short:   "Show one entity's metadata",
	Example: `  xrmsoap metadata entity account --filters entity,attributes`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		items, err := client.RetrieveEntityMetadata(cmd.Context(), entityFilters(metadataFilters), args[0], metadataPublished)
		if err != nil {
			return fmt.Errorf("metadata entity %s: %w", args[0], err)
		}
		return printMetadata(cmd, items)
	},
}

var metadataAttributeCmd = &cobra.Command{
	Use:     "attribute <entity> <attribute>",
	Short:   "Show one attribute's metadata",
	Example: `  xrmsoap metadata attribute account industrycode`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		items, err := client.RetrieveAttributeMetadata(cmd.Context(), args[0], args[1], metadataPublished)
		if err != nil {
			return fmt.Errorf("metadata attribute %s.%s: %w", args[0], args[1], err)
		}
		return printMetadata(cmd, items)
	},
}

// entityFilters turns "entity,attributes" into the EntityFilters names the
// service expects, such as Entity and Attributes.
func entityFilters(s string) []string {
	title := cases.Title(language.English)
	parts := parse.List(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, title.String(strings.ToLower(p)))
	}
	return out
}

func printMetadata(cmd *cobra.Command, items []any) error {
	return printResult(cmd, items, func() {
		w := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(w, "No metadata returned")
			return
		}
		for _, item := range items {
			if err := output.YAML(w, item); err != nil {
				output.Warn("failed to encode metadata: %v", err)
			}
		}
	})
}

func init() {
	metadataCmd.PersistentFlags().StringVar(&metadataFilters, "filters", "entity", "Comma-separated EntityFilters (entity, attributes, privileges, relationships, all)")
	metadataCmd.PersistentFlags().BoolVar(&metadataPublished, "published", false, "Retrieve metadata as if published")

	metadataCmd.AddCommand(metadataEntitiesCmd, metadataEntityCmd, metadataAttributeCmd)
	rootCmd.AddCommand(metadataCmd)
}
