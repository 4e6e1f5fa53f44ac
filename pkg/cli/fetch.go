package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xrmkit/xrmsoap/pkg/cli/internal/flags"
	"github.com/xrmkit/xrmsoap/pkg/cli/internal/output"
	"github.com/xrmkit/xrmsoap/pkg/cli/internal/parse"
	"github.com/xrmkit/xrmsoap/pkg/entity"
	"github.com/xrmkit/xrmsoap/pkg/fetchxml"
)

var (
	fetchAll bool

	queryWhere   flags.Repeated
	queryColumns string
	queryOrder   flags.Repeated
	queryAll     bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [file|-]",
	Short: "Run a FetchXML query",
	Long: `Run a FetchXML query read from a file, or from stdin when the argument is
omitted or "-". With --all, every page is retrieved.`,
	Example: `  xrmsoap fetch accounts.xml --all
  echo "<fetch><entity name='account'><attribute name='name' /></entity></fetch>" | xrmsoap fetch`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query, err := readFetch(cmd, args)
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		records, err := client.Fetch(cmd.Context(), query, fetchAll)
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		return printRecords(cmd, records)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <entity>",
	Short: "Query records by attribute values",
	Long: `Query records of one entity by attribute values. Each --where takes
attr=value or attr=v1,v2 (any of); attr= matches null.`,
	Example: `  xrmsoap query contact --where lastname=Smith --columns fullname,emailaddress1
  xrmsoap query account --where statecode=0 --order name --all`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := buildQuery(args[0], queryWhere, queryColumns, queryOrder)
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		query := client.QueryByAttribute
		if queryAll {
			query = client.QueryAll
		}
		records, err := query(cmd.Context(), q)
		if err != nil {
			return fmt.Errorf("query %s: %w", args[0], err)
		}
		return printRecords(cmd, records)
	},
}

func readFetch(cmd *cobra.Command, args []string) (string, error) {
	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("failed to read query: %w", err)
	}
	query := strings.TrimSpace(string(data))
	if query == "" {
		return "", fmt.Errorf("empty FetchXML query")
	}
	return query, nil
}

// buildQuery turns query flags into a fetchxml.Query.
func buildQuery(entityName string, where []string, columns string, order []string) (fetchxml.Query, error) {
	q := fetchxml.Query{
		EntityName: entityName,
		Attributes: []string{},
		Values:     [][]string{},
		ColumnSet:  parse.List(columns, ","),
	}
	for _, w := range where {
		attr, values, ok := parse.KeyValue(w, '=')
		if !ok || strings.TrimSpace(attr) == "" {
			return fetchxml.Query{}, fmt.Errorf("invalid condition %q: expected attr=value", w)
		}
		q.Attributes = append(q.Attributes, strings.TrimSpace(attr))
		q.Values = append(q.Values, parse.List(values, ","))
	}
	for _, o := range order {
		attr, dir, _ := strings.Cut(o, ":")
		switch strings.ToLower(dir) {
		case "", "asc":
			q.OrderBy = append(q.OrderBy, fetchxml.Order{Attribute: attr})
		case "desc":
			q.OrderBy = append(q.OrderBy, fetchxml.Order{Attribute: attr, Descending: true})
		default:
			return fetchxml.Query{}, fmt.Errorf("invalid order %q: expected attr or attr:desc", o)
		}
	}
	return q, nil
}

// printRecords writes records as one table, with a column per attribute
// seen across the result.
func printRecords(cmd *cobra.Command, records []*entity.BusinessEntity) error {
	return printResult(cmd, records, func() {
		w := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(w, "No records found")
			return
		}

		var columns []string
		seen := make(map[string]bool)
		for _, r := range records {
			for _, k := range r.Keys() {
				if !seen[k] {
					seen[k] = true
					columns = append(columns, k)
				}
			}
		}

		tw := output.Table(w)
		fmt.Fprintln(tw, "ID\t"+strings.ToUpper(strings.Join(columns, "\t")))
		for _, r := range records {
			row := make([]string, 0, len(columns)+1)
			row = append(row, r.ID)
			for _, c := range columns {
				row = append(row, r.MustGet(c).Display())
			}
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		_ = tw.Flush()
		fmt.Fprintf(w, "\n%d record(s)\n", len(records))
	})
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchAll, "all", false, "Retrieve every page")

	queryCmd.Flags().Var(&queryWhere, "where", "Condition as attr=value or attr=v1,v2 (repeatable)")
	queryCmd.Flags().StringVar(&queryColumns, "columns", "", "Comma-separated columns to return (default: all)")
	queryCmd.Flags().Var(&queryOrder, "order", "Sort as attr or attr:desc (repeatable)")
	queryCmd.Flags().BoolVar(&queryAll, "all", false, "Retrieve every page")

	rootCmd.AddCommand(fetchCmd, queryCmd)
}
