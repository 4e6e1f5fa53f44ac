package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xrmkit/xrmsoap/pkg/cli/internal/flags"
	"github.com/xrmkit/xrmsoap/pkg/cli/internal/output"
	"github.com/xrmkit/xrmsoap/pkg/cli/internal/parse"
	"github.com/xrmkit/xrmsoap/pkg/entity"
)

var (
	createAttrs     flags.Repeated
	createID        string
	updateAttrs     flags.Repeated
	retrieveColumns string
)

var createCmd = &cobra.Command{
	Use:   "create <entity>",
	Short: "Create a record",
	Example: `  xrmsoap create account --attr name=Contoso --attr numberofemployees:int=40
  xrmsoap create contact --attr lastname=Smith --attr parentcustomerid:ref=account/8f1c3e22-5b6d-4a8e-9f0a-1b2c3d4e5f60`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEntity(args[0], createID, createAttrs)
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		id, err := client.Create(cmd.Context(), e)
		if err != nil {
			return fmt.Errorf("create %s: %w", args[0], err)
		}
		return printResult(cmd, map[string]string{"id": id}, func() {
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s\n", args[0], id)
		})
	},
}

var updateCmd = &cobra.Command{
	Use:     "update <entity> <id>",
	Short:   "Update a record",
	Example: `  xrmsoap update account 8f1c3e22-5b6d-4a8e-9f0a-1b2c3d4e5f60 --attr telephone1=555-0100`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEntity(args[0], args[1], updateAttrs)
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		if _, err := client.Update(cmd.Context(), e); err != nil {
			return fmt.Errorf("update %s %s: %w", args[0], args[1], err)
		}
		return printResult(cmd, map[string]string{"id": args[1]}, func() {
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s\n", args[0], args[1])
		})
	},
}

var retrieveCmd = &cobra.Command{
	Use:     "retrieve <entity> <id>",
	Short:   "Show one record",
	Example: `  xrmsoap retrieve account 8f1c3e22-5b6d-4a8e-9f0a-1b2c3d4e5f60 --columns name,telephone1`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		e, err := client.Retrieve(cmd.Context(), args[0], args[1], parse.List(retrieveColumns, ","))
		if err != nil {
			return fmt.Errorf("retrieve %s %s: %w", args[0], args[1], err)
		}
		return printResult(cmd, e, func() {
			printRecord(cmd, e)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <entity> <id>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		if _, err := client.Delete(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("delete %s %s: %w", args[0], args[1], err)
		}
		return printResult(cmd, map[string]string{"id": args[1]}, func() {
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", args[0], args[1])
		})
	},
}

var setStateCmd = &cobra.Command{
	Use:     "setstate <entity> <id> <state> <status>",
	Short:   "Change a record's state and status codes",
	Example: `  xrmsoap setstate incident 8f1c3e22-5b6d-4a8e-9f0a-1b2c3d4e5f60 1 5`,
	Args:    cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, status, err := stateArgs(args[2], args[3])
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		if _, err := client.SetState(cmd.Context(), args[0], args[1], state, status); err != nil {
			return fmt.Errorf("setstate %s %s: %w", args[0], args[1], err)
		}
		return printResult(cmd, map[string]any{"id": args[1], "state": state, "status": status}, func() {
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s %s to state %d, status %d\n", args[0], args[1], state, status)
		})
	},
}

var assignCmd = &cobra.Command{
	Use:     "assign <entity> <id> <assignee-entity> <assignee-id>",
	Short:   "Assign a record to a user or team",
	Example: `  xrmsoap assign account 8f1c3e22-5b6d-4a8e-9f0a-1b2c3d4e5f60 systemuser 11111111-1111-1111-1111-111111111111`,
	Args:    cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		target := entity.EntityReference{LogicalName: args[0], ID: args[1]}
		assignee := entity.EntityReference{LogicalName: args[2], ID: args[3]}
		if _, err := client.Assign(cmd.Context(), target, assignee); err != nil {
			return fmt.Errorf("assign %s: %w", target, err)
		}
		return printResult(cmd, map[string]string{"id": args[1], "owner": args[3]}, func() {
			fmt.Fprintf(cmd.OutOrStdout(), "Assigned %s %s to %s %s\n", args[0], args[1], args[2], args[3])
		})
	},
}

func stateArgs(stateArg, statusArg string) (int, int, error) {
	state, err := strconv.Atoi(stateArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid state %q", stateArg)
	}
	status, err := strconv.Atoi(statusArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid status %q", statusArg)
	}
	return state, status, nil
}

// printRecord writes a record as an attribute table.
func printRecord(cmd *cobra.Command, e *entity.BusinessEntity) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %s\n", e.LogicalName, e.ID)
	tw := output.Table(w)
	for _, k := range e.Keys() {
		v := e.MustGet(k)
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", k, v.Type, v.Display())
	}
	_ = tw.Flush()
}

func init() {
	createCmd.Flags().Var(&createAttrs, "attr", "Attribute as name=value or name:type=value (repeatable)")
	createCmd.Flags().StringVar(&createID, "id", "", "Id for the new record (default: assigned by the server)")
	updateCmd.Flags().Var(&updateAttrs, "attr", "Attribute as name=value or name:type=value (repeatable)")
	retrieveCmd.Flags().StringVar(&retrieveColumns, "columns", "", "Comma-separated columns to return (default: all)")

	rootCmd.AddCommand(createCmd, updateCmd, retrieveCmd, deleteCmd, setStateCmd, assignCmd)
}
