package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xrmkit/xrmsoap/pkg/cli/internal/flags"
	"github.com/xrmkit/xrmsoap/pkg/cli/internal/parse"
	"github.com/xrmkit/xrmsoap/pkg/entity"
	"github.com/xrmkit/xrmsoap/pkg/fetchxml"
	"github.com/xrmkit/xrmsoap/pkg/request"
	"github.com/xrmkit/xrmsoap/pkg/soap"
)

var (
	envelopeAttrs   flags.Repeated
	envelopeColumns string
)

// envelopeArgs is the number of positional arguments each operation takes
// after its name.
var envelopeArgs = map[string]int{
	"whoami":   0,
	"create":   1,
	"update":   2,
	"delete":   2,
	"retrieve": 2,
	"fetch":    -1,
	"setstate": 4,
	"assign":   4,
}

var envelopeCmd = &cobra.Command{
	Use:   "envelope <operation> [args...]",
	Short: "Print the SOAP envelope for an operation without sending it",
	Long: `Print the Execute envelope an operation would send. Operations:
whoami, create <entity>, update <entity> <id>, delete <entity> <id>,
retrieve <entity> <id>, fetch [file|-], setstate <entity> <id> <state> <status>,
assign <entity> <id> <assignee-entity> <assignee-id>.`,
	Example: `  xrmsoap envelope create account --attr name=Contoso
  xrmsoap envelope retrieve account 8f1c3e22-5b6d-4a8e-9f0a-1b2c3d4e5f60 --columns name`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		operation := strings.ToLower(args[0])
		req, err := buildEnvelopeRequest(cmd, operation, args[1:])
		if err != nil {
			return err
		}
		env, err := req.Envelope()
		if err != nil {
			return fmt.Errorf("envelope %s: %w", operation, err)
		}
		result := map[string]string{
			"operation":  req.Name,
			"soapAction": soap.ActionFor(soap.OperationExecute),
			"envelope":   env,
		}
		return printResult(cmd, result, func() {
			fmt.Fprintln(cmd.OutOrStdout(), env)
		})
	},
}

func buildEnvelopeRequest(cmd *cobra.Command, operation string, args []string) (*request.Request, error) {
	want, ok := envelopeArgs[operation]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", operation)
	}
	if want >= 0 && len(args) != want {
		return nil, fmt.Errorf("%s takes %d argument(s), got %d", operation, want, len(args))
	}

	switch operation {
	case "whoami":
		return request.WhoAmI(), nil
	case "create", "update":
		id := ""
		if operation == "update" {
			id = args[1]
		}
		e, err := buildEntity(args[0], id, envelopeAttrs)
		if err != nil {
			return nil, err
		}
		if operation == "update" {
			return request.Update(e)
		}
		return request.Create(e)
	case "delete":
		return request.Delete(args[0], args[1])
	case "retrieve":
		return request.Retrieve(args[0], args[1], parse.List(envelopeColumns, ","))
	case "fetch":
		if len(args) > 1 {
			return nil, fmt.Errorf("fetch takes at most 1 argument, got %d", len(args))
		}
		query, err := readFetch(cmd, args)
		if err != nil {
			return nil, err
		}
		n, err := fetchxml.Normalize(query)
		if err != nil {
			return nil, err
		}
		return request.Fetch(n.Query)
	case "setstate":
		state, status, err := stateArgs(args[2], args[3])
		if err != nil {
			return nil, err
		}
		return request.SetState(args[0], args[1], state, status)
	default:
		return request.Assign(
			entity.EntityReference{LogicalName: args[0], ID: args[1]},
			entity.EntityReference{LogicalName: args[2], ID: args[3]})
	}
}

func init() {
	envelopeCmd.Flags().Var(&envelopeAttrs, "attr", "Attribute for create/update as name=value or name:type=value (repeatable)")
	envelopeCmd.Flags().StringVar(&envelopeColumns, "columns", "", "Comma-separated columns for retrieve")

	rootCmd.AddCommand(envelopeCmd)
}
