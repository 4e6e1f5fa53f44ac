package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xrmkit/xrmsoap/pkg/cli/internal/parse"
)

var rolesHas string

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the calling user and business unit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		userID, err := client.CurrentUserID(cmd.Context())
		if err != nil {
			return fmt.Errorf("whoami: %w", err)
		}
		unitID, err := client.CurrentBusinessUnitID(cmd.Context())
		if err != nil {
			return fmt.Errorf("whoami: %w", err)
		}
		result := map[string]string{"userId": userID, "businessUnitId": unitID}
		return printResult(cmd, result, func() {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "User:          %s\n", userID)
			fmt.Fprintf(w, "Business unit: %s\n", unitID)
		})
	},
}

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the calling user's security roles",
	Example: `  xrmsoap roles
  xrmsoap roles --has "System Administrator,System Customizer"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		if rolesHas != "" {
			wanted := parse.List(rolesHas, ",")
			ok, err := client.IsCurrentUserInRole(cmd.Context(), wanted...)
			if err != nil {
				return fmt.Errorf("roles: %w", err)
			}
			return printResult(cmd, map[string]any{"roles": wanted, "member": ok}, func() {
				if ok {
					fmt.Fprintf(cmd.OutOrStdout(), "User holds one of: %s\n", strings.Join(wanted, ", "))
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "User holds none of: %s\n", strings.Join(wanted, ", "))
				}
			})
		}

		roles, err := client.CurrentUserRoles(cmd.Context())
		if err != nil {
			return fmt.Errorf("roles: %w", err)
		}
		return printResult(cmd, roles, func() {
			w := cmd.OutOrStdout()
			if len(roles) == 0 {
				fmt.Fprintln(w, "No roles")
				return
			}
			for _, r := range roles {
				fmt.Fprintln(w, r)
			}
		})
	},
}

func init() {
	rolesCmd.Flags().StringVar(&rolesHas, "has", "", "Comma-separated role names; report whether the user holds any of them")

	rootCmd.AddCommand(whoamiCmd, rolesCmd)
}
