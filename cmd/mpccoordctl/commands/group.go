package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coinfabrik/mpc-coordinator/internal/coordinator"
)

func groupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Create or join groups",
	}

	cmd.AddCommand(groupCreateCmd())
	cmd.AddCommand(groupJoinCmd())

	return cmd
}

func groupCreateCmd() *cobra.Command {
	var n, t uint16

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a group and join it as its first member",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			result, err := client.Call("group_create", map[string]any{
				"parameters": coordinator.Parameters{N: n, T: t},
			})
			if err != nil {
				return fmt.Errorf("group_create: %w", err)
			}
			return printJSON(result)
		},
	}

	cmd.Flags().Uint16Var(&n, "n", 0, "total number of parties")
	cmd.Flags().Uint16Var(&t, "t", 0, "signing threshold")

	return cmd
}

func groupJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <group-id>",
		Short: "Join an existing group",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			groupID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse group id: %w", err)
			}

			result, err := client.Call("group_join", map[string]any{"groupId": groupID})
			if err != nil {
				return fmt.Errorf("group_join: %w", err)
			}
			return printJSON(result)
		},
	}
}
