package commands

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coinfabrik/mpc-coordinator/internal/coordinator"
)

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create sessions and sign up or log in to them",
	}

	cmd.AddCommand(sessionCreateCmd())
	cmd.AddCommand(sessionSignupCmd())
	cmd.AddCommand(sessionLoginCmd())
	cmd.AddCommand(sessionMessageCmd())

	return cmd
}

func sessionCreateCmd() *cobra.Command {
	var groupID, kind, value string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session within a group",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			gid, err := uuid.Parse(groupID)
			if err != nil {
				return fmt.Errorf("parse group id: %w", err)
			}

			params := map[string]any{
				"groupId": gid,
				"kind":    coordinator.SessionKind(kind),
			}
			if value != "" {
				params["value"] = json.RawMessage(value)
			}

			result, err := client.Call("session_create", params)
			if err != nil {
				return fmt.Errorf("session_create: %w", err)
			}
			return printJSON(result)
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "", "group id")
	cmd.Flags().StringVar(&kind, "kind", "keygen", "session kind: keygen or sign")
	cmd.Flags().StringVar(&value, "value", "", "opaque JSON session payload")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

func sessionSignupCmd() *cobra.Command {
	var groupID, sessionID string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Sign up for a session, letting the coordinator assign a party number",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			gid, sid, err := parseGroupSession(groupID, sessionID)
			if err != nil {
				return err
			}

			result, err := client.Call("session_signup", map[string]any{"groupId": gid, "sessionId": sid})
			if err != nil {
				return fmt.Errorf("session_signup: %w", err)
			}
			return printJSON(result)
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "", "group id")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func sessionLoginCmd() *cobra.Command {
	var groupID, sessionID string
	var party uint16

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to a session with a specific party number",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			gid, sid, err := parseGroupSession(groupID, sessionID)
			if err != nil {
				return err
			}

			result, err := client.Call("session_login", map[string]any{
				"groupId": gid, "sessionId": sid, "partyNumber": party,
			})
			if err != nil {
				return fmt.Errorf("session_login: %w", err)
			}
			return printJSON(result)
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "", "group id")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	cmd.Flags().Uint16Var(&party, "party", 0, "party number to claim")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("party")

	return cmd
}

func sessionMessageCmd() *cobra.Command {
	var groupID, sessionID, message string
	var receiver uint16
	var hasReceiver bool

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a session message, broadcast or to a single receiver (fire-and-forget, no reply)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			gid, sid, err := parseGroupSession(groupID, sessionID)
			if err != nil {
				return err
			}

			params := map[string]any{
				"groupId": gid, "sessionId": sid, "message": json.RawMessage(message),
			}
			if hasReceiver {
				params["receiver"] = receiver
			}

			// session_message never replies, so this only writes the
			// frame; there is no response to wait for or print.
			if err := client.Send("session_message", params); err != nil {
				return fmt.Errorf("session_message: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "", "group id")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	cmd.Flags().StringVar(&message, "message", "null", "opaque JSON message payload")
	cmd.Flags().Uint16Var(&receiver, "receiver", 0, "party number to relay to (omit to broadcast)")
	cmd.Flags().BoolVar(&hasReceiver, "has-receiver", false, "set when --receiver should be sent")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func parseGroupSession(groupID, sessionID string) (uuid.UUID, uuid.UUID, error) {
	gid, err := uuid.Parse(groupID)
	if err != nil {
		return uuid.UUID{}, uuid.UUID{}, fmt.Errorf("parse group id: %w", err)
	}
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return uuid.UUID{}, uuid.UUID{}, fmt.Errorf("parse session id: %w", err)
	}
	return gid, sid, nil
}
