package main

import (
	"fmt"
	"strings"

	"github.com/ashureev/chatwidget/internal/identity"
	"github.com/spf13/cobra"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the identity stored in session storage",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <name>",
		Short: "Sign in as name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := a.openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = storage.Close() }()

			if err := identity.SignIn(cmd.Context(), storage, args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", strings.TrimSpace(args[0]))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			storage, err := a.openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = storage.Close() }()

			id, ok, err := identity.FromStorage(storage).Identity(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			storage, err := a.openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = storage.Close() }()

			if err := identity.SignOut(cmd.Context(), storage); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return err
		},
	})

	return cmd
}
