package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nbella/ava-cli/internal/domain"
)

func newProfileCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage backend profiles",
	}

	cmd.AddCommand(newProfileAddCmd(app), newProfileListCmd(app), newProfileUseCmd(app))

	return cmd
}

func newProfileAddCmd(app *app) *cobra.Command {
	var apiBaseURL string
	var wsURL string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or update a backend profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := domain.Profile{
				Name:         args[0],
				APIBaseURL:   apiBaseURL,
				WebSocketURL: wsURL,
			}
			if err := app.profiles.Save(cmd.Context(), profile); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %s.\n", profile.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiBaseURL, "api-url", "", "REST base URL")
	cmd.Flags().StringVar(&wsURL, "ws-url", "", "WebSocket URL")
	_ = cmd.MarkFlagRequired("api-url")

	return cmd
}

func newProfileListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backend profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles, err := app.profiles.List(cmd.Context())
			if err != nil {
				return err
			}

			if len(profiles) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No profiles configured.")
				return nil
			}

			for _, profile := range profiles {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", profile.Name, profile.APIBaseURL, profile.WebSocketURL)
			}

			return nil
		},
	}
}

func newProfileUseCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Make a profile the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.profiles.SetDefault(cmd.Context(), args[0]); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Default profile is now %s.\n", args[0])
			return nil
		},
	}
}
