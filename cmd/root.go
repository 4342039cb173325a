package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ava",
		Short:         "ava: talk to your assistant backend from the terminal",
		Long:          "ava manages an authenticated session against an assistant backend: log in once, then chat, share links, browse past sessions, or stream live speech and camera frames over WebSocket.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newLogoutCmd(app),
		newChatCmd(app),
		newSessionsCmd(app),
		newHistoryCmd(app),
		newLiveCmd(app),
		newProfileCmd(app),
	)

	return rootCmd
}
