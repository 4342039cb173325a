package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	renderchat "github.com/nbella/ava-cli/internal/adapters/render/chat"
	"github.com/nbella/ava-cli/internal/application"
	"github.com/nbella/ava-cli/internal/domain"
)

func newChatCmd(app *app) *cobra.Command {
	var sessionID string
	var urlTarget string
	var mediaName string
	var mediaKind string
	var mediaMIME string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send one chat turn and print the updated transcript",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := ""
			if len(args) == 1 {
				message = args[0]
			}

			if sessionID != "" {
				if err := app.chat.LoadHistory(cmd.Context(), sessionID); err != nil {
					return fmt.Errorf("resume session %s: %w", sessionID, err)
				}
			}

			text, mode, media, err := resolveSendInput(message, urlTarget, mediaName, mediaKind, mediaMIME)
			if err != nil {
				return err
			}

			sendErr := runWithSpinner(cmd, asJSON, "Waiting for reply...", func() error {
				return app.chat.Send(cmd.Context(), text, mode, media)
			})

			// The transcript still shows the optimistic user message and
			// the error banner, so render before failing the command.
			if renderErr := writeTranscript(cmd, app.chat.Snapshot(), asJSON); renderErr != nil {
				return renderErr
			}

			return sendErr
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Resume an existing session ID")
	cmd.Flags().StringVar(&urlTarget, "url", "", "Send a URL for the backend to read")
	cmd.Flags().StringVar(&mediaName, "media", "", "Name of an attachment to describe")
	cmd.Flags().StringVar(&mediaKind, "media-kind", "image", "Attachment kind (image, audio, document)")
	cmd.Flags().StringVar(&mediaMIME, "media-mime", "application/octet-stream", "Attachment MIME type")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func resolveSendInput(message, urlTarget, mediaName, mediaKind, mediaMIME string) (string, application.SendMode, *domain.MediaDescriptor, error) {
	if urlTarget != "" && mediaName != "" {
		return "", "", nil, errors.New("--url and --media are mutually exclusive")
	}

	if urlTarget != "" {
		return urlTarget, application.ModeURL, nil, nil
	}

	if mediaName != "" {
		media := &domain.MediaDescriptor{
			Kind:     mediaKind,
			Name:     mediaName,
			MIMEType: mediaMIME,
		}
		return message, application.ModeMedia, media, nil
	}

	if message == "" {
		return "", "", nil, errors.New("message is required unless --url or --media is set")
	}

	return message, application.ModeText, nil, nil
}

func writeTranscript(cmd *cobra.Command, state application.ChatState, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(state)
	}

	rendered, err := renderchat.RenderTranscript(state)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
