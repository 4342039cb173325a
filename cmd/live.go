package cmd

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nbella/ava-cli/internal/adapters/stream"
	"github.com/nbella/ava-cli/internal/domain"
)

const speechChunkBytes = 32 * 1024

func newLiveCmd(app *app) *cobra.Command {
	var sayText string
	var audioPath string
	var framePath string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Stream speech or camera frames over the live channel",
		Long:  "live opens the WebSocket channel and streams text, speech audio, or a camera frame, printing transcripts and analysis as they arrive. The connection is torn down when the exchange completes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sayText == "" && audioPath == "" && framePath == "" {
				return errors.New("nothing to stream: set --say, --audio, or --frame")
			}

			return runLive(cmd, app, sayText, audioPath, framePath, timeout)
		},
	}

	cmd.Flags().StringVar(&sayText, "say", "", "Send a text frame over the live channel")
	cmd.Flags().StringVar(&audioPath, "audio", "", "Stream an audio file as speech chunks")
	cmd.Flags().StringVar(&framePath, "frame", "", "Send one image file as a camera frame")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "How long to wait for the exchange to complete")

	return cmd
}

func runLive(cmd *cobra.Command, app *app, sayText, audioPath, framePath string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	out := cmd.OutOrStdout()
	done := make(chan error, 1)

	callbacks := stream.Callbacks{
		OnStatus: func(message string) {
			_, _ = fmt.Fprintf(out, "status: %s\n", message)
		},
		OnTranscript: func(text string, isFinal bool) {
			marker := "…"
			if isFinal {
				marker = "✓"
			}
			_, _ = fmt.Fprintf(out, "transcript %s %s\n", marker, text)
		},
		OnCameraAnalysis: func(description string) {
			_, _ = fmt.Fprintf(out, "camera: %s\n", description)
		},
		OnComplete: func(turn domain.ChatTurn) {
			_, _ = fmt.Fprintf(out, "assistant: %s\n", turn.Response)
			for _, artifact := range turn.Artifacts {
				_, _ = fmt.Fprintf(out, "artifact: %s %s\n", artifact.Name, artifact.DownloadURL)
			}
			done <- nil
		},
		OnServerError: func(detail string) {
			done <- fmt.Errorf("stream error: %s", detail)
		},
		OnDisconnect: func(err error) {
			if err != nil {
				done <- fmt.Errorf("stream disconnected: %w", err)
				return
			}
			done <- nil
		},
	}

	if err := app.stream.Connect(ctx, callbacks); err != nil {
		return err
	}
	defer app.stream.Disconnect()

	if sayText != "" {
		app.stream.SendText(sayText)
	}
	if audioPath != "" {
		if err := streamAudioFile(app.stream, audioPath); err != nil {
			return err
		}
	}
	if framePath != "" {
		frame, err := os.ReadFile(framePath)
		if err != nil {
			return fmt.Errorf("read frame file: %w", err)
		}
		app.stream.SendCameraFrame(base64.StdEncoding.EncodeToString(frame))
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("live exchange: %w", ctx.Err())
	}
}

func streamAudioFile(client *stream.Client, path string) error {
	audio, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read audio file: %w", err)
	}

	client.SendSpeechStart()
	for offset := 0; offset < len(audio); offset += speechChunkBytes {
		end := offset + speechChunkBytes
		if end > len(audio) {
			end = len(audio)
		}
		client.SendSpeechAudio(base64.StdEncoding.EncodeToString(audio[offset:end]))
	}
	client.SendSpeechEnd()

	return nil
}
