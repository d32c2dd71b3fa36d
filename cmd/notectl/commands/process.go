package commands

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"talknote-go/internal/types"
)

var processCmd = &cobra.Command{
	Use:   "process <audio-file>",
	Short: "Turn a local recording into a stored note",
	Long: `Upload, transcribe and restyle a local recording, then store the note.

The style may be given by id or by name.

Examples:
  notectl process standup.mp3 --style Minutes
  notectl process memo.wav --style "Bullet points" -v`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		style, _ := cmd.Flags().GetString("style")
		if style == "" {
			return fmt.Errorf("--style is required")
		}
		asset, err := readAsset(args[0])
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		printVerbose("Processing %s (%d bytes) with style %q", asset.Source, len(asset.Content), style)
		res, err := a.Pipeline.ProcessAudioNote(cmd.Context(), asset, style)
		if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
			return perr
		}
		return err
	},
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Print the transcript of a local recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		language, _ := cmd.Flags().GetString("language")
		asset, err := readAsset(args[0])
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Pipeline.TranscribeOnly(cmd.Context(), asset, language)
		if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
			return perr
		}
		return err
	},
}

func readAsset(path string) (types.AudioAsset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.AudioAsset{}, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return types.AudioAsset{
		Content:     data,
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Source:      filepath.Base(path),
	}, nil
}

func init() {
	processCmd.Flags().StringP("style", "s", "", "style id or name")
	transcribeCmd.Flags().StringP("language", "l", "", "locale hint, e.g. en-GB")
}
