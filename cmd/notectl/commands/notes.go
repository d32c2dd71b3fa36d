package commands

import (
	"bytes"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"talknote-go/internal/dataset"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "List, reprocess and export notes",
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		notes, err := a.Notes.List(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), notes)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tSTYLE\tCREATED\tTITLE")
		for _, n := range notes {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", n.ID, n.Status, n.StyleName, n.CreatedAt.Format("2006-01-02 15:04"), n.Title)
		}
		return tw.Flush()
	},
}

var notesReprocessCmd = &cobra.Command{
	Use:   "reprocess <note-id>",
	Short: "Transcribe and restyle a stored note again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Pipeline.ReprocessNote(cmd.Context(), args[0])
		if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
			return perr
		}
		return err
	},
}

var notesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all notes to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			return fmt.Errorf("output file is required, use -o flag")
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		notes, err := a.Notes.List(cmd.Context())
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := dataset.ExportNotes(&buf, notes); err != nil {
			return err
		}
		if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d notes to %s\n", len(notes), out)
		return nil
	},
}

func init() {
	notesListCmd.Flags().Bool("json", false, "print JSON")
	notesExportCmd.Flags().StringP("output", "o", "", "output xlsx path")
	notesCmd.AddCommand(notesListCmd, notesReprocessCmd, notesExportCmd)
}
