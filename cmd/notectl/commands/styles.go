package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"talknote-go/internal/dataset"
	"talknote-go/internal/types"
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List, add and import note styles",
}

var stylesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List styles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		styles, err := a.Styles.List(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), styles)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
		for _, s := range styles {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Name, truncate(s.Description, 60))
		}
		return tw.Flush()
	},
}

var stylesAddCmd = &cobra.Command{
	Use:   "add <name> <description>",
	Short: "Add or replace a style",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		style, created, err := a.Styles.Upsert(cmd.Context(), types.StyleDescriptor{Name: args[0], Description: args[1]})
		if err != nil {
			return err
		}
		printVerbose("created=%v", created)
		return printJSON(cmd.OutOrStdout(), style)
	},
}

var stylesImportCmd = &cobra.Command{
	Use:   "import <catalog.xlsx>",
	Short: "Import a style catalog from a workbook",
	Long: `Import styles from the first sheet of an xlsx workbook.

Name and description columns are found by header ("Name", "Description");
styles that already exist by name get the new description.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		rows, err := dataset.ReadStyles(f)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := dataset.ImportStyles(cmd.Context(), a.Styles, rows, a.Log)
		if perr := printJSON(cmd.OutOrStdout(), rep); perr != nil {
			return perr
		}
		return err
	},
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	stylesListCmd.Flags().Bool("json", false, "print JSON")
	stylesCmd.AddCommand(stylesListCmd, stylesAddCmd, stylesImportCmd)
}
