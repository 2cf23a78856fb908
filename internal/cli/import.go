package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrlokans/bookstack/internal/config"
	"github.com/mrlokans/bookstack/internal/entrypoint"
)

func newImportCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "import <volumeId>",
		Short: "Import a Google Books volume into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := entrypoint.NewApp(config.NewConfig())
			if err != nil {
				return err
			}
			defer app.Close()

			book, err := app.Catalog.ImportBook(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(book)
			}

			names := make([]string, 0, len(book.BookAuthors))
			for _, a := range book.Authors() {
				names = append(names, a.Name)
			}
			fmt.Fprintf(out, "Imported #%d %q", book.ID, book.Title)
			if len(names) > 0 {
				fmt.Fprintf(out, " by %s", strings.Join(names, ", "))
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the imported book as JSON")
	return cmd
}
