package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrlokans/bookstack/internal/config"
	"github.com/mrlokans/bookstack/internal/googlebooks"
)

// search talks to Google Books directly and never opens the catalog.
func newSearchCommand() *cobra.Command {
	var maxResults int
	var byISBN bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search Google Books and list volume ids to import",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.NewConfig()
			client := googlebooks.NewClient(googlebooks.Config{
				BaseURL:           cfg.GoogleBooks.BaseURL,
				APIKey:            cfg.GoogleBooks.APIKey,
				Timeout:           cfg.GoogleBooks.Timeout,
				RequestsPerSecond: cfg.GoogleBooks.RequestsPerSecond,
			})

			query := strings.Join(args, " ")
			var (
				volumes *googlebooks.Volumes
				err     error
			)
			if byISBN {
				volumes, err = client.SearchByISBN(cmd.Context(), query)
			} else {
				volumes, err = client.Search(cmd.Context(), query, maxResults)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(volumes.Items) == 0 {
				fmt.Fprintln(out, "No volumes found")
				return nil
			}
			for _, v := range volumes.Items {
				line := fmt.Sprintf("%-14s %s", v.ID, v.VolumeInfo.Title)
				if len(v.VolumeInfo.Authors) > 0 {
					line += " (" + strings.Join(v.VolumeInfo.Authors, ", ") + ")"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxResults, "max", googlebooks.DefaultMaxResults, "maximum number of results (1-40)")
	cmd.Flags().BoolVar(&byISBN, "isbn", false, "treat the query as an ISBN")
	return cmd
}
