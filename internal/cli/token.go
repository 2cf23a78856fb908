package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/bookstack/internal/auth"
)

func newTokenCommand() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate an API token and the AUTH_TOKEN_HASH to configure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, hash, err := auth.GenerateToken(cost)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Token (shown once): %s\n", plaintext)
			fmt.Fprintf(out, "AUTH_TOKEN_HASH=%s\n", hash)
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", 0, "bcrypt cost (0 uses the default)")
	return cmd
}
