// Curatorctl administers a curator database: seeding the source registry
// and checking feeds by hand.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "curatorctl",
		Short: "Curator administration CLI",
		Long: `curatorctl manages the curated source registry.

Example usage:
  curatorctl seed sources.yaml            # Upsert the sources listed in the file
  curatorctl seed --dry-run sources.yaml  # Validate the file only
  curatorctl check https://example.com    # Fetch a feed and print its items`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSeedCmd(), newCheckCmd())

	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}
