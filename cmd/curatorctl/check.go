package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jdholdren/curator/internal/fetch"
)

type checkedItem struct {
	Title     string    `yaml:"title"`
	Link      string    `yaml:"link"`
	GUID      string    `yaml:"guid"`
	Published time.Time `yaml:"published"`
	Label     string    `yaml:"label"`
	Excerpt   string    `yaml:"excerpt,omitempty"`
}

func newCheckCmd() *cobra.Command {
	var cfg fetch.Config

	cmd := &cobra.Command{
		Use:   "check URL",
		Short: "Fetch a feed with every fallback the refresher uses and print its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items := fetch.New(cfg).Fetch(cmd.Context(), args[0])
			if len(items) == 0 {
				return fmt.Errorf("no items found for %s", args[0])
			}

			out := make([]checkedItem, len(items))
			for i, it := range items {
				out[i] = checkedItem{
					Title:     it.Title,
					Link:      it.Link,
					GUID:      it.GUID,
					Published: it.PublishedAt,
					Label:     it.SourceLabel,
					Excerpt:   it.Excerpt,
				}
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()

			return enc.Encode(out)
		},
	}
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "timeout of each fetch attempt")
	cmd.Flags().StringVar(&cfg.UserAgent, "user-agent", "", "User-Agent sent with every request")

	return cmd
}
