package main

import (
	"fmt"

	"allsidestg/internal/formatter"

	"github.com/spf13/cobra"
)

func listCMD(cfgPath *string) *cobra.Command {
	var records bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the teasers currently on the main page and whether they were published",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, *cfgPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()

			if records {
				recs, err := a.store.List(ctx)
				if err != nil {
					return err
				}

				for _, r := range recs {
					fmt.Fprintf(out, "%s\t%s\n", r.PublishedAt.Format("2006-01-02 15:04:05"), r.URL)
				}

				return nil
			}

			page, err := a.client.CrawlMainPage(ctx, a.cfg.Importer.MainURL)
			if err != nil {
				return err
			}

			rows := make([]formatter.TeaserRow, 0, len(page.Teasers))

			for _, t := range page.Teasers {
				done, err := a.store.IsPublished(ctx, t.URL)
				if err != nil {
					return err
				}

				rows = append(rows, formatter.TeaserRow{Teaser: t, Published: done})
			}

			fmt.Fprint(out, formatter.TeaserTable(rows))

			return nil
		},
	}
	cmd.Flags().BoolVar(&records, "records", false, "list stored dedup records instead of the live main page")

	return cmd
}
