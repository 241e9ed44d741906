package main

import (
	"fmt"
	"io"
	"time"

	"allsidestg/internal/importer"

	"github.com/spf13/cobra"
)

func onceCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single import cycle and print its report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *cfgPath, true)
			if err != nil {
				return err
			}
			defer a.Close()

			im, err := a.newImporter(nil)
			if err != nil {
				return err
			}

			report, err := im.Tick(cmd.Context())
			printReport(cmd.OutOrStdout(), report)

			return err
		},
	}
}

func printReport(w io.Writer, r *importer.CycleReport) {
	fmt.Fprintf(w, "cycle %s (%v)\n", r.ID, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  teasers:   %d\n", r.Teasers)
	fmt.Fprintf(w, "  skipped:   %d\n", r.Skipped)
	fmt.Fprintf(w, "  published: %d\n", len(r.Published))

	for _, u := range r.Published {
		fmt.Fprintf(w, "    ✅ %s\n", u)
	}

	if len(r.DryRun) > 0 {
		fmt.Fprintf(w, "  dry run:   %d\n", len(r.DryRun))

		for _, u := range r.DryRun {
			fmt.Fprintf(w, "    📝 %s\n", u)
		}
	}

	fmt.Fprintf(w, "  failed:    %d\n", len(r.Failed))

	for _, f := range r.Failed {
		fmt.Fprintf(w, "    ❌ %s: %v\n", f.URL, f.Err)
	}
}
