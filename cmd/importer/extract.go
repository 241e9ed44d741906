package main

import (
	"encoding/json"
	"fmt"

	"allsidestg/internal/crawler"

	"github.com/spf13/cobra"
)

func extractCMD() *cobra.Command {
	return &cobra.Command{
		Use:       "extract main|story <file>",
		Short:     "Parse a saved AllSides page and print the result as JSON",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"main", "story"},
		RunE: func(cmd *cobra.Command, args []string) error {
			client := crawler.NewClient(crawler.NewFileFetcher("."))

			var (
				v   any
				err error
			)

			switch args[0] {
			case "main":
				v, err = client.ParseMainPageFile(args[1])
			case "story":
				v, err = client.ParseStoryFile(args[1])
			default:
				return fmt.Errorf("unknown page kind %q (want main or story)", args[0])
			}

			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)

			return enc.Encode(v)
		},
	}
}
