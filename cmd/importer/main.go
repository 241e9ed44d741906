// Package main provides the importer command: it polls the AllSides balanced-news
// page and posts every new story cluster to a Telegram channel.
package main

import (
	"fmt"
	"os"

	"allsidestg/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:           "importer",
		Short:         "Publish AllSides story clusters to Telegram",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (YAML); ASTG_* environment variables override it")

	root.AddCommand(
		runCMD(&cfgPath),
		onceCMD(&cfgPath),
		listCMD(&cfgPath),
		extractCMD(),
		configCMD(&cfgPath),
	)

	if err := root.Execute(); err != nil {
		logger.NewLogger("error").Error(fmt.Sprintf("❌ %v", err))
		os.Exit(1)
	}
}
