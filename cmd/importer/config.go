package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func configCMD(cfgPath *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}

			if output != "" {
				if err := cfg.SaveConfig(output); err != nil {
					return err
				}

				fmt.Fprintf(cmd.ErrOrStderr(), "✅ wrote %s\n", output)

				return nil
			}

			redacted := cfg.Redacted()

			data, err := redacted.YAML()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the effective configuration (secrets included) to this file")

	return cmd
}
