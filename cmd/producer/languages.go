package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/dontdude/tiobot/internal/tio"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the identifiers the execution provider currently supports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := tio.NewClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.RunURL, cfg.LanguagesURL)
		langs, err := client.Languages(cmd.Context())
		if err != nil {
			return err
		}
		for _, lang := range langs {
			fmt.Fprintln(cmd.OutOrStdout(), lang)
		}
		return nil
	},
}
