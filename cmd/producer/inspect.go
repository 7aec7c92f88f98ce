package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dontdude/tiobot/internal/domain"
	"github.com/dontdude/tiobot/internal/tio"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <hexfile>",
	Short: "Decode a captured run payload",
	Long:  `Reads a hex dump of a compressed run request (whitespace ignored) and prints its fields.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		req, err := decodeHexPayload(string(data))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), req)
	},
}

func decodeHexPayload(dump string) (domain.ExecutionRequest, error) {
	clean := strings.Join(strings.Fields(dump), "")
	payload, err := hex.DecodeString(clean)
	if err != nil {
		return domain.ExecutionRequest{}, fmt.Errorf("invalid hex dump: %w", err)
	}
	return tio.Decode(payload)
}
