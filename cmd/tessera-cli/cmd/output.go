package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

// printJSON writes v as indented JSON and optionally copies it to the clipboard
func printJSON(cmd *cobra.Command, v any, copyToClipboard bool) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	if copyToClipboard {
		return copyText(cmd, string(data))
	}
	return nil
}

func copyText(cmd *cobra.Command, text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard is not available on this system")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Copied to clipboard")
	return nil
}
