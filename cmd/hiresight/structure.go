package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hiresight-ai/hiresight/internal/structurer"
)

// structureCMD parses a resume file and prints the structured document, for
// inspecting what the pipeline will index.
func structureCMD() *cobra.Command {
	var format string
	var cmd = &cobra.Command{
		Use:   "structure <file>",
		Short: "Parse a resume and print its structured form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(path), ".")
			}

			doc, err := structurer.Structure(raw, structurer.Format(format), filepath.Base(path))
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "document format (default: file extension)")
	return cmd
}
