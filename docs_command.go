package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// docsCmd writes reference pages for every console command.
var docsCmd = newDocsCommand()

func newDocsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs [FORMAT]",
		Short: "Generate command reference pages",
		Long: `Generate reference pages for the console commands.

Formats (one subdirectory of --output each):
  man        man(1) pages
  markdown   Markdown pages
  yaml       YAML descriptions
  rest       reStructuredText pages
  all        every format above (default)

Examples:
  greenapi-console docs
  greenapi-console docs markdown -o site/cli`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := "all"
			if len(args) > 0 {
				format = args[0]
			}
			outputDir, _ := cmd.Flags().GetString("output")
			if outputDir == "" {
				outputDir = "docs"
			}
			return generateDocumentation(cmd.Root(), format, outputDir, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringP("output", "o", "docs", "Directory the generated pages are written under")
	return cmd
}

type docFormat struct {
	name     string
	label    string
	generate func(root *cobra.Command, dir string) error
}

var docFormats = []docFormat{
	{name: "man", label: "man pages", generate: func(root *cobra.Command, dir string) error {
		return doc.GenManTree(root, &doc.GenManHeader{
			Title:   strings.ToUpper(PROGRAM_NAME),
			Section: "1",
			Manual:  "GREEN-API Console Manual",
			Source:  PROGRAM_NAME + " " + Version,
		}, dir)
	}},
	{name: "markdown", label: "markdown pages", generate: doc.GenMarkdownTree},
	{name: "yaml", label: "YAML pages", generate: doc.GenYamlTree},
	{name: "rest", label: "reStructuredText pages", generate: doc.GenReSTTree},
}

func selectDocFormats(format string) ([]docFormat, error) {
	if format == "all" {
		return docFormats, nil
	}
	for _, f := range docFormats {
		if f.name == format {
			return []docFormat{f}, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown documentation format %q (want man, markdown, yaml, rest or all)", errUsage, format)
}

// generateDocumentation writes the pages for root into outputDir/<format>.
// An unknown format fails before anything is created.
func generateDocumentation(root *cobra.Command, format, outputDir string, out io.Writer) error {
	formats, err := selectDocFormats(format)
	if err != nil {
		return err
	}

	for _, f := range formats {
		dir := filepath.Join(outputDir, f.name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		if err := f.generate(root, dir); err != nil {
			return fmt.Errorf("generate %s: %w", f.label, err)
		}
		fmt.Fprintf(out, "Generated %s in %s/\n", f.label, dir)
	}
	return nil
}
