package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"

	"github.com/harrison/verigate/internal/config"
)

// NewReportCommand creates the report command, which renders the markdown
// run summary artifact to a standalone HTML page.
func NewReportCommand(configPath *string) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the latest run summary to HTML",
		Long: `Render the summary.md artifact written by the most recent gate run into a
standalone HTML page for browsing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *config.Config
			var err error
			if *configPath != "" {
				cfg, err = config.LoadConfig(*configPath)
			} else {
				cfg, err = config.LoadConfigFromDir(".")
			}
			if err != nil {
				return err
			}

			summaryPath := filepath.Join(cfg.ArtifactsDir, "summary.md")
			if outPath == "" {
				outPath = filepath.Join(cfg.ArtifactsDir, "summary.html")
			}

			if err := renderReport(summaryPath, outPath); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "output HTML path (default <artifacts>/summary.html)")

	return cmd
}

// renderReport converts the markdown summary into an HTML document.
func renderReport(summaryPath, outPath string) error {
	source, err := os.ReadFile(summaryPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no run summary at %s; run the gate first", summaryPath)
		}
		return fmt.Errorf("read run summary: %w", err)
	}

	var body bytes.Buffer
	if err := goldmark.New().Convert(source, &body); err != nil {
		return fmt.Errorf("render run summary: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	page.WriteString("<meta charset=\"utf-8\">\n<title>Gate Run Summary</title>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(outPath, page.Bytes(), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}
