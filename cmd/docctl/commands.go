package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"docflow-backend/internal/bootstrap"
	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/shared/telemetry"
)

var (
	output   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "docctl",
	Short:         "Administer docflow users, documents and signatures",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return telemetry.SetLevel(logLevel)
	},
}

// Run executes the CLI and returns the process exit code.
func Run() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format: one of json|yaml (default table)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level")

	rootCmd.AddCommand(newUsersCommand())
	rootCmd.AddCommand(newTokenCommand())
	rootCmd.AddCommand(newDocumentsCommand())
	rootCmd.AddCommand(newSignaturesCommand())
	rootCmd.AddCommand(newMigrateCommand())
}

// openApp builds the application graph. docctl refuses to run on in-memory storage.
func openApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if app.DB == nil {
		return nil, errors.New("DATABASE_URL is required")
	}
	return app, nil
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateFooter = false
	tw.Style().Options.SeparateHeader = false
	tw.Style().Options.SeparateRows = false
	return tw
}

// render renders v as JSON or YAML when requested, otherwise calls renderTable.
func render(cmd *cobra.Command, v any, renderTable func() table.Writer) error {
	switch output {
	case "":
		cmd.Printf("%s\n", renderTable().Render())
	case "json":
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		cmd.Println(string(raw))
	case "yaml":
		raw, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal YAML: %w", err)
		}
		cmd.Println(string(raw))
	default:
		return fmt.Errorf("unknown output format: %s", output)
	}
	return nil
}
