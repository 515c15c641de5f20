// Package cli implements the sqlpager command-line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Alp4ka/sqlpager"
)

type rootOptions struct {
	configPath string
	jsonOutput bool
	verbose    bool
}

// NewRootCmd builds the command tree. Every call returns an independent tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "sqlpager",
		Short: "Compile paginated SQL statements",
		Long: `sqlpager compiles SQL templates with ":name" placeholders into
paginated statements, the same way the library does at runtime.

Examples:
  sqlpager compile --sql "SELECT * FROM users WHERE age > :age" --param age=30 --sort "id asc" --page 3
  sqlpager count --sql "SELECT * FROM users WHERE city IN (:cities)" --param "cities=[Boston, Denver]"
  sqlpager decode <token>`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML or TOML paging config")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log planning decisions to stderr")

	cmd.AddCommand(
		newCompileCmd(opts),
		newCountCmd(opts),
		newDecodeCmd(opts),
	)

	return cmd
}

// Execute runs the command line of the process.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) loadConfig() (sqlpager.Config, error) {
	if o.configPath == "" {
		return sqlpager.DefaultPagingConfig(), nil
	}

	return sqlpager.LoadConfig(o.configPath)
}

func (o *rootOptions) newCompiler(cmd *cobra.Command, cfg sqlpager.Config) *sqlpager.Compiler {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	return sqlpager.NewCompiler(nil, append(cfg.Options(), sqlpager.WithLogger(logger))...)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("cannot encode output: %w", err)
	}

	return nil
}
