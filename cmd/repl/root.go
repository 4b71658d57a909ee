package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ergochat/readline"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// newRootCommand creates the sqlb command. Without a subcommand it
// starts the interactive shell.
func newRootCommand(fsys afero.Fs, stdin io.ReadCloser, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sqlb",
		Short: "Interactive SQL builder for PostgreSQL, MySQL and SQLite",
		Long: `sqlb builds SQL statements interactively and compiles YAML query
files, rendering the same query for any supported dialect.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(fsys, cmd.Flags())
			if err != nil {
				return err
			}
			return runShell(cmd, cfg, stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	registerFlags(cmd.PersistentFlags())
	cmd.AddCommand(newCompileCommand(fsys))
	return cmd
}

func runShell(cmd *cobra.Command, cfg config, stdin io.ReadCloser, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, cfg.Verbose)
	sess, err := NewSession(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	sess.out = stdout
	defer func() { _ = sess.Close() }()

	rl, err := readline.NewFromConfig(&readline.Config{
		Prompt:          "sqlb> ",
		HistoryFile:     cfg.History,
		HistoryLimit:    500,
		AutoComplete:    &replCompleter{sess: sess},
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           stdin,
		Stdout:          stdout,
		Stderr:          stderr,
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer func() { _ = rl.Close() }()

	errColor := color.New(color.FgRed)
	if cfg.DSN != "" {
		_, _ = fmt.Fprintf(stdout, "Connecting to %s...\n", sanitizeDSN(cfg.DSN))
		if err := sess.connectWithDSN(cfg.DSN); err != nil {
			_, _ = errColor.Fprintf(stderr, "  Warning: %v\n", err)
		}
	}

	_, _ = fmt.Fprintf(stdout, "sqlb (%s) - type 'help' for commands, 'exit' to quit\n", sess.engine)
	for {
		line, err := rl.ReadLine()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if lower == "exit" || lower == "quit" {
			break
		}
		if err := sess.Execute(line); err != nil {
			_, _ = errColor.Fprintf(stderr, "  Error: %v\n", err)
		}
	}
	return nil
}
