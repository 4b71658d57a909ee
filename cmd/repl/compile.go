package main

import (
	"fmt"
	"io"

	"github.com/sartor/db/command"
	"github.com/sartor/db/nodes"
	"github.com/sartor/db/schema"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// compileOptions holds flags for the compile command.
type compileOptions struct {
	raw        bool
	positional bool
}

// newCompileCommand creates `sqlb compile <file.yaml>`.
func newCompileCommand(fsys afero.Fs) *cobra.Command {
	opts := &compileOptions{}
	cmd := &cobra.Command{
		Use:   "compile <file.yaml>",
		Short: "Compile a YAML query or statement to SQL",
		Long: `Compile reads a YAML file holding one query (select, from, where, ...)
or one statement (insert, batch_insert, update, delete, upsert) and
prints the SQL for the configured dialect. A top-level dialect key
overrides the configured engine and a schema key supplies table
metadata for upserts and type casting.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(fsys, cmd.Flags())
			if err != nil {
				return err
			}
			data, err := afero.ReadFile(fsys, args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			return runCompile(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, data, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "inline parameters as literals")
	cmd.Flags().BoolVar(&opts.positional, "positional", false, "use driver placeholders and list the arguments")
	return cmd
}

func factoryFor(engine string) *schema.Factory {
	return newBuilder(builderSettings{engine: engine}).ColumnFactory()
}

func runCompile(out, errOut io.Writer, cfg config, data []byte, opts *compileOptions) error {
	qf, err := parseQueryFile(data, factoryFor, cfg.Engine)
	if err != nil {
		return err
	}
	engine := cfg.Engine
	if qf.Dialect != "" {
		engine = qf.Dialect
	}
	v, err := parseServerVersion(cfg.ServerVersion)
	if err != nil {
		return err
	}
	b := newBuilder(builderSettings{
		engine:    engine,
		prefix:    cfg.TablePrefix,
		separator: cfg.Separator,
		version:   v,
		schema:    schema.NewMemory(qf.Tables...),
		logger:    newLogger(errOut, cfg.Verbose),
	})

	sql, params, err := qf.Build(b)
	if err != nil {
		return err
	}
	cmd := command.New(b, sql, params)
	switch {
	case opts.raw:
		_, _ = fmt.Fprintf(out, "%s;\n", cmd.RawSQL())
	case opts.positional:
		sql, args, err := cmd.Positional()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "%s;\n", sql)
		for i, a := range args {
			_, _ = fmt.Fprintf(out, "-- $%d = %v\n", i+1, a)
		}
	default:
		_, _ = fmt.Fprintf(out, "%s;\n", cmd.SQL())
		for _, p := range params.All() {
			_, _ = fmt.Fprintf(out, "-- %s = %s\n", p.Name, b.InlineParams(p.Name, nodes.NewParams(p)))
		}
	}
	return nil
}
