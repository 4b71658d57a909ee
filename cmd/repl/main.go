// Command sqlb is an interactive SQL builder. It assembles queries
// command by command, renders them for PostgreSQL, MySQL, SQLite or a
// generic dialect, and optionally runs them on a live connection.
//
// Configuration is read from ~/.sqlb.yaml, SQLB_* environment variables
// (a .env file in the working directory is loaded first) and flags:
//
//	sqlb --engine mysql --dsn 'user:pass@tcp(localhost:3306)/app'
//	sqlb compile query.yaml --engine sqlite
package main

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/afero"
)

func main() {
	cmd := newRootCommand(afero.NewOsFs(), os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		_, _ = color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
