package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/sartor/db/command"
	"github.com/sartor/db/nodes"
	"github.com/sartor/db/schema"
	"github.com/sartor/db/visitors"
)

var errNoQuery = errors.New("no query defined (use 'from <table>' first)")

// unionEntry is a query pushed by 'union' or 'union all'.
type unionEntry struct {
	query nodes.Query
	all   bool
}

// cteEntry is a query pushed by 'with <alias>'.
type cteEntry struct {
	alias     string
	query     nodes.Query
	recursive bool
}

// Session holds the REPL state: the dialect builder, the query being
// assembled, known table metadata and the optional live connection.
type Session struct {
	ctx         context.Context
	cfg         config
	engine      string
	version     *version.Version
	builder     *visitors.Builder
	query       *nodes.Query // nil until 'from'
	unions      []unionEntry
	ctes        []cteEntry
	params      []nodes.Param
	schema      *schema.Memory
	plugins     pluginRegistry     // enabled plugins
	configurers []pluginConfigurer // all known plugins
	commands    []commandEntry     // sorted by prefix length desc
	conn        *dbConn            // nil when disconnected
	lastDSN     string
	logger      *slog.Logger
	out         io.Writer
}

// NewSession creates a session from resolved configuration.
func NewSession(ctx context.Context, cfg config, logger *slog.Logger) (*Session, error) {
	v, err := parseServerVersion(cfg.ServerVersion)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{
		ctx:     ctx,
		cfg:     cfg,
		engine:  cfg.Engine,
		version: v,
		schema:  schema.NewMemory(),
		logger:  logger,
		out:     os.Stdout,
	}
	s.configurers = []pluginConfigurer{
		{name: "softdelete", configure: configureSoftdelete},
	}
	s.rebuild()
	s.initCommands()
	return s, nil
}

// pluginNames returns the names of all known plugins (for tab completion).
func (s *Session) pluginNames() []string {
	names := make([]string, len(s.configurers))
	for i, c := range s.configurers {
		names[i] = c.name
	}
	return names
}

// rebuild recreates the builder after the dialect, version, separator or
// plugin set changed. The query itself is dialect independent and kept.
func (s *Session) rebuild() {
	s.builder = newBuilder(builderSettings{
		engine:       s.engine,
		prefix:       s.cfg.TablePrefix,
		separator:    s.cfg.Separator,
		version:      s.version,
		schema:       s.schema,
		logger:       s.logger,
		transformers: s.plugins.transformers(),
	})
}

func (s *Session) setEngine(engine string) error {
	engine = strings.ToLower(strings.TrimSpace(engine))
	if !isValidEngine(engine) {
		return fmt.Errorf("unknown dialect %q (want postgres, mysql, sqlite or generic)", engine)
	}
	s.engine = engine
	s.rebuild()
	return nil
}

// Execute parses and runs a single REPL command.
func (s *Session) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	lower := strings.ToLower(line)

	for _, cmd := range s.commands {
		if strings.HasSuffix(cmd.prefix, " ") {
			if strings.HasPrefix(lower, cmd.prefix) {
				return cmd.handler(line[len(cmd.prefix):])
			}
		} else if lower == cmd.prefix {
			return cmd.handler("")
		}
	}

	word := strings.Fields(line)[0]
	return fmt.Errorf("unknown command: %s (type 'help' for commands)", word)
}

// update applies fn to the current query.
func (s *Session) update(fn func(nodes.Query) nodes.Query) error {
	if s.query == nil {
		return errNoQuery
	}
	q := fn(*s.query)
	s.query = &q
	return nil
}

// currentQuery assembles the pushed unions and CTEs around the query
// being edited. The pushed pieces are left in place.
func (s *Session) currentQuery() (nodes.Query, error) {
	if s.query == nil {
		return nodes.Query{}, errNoQuery
	}
	q := *s.query
	if len(s.unions) > 0 {
		base := s.unions[0].query
		for i, u := range s.unions {
			next := q
			if i+1 < len(s.unions) {
				next = s.unions[i+1].query
			}
			if u.all {
				base = base.UnionAll(next)
			} else {
				base = base.Union(next)
			}
		}
		q = base
	}
	for _, c := range s.ctes {
		q = q.WithQuery(c.query, c.alias, c.recursive)
	}
	return q.AddParams(s.params...), nil
}

// GenerateSQL compiles the current query.
func (s *Session) GenerateSQL() (*command.Command, error) {
	q, err := s.currentQuery()
	if err != nil {
		return nil, err
	}
	return command.FromQuery(s.builder, q)
}

// printCommand writes the statement followed by its bound parameters.
func (s *Session) printCommand(cmd *command.Command) {
	_, _ = fmt.Fprintf(s.out, "  %s;\n", cmd.SQL())
	if line := formatParams(s.builder, cmd.Params()); line != "" {
		_, _ = fmt.Fprintf(s.out, "  Params: %s\n", line)
	}
}

// formatParams renders a bag as ":qp0 = 'x', :qp1 = 3".
func formatParams(b *visitors.Builder, params *nodes.Params) string {
	all := params.All()
	parts := make([]string, len(all))
	for i, p := range all {
		parts[i] = p.Name + " = " + b.InlineParams(p.Name, nodes.NewParams(p))
	}
	return strings.Join(parts, ", ")
}

// reset clears the query, pushed unions and CTEs and bound parameters.
func (s *Session) reset() {
	s.query = nil
	s.unions = nil
	s.ctes = nil
	s.params = nil
}

func (s *Session) connectWithDSN(dsn string) error {
	conn, err := connect(s.ctx, s.engine, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	s.conn = conn
	s.lastDSN = dsn
	if s.version == nil {
		if raw, err := conn.serverVersion(s.ctx); err != nil {
			s.logger.Warn("server version unavailable", "err", err)
		} else if v, err := version.NewVersion(raw); err == nil {
			s.version = v
		}
	}
	s.rebuild()
	_, _ = fmt.Fprintf(s.out, "  Connected to %s (%s)\n", sanitizeDSN(dsn), s.engine)

	// Catalogue queries must not pass through the enabled plugins.
	plain := newBuilder(builderSettings{engine: s.engine, version: s.version, logger: s.logger})
	loaded, err := conn.loadSchema(s.ctx, plain)
	if err != nil {
		s.logger.Warn("schema introspection failed", "err", err)
		return nil
	}
	for _, name := range loaded.TableNames() {
		t, _ := loaded.TableSchema(name)
		s.schema.Add(t)
	}
	_, _ = fmt.Fprintf(s.out, "  Loaded %d table(s)\n", len(loaded.TableNames()))
	return nil
}

func (s *Session) disconnect() error {
	if s.conn == nil {
		return errors.New("not connected")
	}
	dsn := sanitizeDSN(s.conn.dsn)
	if err := s.conn.close(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	s.conn = nil
	_, _ = fmt.Fprintf(s.out, "  Disconnected from %s\n", dsn)
	return nil
}

// Close releases the connection, if any.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.close()
	s.conn = nil
	return err
}
