package main

import (
	"errors"
	"sort"
	"strings"

	"github.com/sartor/db/nodes"
)

// commandEntry maps a REPL prefix to its handler and optional tab-completer.
type commandEntry struct {
	prefix    string
	handler   func(args string) error
	completer func(args string) (completionContext, string) // nil = no arg completion
	hidden    bool                                          // excluded from commandNames()
}

// initCommands builds the command registry and sorts by prefix length descending.
func (s *Session) initCommands() {
	s.commands = []commandEntry{
		// --- output ---
		{prefix: "sql", handler: func(_ string) error { return s.cmdSQL() }},
		{prefix: "raw", handler: func(_ string) error { return s.cmdRaw() }},
		{prefix: "positional", handler: func(_ string) error { return s.cmdPositional() }},
		{prefix: "reset", handler: func(_ string) error { return s.cmdReset() }},
		{prefix: "status", handler: func(_ string) error { s.cmdStatus(); return nil }},
		{prefix: "help", handler: func(_ string) error { s.cmdHelp(); return nil }},

		// --- builder settings ---
		{prefix: "dialect ", handler: func(a string) error { return s.cmdDialect(a) }, completer: completeEngineArgs},
		{prefix: "engine ", handler: func(a string) error { return s.cmdDialect(a) }, completer: completeEngineArgs, hidden: true},
		{prefix: "version ", handler: func(a string) error { return s.cmdVersion(a) }},
		{prefix: "prefix ", handler: func(a string) error { return s.cmdPrefix(a) }},
		{prefix: "separator ", handler: func(a string) error { return s.cmdSeparator(a) }},

		// --- table metadata ---
		{prefix: "table ", handler: func(a string) error { return s.cmdTable(a) }},
		{prefix: "tables", handler: func(_ string) error { return s.cmdTables() }},
		{prefix: "describe ", handler: func(a string) error { return s.cmdDescribe(a) }, completer: completeTableArgs},

		// --- query building ---
		{prefix: "from ", handler: func(a string) error { return s.cmdFrom(a) }, completer: completeTableArgs},
		{prefix: "select ", handler: func(a string) error { return s.cmdSelect(a) }, completer: completeColumnArgs},
		{prefix: "add select ", handler: func(a string) error { return s.cmdAddSelect(a) }, completer: completeColumnArgs},
		{prefix: "distinct", handler: func(_ string) error { return s.cmdDistinct() }},
		{prefix: "option ", handler: func(a string) error { return s.cmdOption(a) }},
		{prefix: "where ", handler: func(a string) error { return s.cmdWhere(a, nodes.Query.AndWhere) }, completer: completeColumnArgs},
		{prefix: "and where ", handler: func(a string) error { return s.cmdWhere(a, nodes.Query.AndWhere) }, completer: completeColumnArgs, hidden: true},
		{prefix: "or where ", handler: func(a string) error { return s.cmdWhere(a, nodes.Query.OrWhere) }, completer: completeColumnArgs},
		{prefix: "filter where ", handler: func(a string) error { return s.cmdFilterWhere(a) }, completer: completeColumnArgs},
		{prefix: "group by ", handler: func(a string) error { return s.cmdGroupBy(a) }, completer: completeColumnArgs},
		{prefix: "having ", handler: func(a string) error { return s.cmdWhere(a, nodes.Query.AndHaving) }, completer: completeColumnArgs},
		{prefix: "or having ", handler: func(a string) error { return s.cmdWhere(a, nodes.Query.OrHaving) }, completer: completeColumnArgs},
		{prefix: "order by ", handler: func(a string) error { return s.cmdOrderBy(a) }, completer: completeOrderArgs},
		{prefix: "limit ", handler: func(a string) error { return s.cmdLimit(a) }},
		{prefix: "offset ", handler: func(a string) error { return s.cmdOffset(a) }},
		{prefix: "param ", handler: func(a string) error { return s.cmdParam(a) }},

		// --- joins (multi-word prefixes) ---
		{prefix: "join ", handler: func(a string) error { return s.cmdJoin(a, nodes.InnerJoin) }, completer: completeJoinArgs},
		{prefix: "inner join ", handler: func(a string) error { return s.cmdJoin(a, nodes.InnerJoin) }, completer: completeJoinArgs, hidden: true},
		{prefix: "left join ", handler: func(a string) error { return s.cmdJoin(a, nodes.LeftJoin) }, completer: completeJoinArgs},
		{prefix: "right join ", handler: func(a string) error { return s.cmdJoin(a, nodes.RightJoin) }, completer: completeJoinArgs},
		{prefix: "full join ", handler: func(a string) error { return s.cmdJoin(a, nodes.FullJoin) }, completer: completeJoinArgs},
		{prefix: "cross join ", handler: func(a string) error { return s.cmdCrossJoin(a) }, completer: completeTableArgs},

		// --- set operations and CTEs ---
		{prefix: "union all", handler: func(_ string) error { return s.cmdUnion(true) }},
		{prefix: "union", handler: func(_ string) error { return s.cmdUnion(false) }},
		{prefix: "with recursive ", handler: func(a string) error { return s.cmdWith(a, true) }},
		{prefix: "with ", handler: func(a string) error { return s.cmdWith(a, false) }},

		// --- statements ---
		{prefix: "stmt ", handler: func(a string) error { return s.cmdStatement(a, false) }, completer: completeStatementArgs},
		{prefix: "exec ", handler: func(a string) error { return s.cmdStatement(a, true) }, completer: completeStatementArgs},
		{prefix: "create table ", handler: func(a string) error { return s.cmdCreateTable(a) }},
		{prefix: "drop table ", handler: func(a string) error { return s.cmdDropTable(a) }, completer: completeTableArgs},

		// --- database connectivity ---
		{prefix: "connect ", handler: func(a string) error { return s.cmdConnect(a) }},
		{prefix: "connect", handler: func(_ string) error { return s.cmdConnect("") }},
		{prefix: "disconnect", handler: func(_ string) error { return s.disconnect() }},
		{prefix: "run", handler: func(_ string) error { return s.cmdRun() }},

		// --- plugins ---
		{prefix: "plugin ", handler: func(a string) error { return s.cmdPlugin(a) }, completer: completePluginArgs},
		{prefix: "plugins", handler: func(_ string) error { s.cmdPlugins(); return nil }},
	}

	// Sort by prefix length descending so longest prefixes match first.
	sort.SliceStable(s.commands, func(i, j int) bool {
		return len(s.commands[i].prefix) > len(s.commands[j].prefix)
	})
}

// commandNames derives the command name list from the registry for tab completion.
func (s *Session) commandNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, cmd := range s.commands {
		if cmd.hidden {
			continue
		}
		name := strings.TrimRight(cmd.prefix, " ")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	// exit/quit are handled by the REPL loop, not Execute().
	for _, extra := range []string{"exit", "quit"} {
		if !seen[extra] {
			names = append(names, extra)
		}
	}
	sort.Strings(names)
	return names
}

// splitOn splits "left <keyword> right" at the first keyword outside
// quotes, brackets and parentheses. keyword is matched case-insensitively
// and must be surrounded by spaces.
func splitOn(s, keyword string) (string, string, bool) {
	needle := " " + strings.ToLower(keyword) + " "
	lower := strings.ToLower(s)
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			depth--
		case depth == 0 && strings.HasPrefix(lower[i:], needle):
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len(needle):]), true
		}
	}
	return strings.TrimSpace(s), "", false
}

// splitTopLevelCommas splits on commas not nested in parentheses or quotes.
func splitTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case ch == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		parts = append(parts, last)
	}
	return parts
}

var errEmptyArgs = errors.New("missing arguments")

// --- Shared completion helpers ---

// completeJoinArgs handles completion for join prefixes:
// table name, then column refs in the ON clause.
func completeJoinArgs(args string) (completionContext, string) {
	words := strings.Fields(args)
	if len(words) == 0 {
		return contextTableName, ""
	}
	if strings.Contains(args, " ") {
		if strings.HasSuffix(args, " ") {
			return contextOperator, ""
		}
		return contextColumnRef, words[len(words)-1]
	}
	return contextTableName, args
}

// completeTableArgs handles completion for single-word table commands.
func completeTableArgs(args string) (completionContext, string) {
	arg := strings.TrimSpace(args)
	if !strings.Contains(arg, " ") {
		return contextTableName, arg
	}
	return contextCommand, ""
}

// completeColumnArgs handles completion for column-ref commands
// (select, where, having, group by).
func completeColumnArgs(args string) (completionContext, string) {
	if strings.HasSuffix(args, " ") {
		prev := strings.Fields(args)
		if len(prev) > 0 && strings.Contains(prev[len(prev)-1], ".") {
			return contextOperator, ""
		}
		return contextColumnRef, ""
	}
	return contextColumnRef, lastToken(args)
}

// completeOrderArgs completes column refs, then a direction after a column.
func completeOrderArgs(args string) (completionContext, string) {
	if strings.HasSuffix(args, " ") {
		parts := strings.Fields(args)
		if len(parts) > 0 && !strings.HasSuffix(parts[len(parts)-1], ",") {
			return contextOrderDir, ""
		}
		return contextColumnRef, ""
	}
	last := lastToken(args)
	switch strings.ToLower(last) {
	case "a", "as", "d", "de", "des":
		return contextOrderDir, last
	}
	return contextColumnRef, last
}

func completeEngineArgs(args string) (completionContext, string) {
	return contextEngine, strings.TrimSpace(args)
}

// completePluginArgs completes plugin names, or after "off" the names
// of enabled plugins.
func completePluginArgs(args string) (completionContext, string) {
	if strings.HasPrefix(strings.ToLower(args), "off ") {
		return contextPluginOff, strings.TrimSpace(args[4:])
	}
	arg := strings.TrimSpace(args)
	if !strings.Contains(arg, " ") {
		return contextPlugin, arg
	}
	return contextCommand, ""
}

func completeStatementArgs(args string) (completionContext, string) {
	arg := strings.TrimLeft(args, " ")
	if !strings.Contains(arg, " ") {
		return contextStatement, arg
	}
	return contextCommand, ""
}
