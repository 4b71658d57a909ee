package main

import "strings"

// completionContext describes what kind of completion is appropriate.
type completionContext int

const (
	contextCommand    completionContext = iota // start of line or partial command
	contextTableName                          // after from/join/etc
	contextColumnRef                          // after select/where/having/group/expr
	contextEngine                             // after dialect
	contextPlugin                             // after plugin
	contextPluginOff                          // after plugin off
	contextOrderDir                           // after a column ref in order context
	contextOperator                           // after a column ref in condition context
	contextStatement                          // after stmt/exec
)

var engineNames = []string{"generic", "mysql", "postgres", "sqlite"}
var orderDirs = []string{"asc", "desc"}
var operators = []string{
	"!=", "<", "<=", "<>", "=", ">", ">=",
	"and", "between", "exists", "in", "is", "like", "not", "or",
}

var functionNames = []string{
	"ABS(", "AVG(",
	"CASE ", "CAST(", "COALESCE(", "CONCAT(", "COUNT(", "COUNT(DISTINCT ",
	"EXISTS(", "GREATEST(", "LEAST(", "LENGTH(", "LOWER(",
	"MAX(", "MIN(", "NOW(", "NULLIF(", "ROUND(", "SUBSTRING(", "SUM(",
	"TRIM(", "UPPER(",
}

// replCompleter implements readline's AutoCompleter interface.
type replCompleter struct {
	sess *Session
}

// Do returns completion candidates for the current line/cursor position.
// length is the number of chars from end of line[:pos] that form the prefix being completed.
// newLine contains the suffixes to append for each candidate.
func (c *replCompleter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	lineStr := string(line[:pos])
	ctx, prefix := c.parseContext(lineStr)

	var candidates []string
	switch ctx {
	case contextCommand:
		candidates = c.completeCommands(prefix)
	case contextTableName:
		candidates = c.completeTableNames(prefix)
	case contextColumnRef:
		candidates = c.completeColumnRef(prefix)
	case contextEngine:
		candidates = filterPrefix(engineNames, prefix)
	case contextPlugin:
		candidates = filterPrefix(append([]string{"off"}, c.sess.pluginNames()...), prefix)
	case contextPluginOff:
		candidates = filterPrefix(c.sess.plugins.names(), prefix)
	case contextOrderDir:
		candidates = filterPrefix(orderDirs, prefix)
	case contextOperator:
		candidates = filterPrefix(operators, prefix)
	case contextStatement:
		candidates = filterPrefix(statementKinds, prefix)
	}

	for _, cand := range candidates {
		suffix := cand[len(prefix):]
		// Add trailing space for convenience.
		newLine = append(newLine, []rune(suffix+" "))
	}
	length = len([]rune(prefix))
	return
}

// parseContext examines the line up to cursor and determines what kind of
// completion is needed and the current prefix being typed.
func (c *replCompleter) parseContext(line string) (completionContext, string) {
	lower := strings.ToLower(line)

	for _, cmd := range c.sess.commands {
		if !strings.HasSuffix(cmd.prefix, " ") {
			continue // exact-match commands have no arg completion
		}
		if strings.HasPrefix(lower, cmd.prefix) && cmd.completer != nil {
			return cmd.completer(line[len(cmd.prefix):])
		}
	}

	// Default: command completion.
	return contextCommand, strings.TrimSpace(line)
}

// completeCommands returns command names matching the prefix.
func (c *replCompleter) completeCommands(prefix string) []string {
	return filterPrefix(c.sess.commandNames(), prefix)
}

// completeTableNames returns known table names matching prefix.
func (c *replCompleter) completeTableNames(prefix string) []string {
	return filterPrefix(c.sess.schema.TableNames(), prefix)
}

func (c *replCompleter) columnNames(table string) []string {
	t, ok := c.sess.schema.TableSchema(table)
	if !ok {
		return nil
	}
	return t.ColumnNames()
}

// completeColumnRef handles both table-name and table.column completion.
func (c *replCompleter) completeColumnRef(prefix string) []string {
	if tableName, _, ok := strings.Cut(prefix, "."); ok {
		candidates := []string{tableName + ".*"}
		for _, col := range c.columnNames(tableName) {
			candidates = append(candidates, tableName+"."+col)
		}
		return filterPrefix(candidates, prefix)
	}

	// Before the dot: table names and function names.
	candidates := c.completeTableNames(prefix)
	return dedup(append(candidates, filterPrefix(functionNames, prefix)...))
}

// filterPrefix returns items that start with prefix (case-insensitive).
func filterPrefix(items []string, prefix string) []string {
	if prefix == "" {
		result := make([]string, len(items))
		copy(result, items)
		return result
	}
	lowerPrefix := strings.ToLower(prefix)
	var result []string
	for _, item := range items {
		if strings.HasPrefix(strings.ToLower(item), lowerPrefix) {
			result = append(result, item)
		}
	}
	return result
}

// dedup removes duplicate strings.
func dedup(items []string) []string {
	seen := make(map[string]bool, len(items))
	var result []string
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}

// lastToken returns the last whitespace-separated token, handling commas.
func lastToken(s string) string {
	// Find the last comma or space.
	lastSep := -1
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ' ' || s[i] == ',' || s[i] == '\t' {
			lastSep = i
			break
		}
	}
	if lastSep >= 0 {
		return s[lastSep+1:]
	}
	return s
}
