package main

import (
	"context"
	"sort"
	"testing"
)

func newTestCompleter(t *testing.T, tables ...string) *replCompleter {
	t.Helper()
	sess, err := NewSession(context.Background(), config{Engine: "postgres"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	sess.out = discardWriter{}
	for _, name := range tables {
		if err := sess.Execute("table " + name + " {columns: {id: pk, name: text}}"); err != nil {
			t.Fatal(err)
		}
	}
	return &replCompleter{sess: sess}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

// --- Command completion ---

func TestCompleteCommandsEmpty(t *testing.T) {
	t.Parallel()
	c := newTestCompleter(t)
	candidates := c.completeCommands("")
	names := c.sess.commandNames()
	if len(candidates) != len(names) {
		t.Errorf("expected %d commands, got %d", len(names), len(candidates))
	}
}

func TestCompleteCommandsPrefix(t *testing.T) {
	t.Parallel()
	c := newTestCompleter(t)
	candidates := c.completeCommands("sel")
	if len(candidates) != 1 || candidates[0] != "select" {
		t.Errorf("expected [select], got %v", candidates)
	}
}

func TestCompleteCommandsMultiMatch(t *testing.T) {
	t.Parallel()
	c := newTestCompleter(t)
	candidates := c.completeCommands("s")
	for _, want := range []string{"select", "separator", "sql", "status", "stmt"} {
		if !contains(candidates, want) {
			t.Errorf("expected %q in candidates: %v", want, candidates)
		}
	}
}

func TestCommandNamesHideAliases(t *testing.T) {
	t.Parallel()
	c := newTestCompleter(t)
	names := c.sess.commandNames()
	for _, hidden := range []string{"engine", "inner join", "and where"} {
		if contains(names, hidden) {
			t.Errorf("hidden command %q listed: %v", hidden, names)
		}
	}
	for _, want := range []string{"exit", "quit", "left join", "union all", "with recursive"} {
		if !contains(names, want) {
			t.Errorf("expected %q in names: %v", want, names)
		}
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("names not sorted: %v", names)
	}
}

// --- Table name completion ---

func TestCompleteTableNames(t *testing.T) {
	t.Parallel()
	c := newTestCompleter(t, "users", "posts", "comments")
	candidates := c.completeTableNames("u")
	if len(candidates) != 1 || candidates[0] != "users" {
		t.Errorf("expected [users], got %v", candidates)
	}
	all := c.completeTableNames("")
	if len(all) != 3 {
		t.Errorf("expected 3 tables, got %v", all)
	}
}

func TestCompleteTableNamesNoMatch(t *testing.T) {
	t.Parallel()
	c := newTestCompleter(t, "users")
	if got := c.completeTableNames("x"); len(got) != 0 {
		t.Errorf("expected no candidates, got %v", got)
	}
}

// --- Column ref completion ---

func TestCompleteColumnRefWithDot(t *testing.T) {
	t.Parallel()
	c := newTestCompleter(t, "users")
	candidates := c.completeColumnRef("users.")
	want := []string{"users.*", "users.id", "users.name"}
	if len(candidates) != len(want) {
		t.Fatalf("expected %v, got %v", want, candidates)
	}
	for i := range want {
		if candidates[i] != want[i] {
			t.Errorf("candidate %d: expected %q, got %q", i, want[i], candidates[i])
		}
	}
	if got := c.completeColumnRef("users.n"); len(got) != 1 || got[0] != "users.name" {
		t.Errorf("expected [users.name], got %v", got)
	}
}

func TestCompleteColumnRefUnknownTable(t *testing.T) {
	t.Parallel()
	c := newTestCompleter(t)
	got := c.completeColumnRef("ghost.")
	if len(got) != 1 || got[0] != "ghost.*" {
		t.Errorf("expected [ghost.*], got %v", got)
	}
}

func TestCompleteColumnRefTablesAndFunctions(t *testing.T) {
	t.Parallel()
	c := newTestCompleter(t, "counters")
	got := c.completeColumnRef("co")
	for _, want := range []string{"counters", "COALESCE(", "CONCAT(", "COUNT("} {
		if !contains(got, want) {
			t.Errorf("expected %q in candidates: %v", want, got)
		}
	}
}

// --- Context detection ---

func TestParseContext(t *testing.T) {
	t.Parallel()
	c := newTestCompleter(t, "users")
	tests := []struct {
		line   string
		ctx    completionContext
		prefix string
	}{
		{"", contextCommand, ""},
		{"sel", contextCommand, "sel"},
		{"from us", contextTableName, "us"},
		{"FROM us", contextTableName, "us"},
		{"select users.", contextColumnRef, "users."},
		{"select id, na", contextColumnRef, "na"},
		{"where users.id ", contextOperator, ""},
		{"order by id ", contextOrderDir, ""},
		{"order by id de", contextOrderDir, "de"},
		{"order by id, ", contextColumnRef, ""},
		{"left join po", contextTableName, "po"},
		{"join posts p on p.", contextColumnRef, "p."},
		{"dialect my", contextEngine, "my"},
		{"plugin so", contextPlugin, "so"},
		{"plugin off so", contextPluginOff, "so"},
		{"stmt up", contextStatement, "up"},
		{"exec ", contextStatement, ""},
		{"stmt insert {", contextCommand, ""},
		{"describe u", contextTableName, "u"},
	}
	for _, tt := range tests {
		ctx, prefix := c.parseContext(tt.line)
		if ctx != tt.ctx || prefix != tt.prefix {
			t.Errorf("parseContext(%q) = (%d, %q), want (%d, %q)", tt.line, ctx, prefix, tt.ctx, tt.prefix)
		}
	}
}

// --- Do ---

func TestDoAppendsSuffixes(t *testing.T) {
	t.Parallel()
	c := newTestCompleter(t, "users")
	line := []rune("from us")
	newLine, length := c.Do(line, len(line))
	if length != 2 {
		t.Errorf("expected length 2, got %d", length)
	}
	if len(newLine) != 1 || string(newLine[0]) != "ers " {
		t.Errorf("expected [\"ers \"], got %q", newLine)
	}
}

func TestDoStatementKinds(t *testing.T) {
	t.Parallel()
	c := newTestCompleter(t)
	line := []rune("stmt batch")
	newLine, _ := c.Do(line, len(line))
	if len(newLine) != 1 || string(newLine[0]) != "_insert " {
		t.Errorf("expected [\"_insert \"], got %q", newLine)
	}
}

func TestDoPluginOffListsEnabled(t *testing.T) {
	t.Parallel()
	c := newTestCompleter(t)
	line := []rune("plugin off ")
	if newLine, _ := c.Do(line, len(line)); len(newLine) != 0 {
		t.Errorf("expected no enabled plugins, got %q", newLine)
	}
	if err := c.sess.Execute("plugin softdelete"); err != nil {
		t.Fatal(err)
	}
	newLine, _ := c.Do(line, len(line))
	if len(newLine) != 1 || string(newLine[0]) != "softdelete " {
		t.Errorf("expected [\"softdelete \"], got %q", newLine)
	}
}

// --- Helpers ---

func TestFilterPrefix(t *testing.T) {
	t.Parallel()
	items := []string{"Alpha", "alps", "beta"}
	if got := filterPrefix(items, "AL"); len(got) != 2 {
		t.Errorf("expected 2 matches, got %v", got)
	}
	got := filterPrefix(items, "")
	got[0] = "changed"
	if items[0] != "Alpha" {
		t.Error("filterPrefix with empty prefix must copy")
	}
}

func TestDedup(t *testing.T) {
	t.Parallel()
	got := dedup([]string{"a", "b", "a", "c", "b"})
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("expected [a b c], got %v", got)
	}
}

func TestLastToken(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"id, na":    "na",
		"id,na":     "na",
		"users.id ": "",
		"single":    "single",
	}
	for in, want := range tests {
		if got := lastToken(in); got != want {
			t.Errorf("lastToken(%q) = %q, want %q", in, got, want)
		}
	}
}
