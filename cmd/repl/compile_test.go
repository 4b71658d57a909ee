package main

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lookupFile = `
from: users
where: {id: 5}
`

func compile(t *testing.T, cfg config, src string, opts *compileOptions) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := runCompile(&out, &errOut, cfg, []byte(src), opts)
	return out.String(), err
}

func TestRunCompileOutputs(t *testing.T) {
	cfg := config{Engine: "postgres", Separator: " "}
	tests := []struct {
		name string
		opts compileOptions
		want string
	}{
		{"named", compileOptions{}, "SELECT * FROM \"users\" WHERE \"id\"=:qp0;\n-- :qp0 = 5\n"},
		{"raw", compileOptions{raw: true}, "SELECT * FROM \"users\" WHERE \"id\"=5;\n"},
		{"positional", compileOptions{positional: true}, "SELECT * FROM \"users\" WHERE \"id\"=$1;\n-- $1 = 5\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := compile(t, cfg, lookupFile, &tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunCompileDialectOverride(t *testing.T) {
	got, err := compile(t, config{Engine: "postgres"}, "dialect: sqlite\nfrom: users\n", &compileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `users`;\n", got)
}

func TestRunCompileUpsertWithSchema(t *testing.T) {
	src := `
schema:
  user:
    columns: {id: pk, email: varchar(128), name: text}
    unique: [[email]]
upsert:
  table: user
  values: {email: a@example.com, name: A}
`
	got, err := compile(t, config{Engine: "postgres"}, src, &compileOptions{})
	require.NoError(t, err)
	assert.Contains(t, got,
		`INSERT INTO "user" ("email", "name") VALUES (:qp0, :qp1) ON CONFLICT ("email") DO UPDATE SET "name"=EXCLUDED."name";`)
	assert.Contains(t, got, "-- :qp0 = 'a@example.com'\n")
	assert.Contains(t, got, "-- :qp1 = 'A'\n")
}

func TestRunCompileTablePrefix(t *testing.T) {
	got, err := compile(t, config{Engine: "mysql", TablePrefix: "app_"}, "from: '{{%user}}'\n", &compileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `app_user`;\n", got)
}

func TestRunCompileErrors(t *testing.T) {
	_, err := compile(t, config{Engine: "postgres", ServerVersion: "x"}, lookupFile, &compileOptions{})
	require.Error(t, err)

	_, err = compile(t, config{Engine: "postgres"}, "upsert: {table: user, values: {email: a}}\n", &compileOptions{})
	require.Error(t, err)

	_, err = compile(t, config{Engine: "postgres"}, "nothing: here\n", &compileOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown query key "nothing"`)
}

func TestCompileCommand(t *testing.T) {
	cleanEnv(t)
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/q.yaml", []byte(lookupFile), 0o644))

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(fsys, nil, &stdout, &stderr)
	cmd.SetArgs([]string{"compile", "--engine", "mysql", "--raw", "/q.yaml"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "SELECT * FROM `users` WHERE `id`=5;\n", stdout.String())

	cmd = newRootCommand(fsys, nil, &stdout, &stderr)
	cmd.SetArgs([]string{"compile", "/missing.yaml"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read /missing.yaml")
}
