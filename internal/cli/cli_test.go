package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookstack/internal/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/vol1":
			_, _ = w.Write([]byte(`{"id":"vol1","volumeInfo":{"title":"Dune","authors":["Frank Herbert"]}}`))
		case r.URL.Path == "/" && strings.HasPrefix(r.URL.Query().Get("q"), "isbn:"):
			_, _ = w.Write([]byte(`{"totalItems":0}`))
		case r.URL.Path == "/":
			_, _ = w.Write([]byte(`{"totalItems":1,"items":[{"id":"vol1","volumeInfo":{"title":"Dune","authors":["Frank Herbert"]}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("DATABASE_LOG_LEVEL", "silent")
	t.Setenv("GOOGLE_BOOKS_BASE_URL", srv.URL)
	t.Setenv("TASKS_ENABLED", "false")
	return srv
}

func TestMigrateCommand(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema is up to date")
}

func TestImportCommand(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "import", "vol1")
	require.NoError(t, err)
	assert.Equal(t, "Imported #1 \"Dune\" by Frank Herbert\n", out)

	_, err = execute(t, "import", "vol1")
	assert.ErrorContains(t, err, "conflict")

	_, err = execute(t, "import", "missing")
	assert.ErrorContains(t, err, "not found")

	_, err = execute(t, "import")
	assert.Error(t, err)
}

func TestImportCommand_JSON(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "import", "--json", "vol1")
	require.NoError(t, err)
	assert.Contains(t, out, `"googleBooksId": "vol1"`)
}

func TestSearchCommand(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "search", "dune", "--max", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "vol1")
	assert.Contains(t, out, "Dune (Frank Herbert)")

	out, err = execute(t, "search", "--isbn", "9780441013593")
	require.NoError(t, err)
	assert.Contains(t, out, "No volumes found")
}

func TestTokenCommand(t *testing.T) {
	out, err := execute(t, "token", "--cost", "4")
	require.NoError(t, err)

	var token, hash string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if v, ok := strings.CutPrefix(line, "Token (shown once): "); ok {
			token = v
		}
		if v, ok := strings.CutPrefix(line, "AUTH_TOKEN_HASH="); ok {
			hash = v
		}
	}
	require.NotEmpty(t, token)
	require.NotEmpty(t, hash)
	assert.NoError(t, auth.CheckToken(token, hash))
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "frobnicate")
	assert.Error(t, err)
}
