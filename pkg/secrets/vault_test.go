package secrets

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vaultServer(t *testing.T, path, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "root", r.Header.Get("X-Vault-Token"))
		if r.URL.Path != path {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"errors":[]}`)
			return
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetch_KVv2(t *testing.T) {
	server := vaultServer(t, "/v1/secret/data/console",
		`{"data":{"data":{"CLINIC_API_TOKEN":"tok","DB_PORT":5433,"REDIS_ENABLED":true,"EMPTY":null}}}`)

	data, err := Fetch(context.Background(), VaultConfig{
		Addr: server.URL, Token: "root", Mount: "secret", Path: "console", KVVersion: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"CLINIC_API_TOKEN": "tok",
		"DB_PORT":          "5433",
		"REDIS_ENABLED":    "true",
		"EMPTY":            "",
	}, data)
}

func TestFetch_KVv1(t *testing.T) {
	server := vaultServer(t, "/v1/kv/console", `{"data":{"DB_PASSWORD":"pw"}}`)

	data, err := Fetch(context.Background(), VaultConfig{
		Addr: server.URL + "/", Token: "root", Mount: "/kv/", Path: "/console", KVVersion: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "pw", data["DB_PASSWORD"])
}

func TestFetch_Errors(t *testing.T) {
	server := vaultServer(t, "/v1/secret/data/console", `{"data":{}}`)

	_, err := Fetch(context.Background(), VaultConfig{Addr: server.URL, Token: "root"})
	assert.ErrorContains(t, err, "incomplete")

	_, err = Fetch(context.Background(), VaultConfig{Addr: server.URL, Token: "root", Mount: "secret", Path: "missing"})
	assert.ErrorContains(t, err, "404")

	_, err = Fetch(context.Background(), VaultConfig{Addr: server.URL, Token: "root", Mount: "secret", Path: "console"})
	assert.ErrorContains(t, err, "missing data for KV v2")
}

func TestApply(t *testing.T) {
	server := vaultServer(t, "/v1/secret/data/console",
		`{"data":{"data":{"CLINIC_API_TOKEN":"from-vault","DB_PASSWORD":"pw"}}}`)

	t.Setenv("CLINIC_API_TOKEN", "from-env")
	t.Setenv("DB_PASSWORD", "")

	result, err := Apply(context.Background(), VaultConfig{
		Enabled: true, Addr: server.URL, Token: "root", Mount: "secret", Path: "console", KVVersion: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Loaded)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "from-env", os.Getenv("CLINIC_API_TOKEN"))
	assert.Equal(t, "pw", os.Getenv("DB_PASSWORD"))
}

func TestApply_Disabled(t *testing.T) {
	result, err := Apply(context.Background(), VaultConfig{})
	require.NoError(t, err)
	assert.False(t, result.Enabled)
}
