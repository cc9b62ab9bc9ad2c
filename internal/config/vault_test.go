package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"jobprep/internal/errors"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVault serves KVv2 reads for the given path -> data map.
func fakeVault(t *testing.T, secrets map[string]map[string]any) *VaultClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := secrets[r.URL.Path[len("/v1/"):]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 3},
			},
		})
	}))
	t.Cleanup(srv.Close)

	cfg := api.DefaultConfig()
	cfg.Address = srv.URL
	client, err := api.NewClient(cfg)
	require.NoError(t, err)
	client.SetToken("test-token")
	return newVaultClientFromAPI(client, errors.NewNop())
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    int64
		wantErr bool
	}{
		{name: "int64", input: int64(42), want: 42},
		{name: "float64", input: float64(7), want: 7},
		{name: "string", input: "12", want: 12},
		{name: "json number", input: json.Number("5"), want: 5},
		{name: "bad string", input: "x", wantErr: true},
		{name: "missing", input: nil, wantErr: true},
		{name: "slice", input: []string{"1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVersion(tt.input, "secret/data/x")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeKVv2RejectsKVv1Shape(t *testing.T) {
	_, err := decodeKVv2(&api.Secret{Data: map[string]any{"token": "abc"}}, "secret/x")
	assert.ErrorContains(t, err, "missing 'data' field")

	_, err = decodeKVv2(&api.Secret{Data: map[string]any{"data": map[string]any{}}}, "secret/x")
	assert.ErrorContains(t, err, "missing 'metadata' field")
}

func TestResolveVaultToken(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("  from-file\n"), 0o600))

	token, err := resolveVaultToken(VaultConfig{Token: "inline", TokenFile: tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "inline", token)

	token, err = resolveVaultToken(VaultConfig{TokenFile: tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "from-file", token)

	_, err = resolveVaultToken(VaultConfig{TokenFile: filepath.Join(dir, "missing")})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))

	_, err = resolveVaultToken(VaultConfig{})
	assert.ErrorContains(t, err, "vault token is required")
}

func TestApplySecretsFromVault(t *testing.T) {
	client := fakeVault(t, map[string]map[string]any{
		"secret/data/jobprep/api":    {"token": "backend-token-123456"},
		"secret/data/jobprep/server": {"keys": "k1, k2,,k3"},
	})

	cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{
		APIToken:   "secret/data/jobprep/api",
		ServerKeys: "secret/data/jobprep/server",
	}}}
	require.NoError(t, applySecrets(client, cfg, errors.NewNop()))

	assert.Equal(t, "backend-token-123456", cfg.API.Token)
	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.Server.APIKeys)
}

func TestApplySecretsMissingKey(t *testing.T) {
	client := fakeVault(t, map[string]map[string]any{
		"secret/data/jobprep/api": {"other": "x"},
	})
	cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{APIToken: "secret/data/jobprep/api"}}}

	err := applySecrets(client, cfg, errors.NewNop())
	assert.ErrorContains(t, err, "key 'token' not found")
	assert.Empty(t, cfg.API.Token)
}

func TestGetSecretV2NilClient(t *testing.T) {
	var vc *VaultClient
	_, err := vc.GetSecretV2("secret/data/x")
	assert.EqualError(t, err, "vault client not initialized")
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{API: APIConfig{Token: "keep"}}
	require.NoError(t, ApplyVaultSecrets(cfg, errors.NewNop()))
	assert.Equal(t, "keep", cfg.API.Token)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "abcd****6789", maskSecret("abcdef0123456789"))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "", maskSecret(""))
}
