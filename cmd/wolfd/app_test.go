package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/config"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/keys"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default(t.TempDir())
	cfg.LLM.Provider = ""
	return cfg
}

func TestNewAppServesVerify(t *testing.T) {
	cfg := testConfig(t)
	_, _, err := keys.EnsureKey(keys.DefaultAgentKeyPath(cfg.Agent.KeyStore), cfg.Agent.Name)
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.netlify/functions/verify", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "VERIFIED", doc["status"])
	assert.Contains(t, doc, "attestation_key")
}

func TestNewAppWithLedgerAndBadger(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "badger"
	cfg.Payment.PersistSeen = true
	cfg.Ledger.Driver = "sqlite"
	cfg.Ledger.DSN = t.TempDir() + "/ledger.db"

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()
	assert.Len(t, a.closers, 2)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin-stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewAppRejectsBadConfig(t *testing.T) {
	cases := map[string]func(*config.Config){
		"unknown kind":   func(c *config.Config) { c.Payment.Kind = "nft" },
		"bad mint":       func(c *config.Config) { c.Payment.TokenMint = "not-a-mint" },
		"bad price":      func(c *config.Config) { c.Payment.Prices.Basic = "lots" },
		"zero price":     func(c *config.Config) { c.Payment.Prices.Upgrade = "0" },
		"bad launch":     func(c *config.Config) { c.Agent.LaunchedAt = "yesterday" },
		"unknown store":  func(c *config.Config) { c.Store.Driver = "redis" },
		"unknown ledger": func(c *config.Config) { c.Ledger.Driver = "mysql" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t)
			mutate(&cfg)
			_, err := newApp(context.Background(), cfg)
			assert.Error(t, err)
		})
	}
}

func TestPaymentKind(t *testing.T) {
	cfg := testConfig(t)

	kind, err := paymentKind(cfg)
	require.NoError(t, err)
	assert.False(t, kind.IsNative())
	assert.Equal(t, cfg.Payment.TokenMint, kind.Mint())

	cfg.Payment.Kind = "native"
	kind, err = paymentKind(cfg)
	require.NoError(t, err)
	assert.True(t, kind.IsNative())
	assert.Equal(t, "SOL", kind.Symbol())
}

func TestLoadSignerWithoutKey(t *testing.T) {
	signer, err := loadSigner(testConfig(t))
	require.NoError(t, err)
	assert.Nil(t, signer)
}
