package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/assistant"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/blob"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/chat"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/config"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/httpapi"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/keys"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/ledger"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/llm"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/moltbook"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/payment"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/search"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/solana"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/stats"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/wolf"
)

// app owns everything serve builds from the config.
type app struct {
	handler http.Handler
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn().Err(err).Msg("close failed")
		}
	}
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.Close()
		return nil, err
	}

	kind, err := paymentKind(cfg)
	if err != nil {
		return nil, err
	}
	prices, upgradePrice, err := parsePrices(cfg)
	if err != nil {
		return nil, err
	}
	launchedAt, err := time.Parse(time.RFC3339, cfg.Agent.LaunchedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid agent.launched_at: %w", err)
	}

	store, err := blob.Open(cfg.Store.Driver, cfg.Store.Dir)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	seen := payment.NewSeenSignatures(cfg.Payment.SeenCapacity)
	var signatures payment.SignatureSet = seen
	if cfg.Payment.PersistSeen {
		signatures = payment.NewStoredSignatures(seen, store)
	}
	verifier := newVerifier(cfg, signatures)

	client, err := llm.New(llm.Config{
		Provider:        cfg.LLM.Provider,
		Model:           cfg.LLM.Model,
		BaseURL:         cfg.LLM.BaseURL,
		APIKey:          cfg.LLM.APIKey,
		Temperature:     cfg.LLM.Temperature,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		TimeoutSeconds:  cfg.LLM.TimeoutSeconds,
	})
	if err != nil {
		// The scripted wolves keep working without a model.
		logger.Warn().Err(err).Msg("llm disabled")
		client = nil
	}

	social := moltbook.New(cfg.Moltbook.URL, cfg.Moltbook.ProfileURL)
	searcher := search.New(cfg.Search.SerperURL, cfg.Search.SerperKey, cfg.Search.BraveURL, cfg.Search.BraveKey)

	brain, err := wolf.NewBrain(wolf.Options{
		Search:    searcher,
		Poster:    social,
		LLM:       client,
		Community: cfg.Moltbook.Community,
	})
	if err != nil {
		return fail(err)
	}
	chatSvc, err := chat.New(client, nil)
	if err != nil {
		return fail(err)
	}

	helper := assistant.New(assistant.Options{
		Store:        store,
		Verifier:     verifier,
		UpgradeKind:  kind,
		UpgradePrice: upgradePrice,
	})

	statsLog := stats.NewLog(stats.DefaultLogSize)
	opts := httpapi.Options{
		Verifier:       verifier,
		SpawnKind:      kind,
		Prices:         prices,
		Brain:          brain,
		Searcher:       searcher,
		Chat:           chatSvc,
		Assistant:      helper,
		Stats:          statsLog,
		Events:         statsLog,
		AllowOrigin:    cfg.Server.AllowOrigin,
		Prefixes:       append([]string{"/api"}, cfg.Server.ExtraPrefixes...),
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second,
		Agent: httpapi.Agent{
			Name:        cfg.Agent.Name,
			Wallet:      cfg.Solana.Treasury,
			TokenMint:   cfg.Payment.TokenMint,
			TokenSymbol: cfg.Payment.TokenSymbol,
			LaunchedAt:  launchedAt,
		},
	}
	if cfg.Moltbook.RegisterOnSpawn {
		opts.Registrar = social
	}
	if cfg.Admin.JWTSecret != "" {
		opts.AdminSecret = []byte(cfg.Admin.JWTSecret)
	} else {
		logger.Warn().Msg("admin.jwt_secret not set, admin stats are public")
	}

	if cfg.Ledger.Driver != "" {
		events, err := ledger.Open(ctx, cfg.Ledger.Driver, cfg.Ledger.DSN)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, events.Close)
		opts.Ledger = events
		opts.Events = stats.Multi{statsLog, events}
	}

	signer, err := loadSigner(cfg)
	if err != nil {
		return fail(err)
	}
	opts.Signer = signer

	a.handler = httpapi.New(opts)
	logger.Info().
		Str("payment", kind.String()).
		Str("store", store.Type()).
		Bool("llm", client != nil).
		Int("search_providers", len(searcher)).
		Bool("ledger", opts.Ledger != nil).
		Bool("attest", signer != nil).
		Msg("wolfd ready")
	return a, nil
}

func newVerifier(cfg config.Config, signatures payment.SignatureSet) *payment.Verifier {
	rpc := solana.New(cfg.Solana.RPC, time.Duration(cfg.Solana.TimeoutSeconds)*time.Second)
	return payment.NewVerifier(rpc, signatures, payment.Options{
		Treasury:        cfg.Solana.Treasury,
		NativeTolerance: decimal.NewFromFloat(cfg.Payment.NativeTolerance),
		TokenTolerance:  decimal.NewFromFloat(cfg.Payment.TokenTolerance),
		MaxAge:          time.Duration(cfg.Payment.MaxAgeSeconds) * time.Second,
	})
}

func paymentKind(cfg config.Config) (payment.Kind, error) {
	switch strings.ToLower(cfg.Payment.Kind) {
	case "native", "sol":
		return payment.Native(), nil
	case "", "token":
		if _, err := solana.ParseAddress(cfg.Payment.TokenMint); err != nil {
			return payment.Kind{}, fmt.Errorf("invalid payment.token_mint: %w", err)
		}
		return payment.Token(cfg.Payment.TokenMint, cfg.Payment.TokenSymbol), nil
	default:
		return payment.Kind{}, fmt.Errorf("unknown payment kind: %s", cfg.Payment.Kind)
	}
}

func parsePrices(cfg config.Config) (map[string]decimal.Decimal, decimal.Decimal, error) {
	parse := func(field, v string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("invalid payment.prices.%s %q: %w", field, v, err)
		}
		if !d.IsPositive() {
			return decimal.Decimal{}, fmt.Errorf("payment.prices.%s must be positive", field)
		}
		return d, nil
	}
	basic, err := parse("basic", cfg.Payment.Prices.Basic)
	if err != nil {
		return nil, decimal.Decimal{}, err
	}
	premium, err := parse("premium", cfg.Payment.Prices.Premium)
	if err != nil {
		return nil, decimal.Decimal{}, err
	}
	upgrade, err := parse("upgrade", cfg.Payment.Prices.Upgrade)
	if err != nil {
		return nil, decimal.Decimal{}, err
	}
	return map[string]decimal.Decimal{"basic": basic, "premium": premium}, upgrade, nil
}

// loadSigner returns nil when no agent key exists; spawns are then served
// without attestations.
func loadSigner(cfg config.Config) (*keys.Signer, error) {
	key, err := keys.Load(keys.DefaultAgentKeyPath(cfg.Agent.KeyStore))
	if errors.Is(err, os.ErrNotExist) {
		logger.Info().Msg("no agent key, attestations disabled (run wolfd init)")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return keys.NewSigner(key)
}
