package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr               string   `yaml:"addr"`
		AllowOrigin        string   `yaml:"allow_origin"`
		RequestTimeoutSecs int      `yaml:"request_timeout_seconds"`
		ExtraPrefixes      []string `yaml:"extra_prefixes"`
	} `yaml:"server"`
	Solana struct {
		RPC            string `yaml:"rpc"`
		Treasury       string `yaml:"treasury"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"solana"`
	Payment struct {
		Kind            string  `yaml:"kind"`
		TokenMint       string  `yaml:"token_mint"`
		TokenSymbol     string  `yaml:"token_symbol"`
		TokenTolerance  float64 `yaml:"token_tolerance"`
		NativeTolerance float64 `yaml:"native_tolerance"`
		MaxAgeSeconds   int     `yaml:"max_age_seconds"`
		SeenCapacity    int     `yaml:"seen_capacity"`
		PersistSeen     bool    `yaml:"persist_seen"`
		Prices          struct {
			Basic   string `yaml:"basic"`
			Premium string `yaml:"premium"`
			Upgrade string `yaml:"upgrade"`
		} `yaml:"prices"`
	} `yaml:"payment"`
	Moltbook struct {
		URL             string `yaml:"url"`
		ProfileURL      string `yaml:"profile_url"`
		Community       string `yaml:"community"`
		RegisterOnSpawn bool   `yaml:"register_on_spawn"`
	} `yaml:"moltbook"`
	Search struct {
		SerperURL string `yaml:"serper_url"`
		SerperKey string `yaml:"serper_key"`
		BraveURL  string `yaml:"brave_url"`
		BraveKey  string `yaml:"brave_key"`
	} `yaml:"search"`
	LLM struct {
		Provider        string  `yaml:"provider"`
		Model           string  `yaml:"model"`
		BaseURL         string  `yaml:"base_url"`
		APIKey          string  `yaml:"api_key"`
		Temperature     float64 `yaml:"temperature"`
		MaxOutputTokens int     `yaml:"max_output_tokens"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
	} `yaml:"llm"`
	Store struct {
		Driver string `yaml:"driver"`
		Dir    string `yaml:"dir"`
	} `yaml:"store"`
	Ledger struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"ledger"`
	Admin struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"admin"`
	Agent struct {
		Name       string `yaml:"name"`
		LaunchedAt string `yaml:"launched_at"`
		KeyStore   string `yaml:"key_store"`
	} `yaml:"agent"`
}

func Default(home string) Config {
	cfg := Config{}
	cfg.Server.Addr = ":8888"
	cfg.Server.AllowOrigin = "*"
	cfg.Server.RequestTimeoutSecs = 30
	cfg.Server.ExtraPrefixes = []string{"/.netlify/functions"}
	cfg.Solana.RPC = "https://api.mainnet-beta.solana.com"
	cfg.Solana.Treasury = "FkjfuNd1pvKLPzQWm77WfRy1yNWRhqbBPt9EexuvvmCD"
	cfg.Solana.TimeoutSeconds = 15
	cfg.Payment.Kind = "token"
	cfg.Payment.TokenMint = "7GCxHtUttri1gNdt8Asa8DC72DQbiFNrN43ALjptpump"
	cfg.Payment.TokenSymbol = "$DARKFLOBI"
	cfg.Payment.TokenTolerance = 0.05
	cfg.Payment.NativeTolerance = 0.10
	cfg.Payment.MaxAgeSeconds = 3600
	cfg.Payment.SeenCapacity = 1000
	cfg.Payment.Prices.Basic = "10000"
	cfg.Payment.Prices.Premium = "25000"
	cfg.Payment.Prices.Upgrade = "10000"
	cfg.Moltbook.URL = "https://www.moltbook.com/api/v1"
	cfg.Moltbook.ProfileURL = "https://moltbook.com"
	cfg.Moltbook.Community = "m/tokenizedai"
	cfg.Search.SerperURL = "https://google.serper.dev"
	cfg.Search.BraveURL = "https://api.search.brave.com/res/v1"
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.Model = "claude-sonnet-4-20250514"
	cfg.LLM.MaxOutputTokens = 1024
	cfg.LLM.TimeoutSeconds = 60
	cfg.Store.Driver = "memory"
	cfg.Store.Dir = filepath.Join(home, ".wolfd", "blobs")
	cfg.Ledger.Driver = ""
	cfg.Agent.Name = "darkflobi"
	cfg.Agent.LaunchedAt = "2026-01-25T00:00:00Z"
	cfg.Agent.KeyStore = filepath.Join(home, ".wolfd", "keys")
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	home, _ := os.UserHomeDir()
	cfg := Default(home)
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// ApplyEnv overlays environment variables on cfg. Secrets normally arrive
// this way rather than through the file.
func ApplyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("WOLFD_ADDR", &cfg.Server.Addr)
	str("SOLANA_RPC_URL", &cfg.Solana.RPC)
	str("TREASURY_ADDRESS", &cfg.Solana.Treasury)
	str("PAYMENT_KIND", &cfg.Payment.Kind)
	str("MOLTBOOK_API_BASE", &cfg.Moltbook.URL)
	str("SERPER_API_KEY", &cfg.Search.SerperKey)
	str("BRAVE_API_KEY", &cfg.Search.BraveKey)
	str("LLM_PROVIDER", &cfg.LLM.Provider)
	str("LLM_MODEL", &cfg.LLM.Model)
	str("LLM_BASE_URL", &cfg.LLM.BaseURL)
	str("LLM_API_KEY", &cfg.LLM.APIKey)
	str("STORE_DRIVER", &cfg.Store.Driver)
	str("STORE_DIR", &cfg.Store.Dir)
	str("LEDGER_DRIVER", &cfg.Ledger.Driver)
	str("LEDGER_DSN", &cfg.Ledger.DSN)
	str("ADMIN_JWT_SECRET", &cfg.Admin.JWTSecret)

	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "anthropic":
			str("ANTHROPIC_API_KEY", &cfg.LLM.APIKey)
		case "openai":
			str("OPENAI_API_KEY", &cfg.LLM.APIKey)
		}
	}
	if v := strings.TrimSpace(os.Getenv("OLLAMA_HOST")); v != "" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_TEMPERATURE")); v != "" {
		if value, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.Temperature = value
		}
	}
	if v := strings.TrimSpace(os.Getenv("LLM_MAX_TOKENS")); v != "" {
		if value, err := strconv.Atoi(v); err == nil {
			cfg.LLM.MaxOutputTokens = value
		}
	}
	if v := strings.TrimSpace(os.Getenv("LLM_TIMEOUT_SECONDS")); v != "" {
		if value, err := strconv.Atoi(v); err == nil {
			cfg.LLM.TimeoutSeconds = value
		}
	}
	if v := strings.TrimSpace(os.Getenv("MOLTBOOK_REGISTER_ON_SPAWN")); v != "" {
		if value, err := strconv.ParseBool(v); err == nil {
			cfg.Moltbook.RegisterOnSpawn = value
		}
	}
}
