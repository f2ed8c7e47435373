package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Empire.APIKey = "test-key"
	cfg.Supabase.DSN = "postgres://u:p@localhost:5432/db"
	return cfg
}

func TestValidateDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "bogus"
	cfg.Session.BackoffBase = duration{0}
	cfg.Scanner.CoinToUSDFactor = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"unknown mode", "backoff_base", "coin_to_usd_factor"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestValidateTable(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing api key in scan mode",
			mutate:  func(c *Config) { c.Empire.APIKey = "" },
			wantErr: "api_key",
		},
		{
			name: "health mode does not need api key or supabase",
			mutate: func(c *Config) {
				c.Mode = "health"
				c.Empire.APIKey = ""
				c.Supabase = SupabaseConfig{}
			},
		},
		{
			name:    "backoff cap below base",
			mutate:  func(c *Config) { c.Session.BackoffCap = duration{500 * time.Millisecond} },
			wantErr: "backoff_cap",
		},
		{
			name:    "price band inverted",
			mutate:  func(c *Config) { c.Scanner.MaxPriceUSD = c.Scanner.MinPriceUSD },
			wantErr: "max_price_usd",
		},
		{
			name: "supabase host required without dsn",
			mutate: func(c *Config) {
				c.Supabase.DSN = ""
				c.Supabase.Host = ""
			},
			wantErr: "supabase: host",
		},
		{
			name:   "redis optional when addr empty",
			mutate: func(c *Config) { c.Redis = RedisConfig{} },
		},
		{
			name:    "bad server port",
			mutate:  func(c *Config) { c.Server.Port = 99999 },
			wantErr: "server: port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	var d duration
	if err := d.UnmarshalText([]byte("5m")); err != nil {
		t.Fatalf("UnmarshalText error = %v", err)
	}
	if d.Duration != 5*time.Minute {
		t.Errorf("Duration = %v, want 5m", d.Duration)
	}
	if err := d.UnmarshalText([]byte("nonsense")); err == nil {
		t.Error("UnmarshalText accepted nonsense")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Scanner.MinProfitPercent != 5.0 {
		t.Errorf("MinProfitPercent = %v, want 5.0", cfg.Scanner.MinProfitPercent)
	}
	if cfg.Mode != "scan" {
		t.Errorf("Mode = %q, want scan", cfg.Mode)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
mode = "scan"

[empire]
api_key = "from-file"

[scanner]
min_profit_percent = 8.5
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("EMPIRESCAN_EMPIRE_API_KEY", "from-env")
	t.Setenv("EMPIRESCAN_SCANNER_DEDUP_TTL", "90s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Empire.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want env to win", cfg.Empire.APIKey)
	}
	if cfg.Scanner.MinProfitPercent != 8.5 {
		t.Errorf("MinProfitPercent = %v, want file value 8.5", cfg.Scanner.MinProfitPercent)
	}
	if cfg.Scanner.DedupTTL.Duration != 90*time.Second {
		t.Errorf("DedupTTL = %v, want 90s", cfg.Scanner.DedupTTL.Duration)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Empire.APIKey = "secret-key"
	cfg.Redis.Password = "hunter2"
	cfg.Notify.DiscordWebhookURL = "https://discord.test/hook"

	red := RedactedConfig(&cfg)
	if red.Empire.APIKey == "secret-key" {
		t.Error("api key not redacted")
	}
	if red.Redis.Password == "hunter2" {
		t.Error("redis password not redacted")
	}
	if red.Notify.DiscordWebhookURL == cfg.Notify.DiscordWebhookURL {
		t.Error("webhook url not redacted")
	}
	// Original untouched.
	if cfg.Empire.APIKey != "secret-key" {
		t.Error("original mutated")
	}
}
