package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Env        string `mapstructure:"env"`
	Kalshi     KalshiConfig
	Polymarket PolymarketConfig
	Stream     StreamConfig
}

// KalshiConfig holds Kalshi endpoint and credential settings. APIKey and
// PrivateKeyPath are optional: without them the client runs
// unauthenticated and coarse-identifier resolution is unavailable.
type KalshiConfig struct {
	RESTBaseURL    string `mapstructure:"rest_base_url"`
	WSURL          string `mapstructure:"ws_url"`
	APIKey         string `mapstructure:"api_key"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
}

// HasCredentials reports whether authenticated Kalshi calls are possible.
func (k KalshiConfig) HasCredentials() bool {
	return k.APIKey != "" && k.PrivateKeyPath != ""
}

// PolymarketConfig holds Polymarket endpoint settings. Both the Gamma
// REST API and the CLOB market feed are public.
type PolymarketConfig struct {
	GammaBaseURL string `mapstructure:"gamma_base_url"`
	ClobWSURL    string `mapstructure:"clob_ws_url"`
}

// StreamConfig holds multiplexer tunables.
type StreamConfig struct {
	ResolveTimeoutSec int `mapstructure:"resolve_timeout_sec"`
	EventBuffer       int `mapstructure:"event_buffer"`
}

// ResolveTimeout returns the resolver REST call timeout as a Duration.
func (s StreamConfig) ResolveTimeout() time.Duration {
	return time.Duration(s.ResolveTimeoutSec) * time.Second
}

// Load reads configuration from environment variables prefixed with DV_.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("env", "development")

	// Kalshi defaults
	v.SetDefault("kalshi.rest_base_url", "https://api.elections.kalshi.com/trade-api/v2")
	v.SetDefault("kalshi.ws_url", "wss://api.elections.kalshi.com/trade-api/ws/v2")
	v.SetDefault("kalshi.api_key", "")
	v.SetDefault("kalshi.private_key_path", "")

	// Polymarket defaults
	v.SetDefault("polymarket.gamma_base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("polymarket.clob_ws_url", "wss://ws-subscriptions-clob.polymarket.com/ws/market")

	// Stream defaults
	v.SetDefault("stream.resolve_timeout_sec", 10)
	v.SetDefault("stream.event_buffer", 1024)

	cfg := &Config{}

	cfg.Env = v.GetString("env")

	cfg.Kalshi = KalshiConfig{
		RESTBaseURL:    v.GetString("kalshi.rest_base_url"),
		WSURL:          v.GetString("kalshi.ws_url"),
		APIKey:         v.GetString("kalshi.api_key"),
		PrivateKeyPath: v.GetString("kalshi.private_key_path"),
	}

	cfg.Polymarket = PolymarketConfig{
		GammaBaseURL: v.GetString("polymarket.gamma_base_url"),
		ClobWSURL:    v.GetString("polymarket.clob_ws_url"),
	}

	cfg.Stream = StreamConfig{
		ResolveTimeoutSec: v.GetInt("stream.resolve_timeout_sec"),
		EventBuffer:       v.GetInt("stream.event_buffer"),
	}

	return cfg, nil
}
