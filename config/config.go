// Package config loads the sidecar's chain and server profile: the
// `sidecar` section of a config.yaml found through the environment or
// the working directory, with defaults for everything but the node
// endpoint.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Section is the root key of the sidecar's settings inside the config
// file, so the file can be shared with other tools.
const Section = "sidecar"

// ConfigEnv points at the config file directly. HomeEnv overrides the
// fallback search directory, ~/.sidecar otherwise.
const ConfigEnv = "SIDECAR_CONFIG"
const HomeEnv = "SIDECAR_HOME"

type Config struct {
	// Rpc is the node endpoint, ws:// or http(s)://.
	Rpc string `yaml:"rpc,omitempty" validate:"required,url"`
	// Auth optionally references a secret (env:NAME, file:PATH,
	// raw:VALUE) whose value is appended to the endpoint as the apikey
	// query parameter.
	Auth Secret `yaml:"auth,omitempty"`
	// Chain names the chain in logs and the one-shot output.
	Chain string `yaml:"chain,omitempty"`
	// AddressPrefix is the chain's SS58 prefix. 42 is the generic
	// substrate prefix; polkadot itself is 0.
	AddressPrefix uint16 `yaml:"address_prefix"`
	// Decimals of the native token. When set, the block command prints
	// fees in human units next to the plancks.
	Decimals int32 `yaml:"decimals,omitempty"`
	// Finalizes is false for chains without deterministic finality.
	// Their blocks carry no finalized tag and "head" means best block.
	Finalizes bool `yaml:"finalizes"`
	// QueryFinalizedHead re-resolves chain_getFinalizedHead on every
	// finality check instead of serving the cached head.
	QueryFinalizedHead bool `yaml:"query_finalized_head,omitempty"`
	// SubscribeFinalized keeps a finalized-heads subscription open to
	// refresh the cached head.
	SubscribeFinalized bool `yaml:"subscribe_finalized,omitempty"`
	// Listen is the address the HTTP server binds.
	Listen string `yaml:"listen,omitempty" validate:"required,hostname_port"`

	LogLevel  string `yaml:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn error"`
	LogFormat string `yaml:"log_format,omitempty" validate:"omitempty,oneof=json text color-text"`
}

func DefaultConfig() Config {
	return Config{
		Rpc:           "ws://127.0.0.1:9944",
		Chain:         "substrate",
		AddressPrefix: 42,
		Finalizes:     true,
		Listen:        "127.0.0.1:8080",
		LogLevel:      "info",
		LogFormat:     "color-text",
	}
}

// Load reads the sidecar section of the config file over the defaults
// and validates the result. A missing file is not an error: the
// defaults describe a local development node.
func Load() (Config, error) {
	cfg := DefaultConfig()
	v := getViper()
	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return cfg, fmt.Errorf("could not read config file: %w", err)
		}
		return cfg, cfg.Validate()
	}
	// viper cannot deserialize one subsection on its own, so the
	// section round-trips through yaml. Unmarshaling over the defaulted
	// struct leaves absent keys alone, which keeps explicit zero values
	// (address_prefix: 0, finalizes: false) distinct from unset ones.
	bz, err := yaml.Marshal(v.GetStringMap(Section))
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(bz, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse %s config: %w", Section, err)
	}
	return cfg, cfg.Validate()
}

func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid %s config: %w", Section, err)
	}
	return nil
}

// Endpoint renders the node URL with the auth secret applied when one
// is configured.
func (cfg *Config) Endpoint() (string, error) {
	if cfg.Auth == "" {
		return cfg.Rpc, nil
	}
	token, err := cfg.Auth.LoadNonEmpty()
	if err != nil {
		return "", fmt.Errorf("could not load rpc auth secret: %v", err)
	}
	endpoint, err := url.Parse(cfg.Rpc)
	if err != nil {
		return "", fmt.Errorf("invalid rpc url: %v", err)
	}
	query := endpoint.Query()
	query.Set("apikey", token)
	endpoint.RawQuery = query.Encode()
	return endpoint.String(), nil
}

func getViper() *viper.Viper {
	// new viper instance to avoid conflicts with embedding programs
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path := os.Getenv(ConfigEnv); path != "" {
		v.SetConfigFile(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath(homeDir())
	return v
}

func homeDir() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(userHome, ".sidecar")
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	// a ConfigEnv path that does not exist surfaces as a plain
	// *fs.PathError instead
	return strings.Contains(strings.ToLower(err.Error()), "no such file")
}
