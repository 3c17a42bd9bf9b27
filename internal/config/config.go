package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ggonzalez94/gud-quote/internal/registry"
)

type GlobalFlags struct {
	ConfigPath string
	EnvFile    string
	JSON       bool
	Plain      bool
	Timeout    string
	Retries    int
	PricingURL string
	RPCURL     string
	LogLevel   string
	LogFormat  string
	NoCache    bool

	EnableCommands string
}

type Settings struct {
	OutputMode     string        `validate:"oneof=json plain"`
	Timeout        time.Duration `validate:"gt=0"`
	Retries        int           `validate:"gte=0,lte=10"`
	PricingBaseURL string        `validate:"required,url"`
	APIKey         string
	RPCURL         string `validate:"omitempty,url"`
	RPCURLs        map[int64]string
	RelayerKey     string
	ChainIDs       []int64       `validate:"min=1,dive,gt=0"`
	SlippageBps    int           `validate:"gte=0,lte=10000"`
	UserAccount    string        `validate:"omitempty,eth_addr"`
	DestReceiver   string        `validate:"omitempty,eth_addr"`
	StatusMaxWait  time.Duration `validate:"gt=0"`
	CacheEnabled   bool
	CachePath      string
	CacheLockPath  string
	CacheRetention time.Duration
	LogLevel       string `validate:"oneof=debug info warn error"`
	LogFormat      string `validate:"oneof=console json"`
	EnableCommands []string
}

type fileConfig struct {
	Output  string `yaml:"output"`
	Timeout string `yaml:"timeout"`
	Retries *int   `yaml:"retries"`
	Pricing struct {
		BaseURL   string `yaml:"base_url"`
		APIKey    string `yaml:"api_key"`
		APIKeyEnv string `yaml:"api_key_env"`
	} `yaml:"pricing"`
	Quote struct {
		SlippageBps  *int   `yaml:"slippage_bps"`
		UserAccount  string `yaml:"user_account"`
		DestReceiver string `yaml:"dest_receiver"`
	} `yaml:"quote"`
	Chains struct {
		RPCURL        string           `yaml:"rpc_url"`
		RPCURLs       map[int64]string `yaml:"rpc_urls"`
		Supported     []int64          `yaml:"supported"`
		RelayerKeyEnv string           `yaml:"relayer_key_env"`
	} `yaml:"chains"`
	Status struct {
		MaxWait string `yaml:"max_wait"`
	} `yaml:"status"`
	Cache struct {
		Enabled   *bool  `yaml:"enabled"`
		Path      string `yaml:"path"`
		LockPath  string `yaml:"lock_path"`
		Retention string `yaml:"retention"`
	} `yaml:"cache"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	EnableCommands []string `yaml:"enable_commands"`
}

var validate = validator.New()

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	if err := loadEnvFile(flags.EnvFile); err != nil {
		return Settings{}, err
	}
	if err := applyEnv(&settings); err != nil {
		return Settings{}, err
	}

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Validate checks field ranges and the pricing endpoint scheme.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if !registry.IsAllowedPricingURL(s.PricingBaseURL) {
		return fmt.Errorf("pricing base url must use https (http is allowed only for localhost): %s", s.PricingBaseURL)
	}
	for chainID, url := range s.RPCURLs {
		if strings.TrimSpace(url) == "" {
			return fmt.Errorf("empty rpc url for chain %d", chainID)
		}
	}
	return nil
}

// RPCURLFor resolves the endpoint for one chain: per-chain override, shared URL,
// then the built-in default.
func (s Settings) RPCURLFor(chainID int64) (string, error) {
	return registry.ResolveRPCURL(s.RPCURLs, s.RPCURL, chainID)
}

func defaultSettings() (Settings, error) {
	cachePath, lockPath, err := defaultCachePaths()
	if err != nil {
		return Settings{}, err
	}
	chainIDs, err := defaultChainIDs()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputMode:     "plain",
		Timeout:        15 * time.Second,
		Retries:        1,
		PricingBaseURL: registry.PricingBaseURL,
		RPCURLs:        map[int64]string{},
		ChainIDs:       chainIDs,
		SlippageBps:    100,
		StatusMaxWait:  60 * time.Second,
		CacheEnabled:   true,
		CachePath:      cachePath,
		CacheLockPath:  lockPath,
		CacheRetention: 30 * 24 * time.Hour,
		LogLevel:       "info",
		LogFormat:      "console",
	}, nil
}

func defaultChainIDs() ([]int64, error) {
	reg, err := registry.Default()
	if err != nil {
		return nil, fmt.Errorf("load token registry: %w", err)
	}
	return reg.ChainIDs(), nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "gudquote", "config.yaml"), nil
}

func defaultCachePaths() (string, string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "gudquote")
	return filepath.Join(dir, "status.db"), filepath.Join(dir, "status.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.Pricing.BaseURL != "" {
		settings.PricingBaseURL = cfg.Pricing.BaseURL
	}
	if cfg.Pricing.APIKey != "" {
		settings.APIKey = cfg.Pricing.APIKey
	}
	if cfg.Pricing.APIKeyEnv != "" {
		settings.APIKey = os.Getenv(cfg.Pricing.APIKeyEnv)
	}
	if cfg.Quote.SlippageBps != nil {
		settings.SlippageBps = *cfg.Quote.SlippageBps
	}
	if cfg.Quote.UserAccount != "" {
		settings.UserAccount = cfg.Quote.UserAccount
	}
	if cfg.Quote.DestReceiver != "" {
		settings.DestReceiver = cfg.Quote.DestReceiver
	}
	if cfg.Chains.RPCURL != "" {
		settings.RPCURL = cfg.Chains.RPCURL
	}
	for chainID, url := range cfg.Chains.RPCURLs {
		settings.RPCURLs[chainID] = url
	}
	if len(cfg.Chains.Supported) > 0 {
		settings.ChainIDs = normalizeChainIDs(cfg.Chains.Supported)
	}
	if cfg.Chains.RelayerKeyEnv != "" {
		settings.RelayerKey = strings.TrimSpace(os.Getenv(cfg.Chains.RelayerKeyEnv))
	}
	if cfg.Status.MaxWait != "" {
		d, err := time.ParseDuration(cfg.Status.MaxWait)
		if err != nil {
			return fmt.Errorf("config status.max_wait: %w", err)
		}
		settings.StatusMaxWait = d
	}
	if cfg.Cache.Enabled != nil {
		settings.CacheEnabled = *cfg.Cache.Enabled
	}
	if cfg.Cache.Path != "" {
		settings.CachePath = cfg.Cache.Path
	}
	if cfg.Cache.LockPath != "" {
		settings.CacheLockPath = cfg.Cache.LockPath
	}
	if cfg.Cache.Retention != "" {
		d, err := time.ParseDuration(cfg.Cache.Retention)
		if err != nil {
			return fmt.Errorf("config cache.retention: %w", err)
		}
		settings.CacheRetention = d
	}
	if cfg.Log.Level != "" {
		settings.LogLevel = strings.ToLower(cfg.Log.Level)
	}
	if cfg.Log.Format != "" {
		settings.LogFormat = strings.ToLower(cfg.Log.Format)
	}
	if len(cfg.EnableCommands) > 0 {
		settings.EnableCommands = cfg.EnableCommands
	}
	return nil
}

// loadEnvFile reads a dotenv file into the process environment without
// overriding variables that are already set. A missing default .env is ignored.
func loadEnvFile(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("read env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func applyEnv(settings *Settings) error {
	if v := os.Getenv("GUD_API_KEY"); v != "" {
		settings.APIKey = v
	}
	if v := os.Getenv("GUD_API_URL"); v != "" {
		settings.PricingBaseURL = v
	}
	if v := os.Getenv("RPC_URL"); v != "" {
		settings.RPCURL = v
	}
	if v := os.Getenv("RELAYER_PRIVATE_KEY"); v != "" {
		settings.RelayerKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("GUDQUOTE_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("GUDQUOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("GUDQUOTE_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("GUDQUOTE_SLIPPAGE_BPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.SlippageBps = n
		}
	}
	if v := os.Getenv("GUDQUOTE_USER_ACCOUNT"); v != "" {
		settings.UserAccount = v
	}
	if v := os.Getenv("GUDQUOTE_DEST_RECEIVER"); v != "" {
		settings.DestReceiver = v
	}
	if v := os.Getenv("GUDQUOTE_CHAINS"); v != "" {
		ids, err := parseChainIDs(v)
		if err != nil {
			return fmt.Errorf("parse GUDQUOTE_CHAINS: %w", err)
		}
		settings.ChainIDs = ids
	}
	if v := os.Getenv("GUDQUOTE_STATUS_MAX_WAIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.StatusMaxWait = d
		}
	}
	if v := os.Getenv("GUDQUOTE_NO_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.CacheEnabled = !b
		}
	}
	if v := os.Getenv("GUDQUOTE_CACHE_PATH"); v != "" {
		settings.CachePath = v
	}
	if v := os.Getenv("GUDQUOTE_CACHE_LOCK_PATH"); v != "" {
		settings.CacheLockPath = v
	}
	if v := os.Getenv("GUDQUOTE_LOG_LEVEL"); v != "" {
		settings.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("GUDQUOTE_LOG_FORMAT"); v != "" {
		settings.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv("GUDQUOTE_ENABLE_COMMANDS"); v != "" {
		settings.EnableCommands = splitCSV(v)
	}
	return nil
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if flags.PricingURL != "" {
		settings.PricingBaseURL = flags.PricingURL
	}
	if flags.RPCURL != "" {
		settings.RPCURL = flags.RPCURL
	}
	if flags.LogLevel != "" {
		settings.LogLevel = strings.ToLower(flags.LogLevel)
	}
	if flags.LogFormat != "" {
		settings.LogFormat = strings.ToLower(flags.LogFormat)
	}
	if flags.NoCache {
		settings.CacheEnabled = false
	}
	if flags.EnableCommands != "" {
		settings.EnableCommands = splitCSV(flags.EnableCommands)
	}
	return nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			items = append(items, p)
		}
	}
	return items
}

func parseChainIDs(input string) ([]int64, error) {
	parts := strings.Split(input, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q", p)
		}
		ids = append(ids, n)
	}
	return normalizeChainIDs(ids), nil
}

func normalizeChainIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
