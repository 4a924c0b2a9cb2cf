package app

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cast"

	"pqsig/crypto/pqc/dilithium"
	"pqsig/x/pqc/types"
)

const (
	FlagHome      = "home"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"

	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
	KeyAllowedAlgorithms = "pqc.allowed_algorithms"
	KeyCacheIdentity     = "pqc.cache_identity"
	KeyKeystoreDir       = "keystore.dir"

	LogFormatPlain = "plain"
	LogFormatJSON  = "json"

	ConfigDirName  = "config"
	ConfigFileName = "pqsig.toml"
	EnvPrefix      = "PQSIG"
)

// AppOptions is satisfied by *viper.Viper.
type AppOptions interface {
	Get(string) interface{}
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type PQCConfig struct {
	AllowedAlgorithms []string `mapstructure:"allowed_algorithms"`
	CacheIdentity     string   `mapstructure:"cache_identity"`
}

type KeystoreConfig struct {
	// Dir overrides <home>/pqc_keys. Relative paths resolve against the home directory.
	Dir string `mapstructure:"dir"`
}

// Config is the resolved application configuration.
type Config struct {
	HomeDir  string         `mapstructure:"-"`
	Log      LogConfig      `mapstructure:"log"`
	PQC      PQCConfig      `mapstructure:"pqc"`
	Keystore KeystoreConfig `mapstructure:"keystore"`
}

func DefaultConfig() Config {
	return Config{
		HomeDir: DefaultNodeHome,
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatPlain,
		},
		PQC: PQCConfig{
			AllowedAlgorithms: []string{},
			CacheIdentity:     string(types.DefaultCacheIdentity),
		},
	}
}

// NewConfigFromOptions overlays every option that is set on top of DefaultConfig.
func NewConfigFromOptions(homeDir string, opts AppOptions) (Config, error) {
	cfg := DefaultConfig()
	if homeDir != "" {
		cfg.HomeDir = homeDir
	}
	if opts == nil {
		return cfg, cfg.Validate()
	}

	var err error
	if v := opts.Get(KeyLogLevel); v != nil {
		if cfg.Log.Level, err = cast.ToStringE(v); err != nil {
			return Config{}, ErrInvalidConfig.Wrapf("%s: %v", KeyLogLevel, err)
		}
	}
	if v := opts.Get(KeyLogFormat); v != nil {
		if cfg.Log.Format, err = cast.ToStringE(v); err != nil {
			return Config{}, ErrInvalidConfig.Wrapf("%s: %v", KeyLogFormat, err)
		}
	}
	if v := opts.Get(KeyAllowedAlgorithms); v != nil {
		algs, err := allowedAlgorithms(v)
		if err != nil {
			return Config{}, ErrInvalidConfig.Wrapf("%s: %v", KeyAllowedAlgorithms, err)
		}
		cfg.PQC.AllowedAlgorithms = algs
	}
	if v := opts.Get(KeyCacheIdentity); v != nil {
		if cfg.PQC.CacheIdentity, err = cast.ToStringE(v); err != nil {
			return Config{}, ErrInvalidConfig.Wrapf("%s: %v", KeyCacheIdentity, err)
		}
	}
	if v := opts.Get(KeyKeystoreDir); v != nil {
		if cfg.Keystore.Dir, err = cast.ToStringE(v); err != nil {
			return Config{}, ErrInvalidConfig.Wrapf("%s: %v", KeyKeystoreDir, err)
		}
	}

	cfg.Log.Level = strings.TrimSpace(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.PQC.CacheIdentity = strings.TrimSpace(cfg.PQC.CacheIdentity)
	cfg.Keystore.Dir = strings.TrimSpace(cfg.Keystore.Dir)

	return cfg, cfg.Validate()
}

// allowedAlgorithms accepts a TOML array or a comma separated string, the
// latter being what PQSIG_PQC_ALLOWED_ALGORITHMS yields.
func allowedAlgorithms(v interface{}) ([]string, error) {
	if s, ok := v.(string); ok {
		v = strings.Split(s, ",")
	}
	raw, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, alg := range raw {
		alg = strings.TrimSpace(alg)
		if alg == "" {
			continue
		}
		out = append(out, alg)
	}
	return out, nil
}

func (c Config) Validate() error {
	switch c.Log.Format {
	case LogFormatPlain, LogFormatJSON:
	default:
		return ErrInvalidConfig.Wrapf("unknown log format %q", c.Log.Format)
	}
	if _, err := parseLogLevel(c.Log.Level); err != nil {
		return ErrInvalidConfig.Wrap(err.Error())
	}
	for _, alg := range c.PQC.AllowedAlgorithms {
		if !dilithium.IsSupported(alg) {
			return ErrInvalidConfig.Wrapf("unknown algorithm %q in %s", alg, KeyAllowedAlgorithms)
		}
	}
	if err := c.Params().Validate(); err != nil {
		return ErrInvalidConfig.Wrap(err.Error())
	}
	return nil
}

// Params converts the pqc section into provider factory parameters.
func (c Config) Params() types.Params {
	params := types.DefaultParams()
	if len(c.PQC.AllowedAlgorithms) != 0 {
		params.AllowedAlgorithms = append([]string(nil), c.PQC.AllowedAlgorithms...)
	}
	if c.PQC.CacheIdentity != "" {
		params.CacheIdentity = types.CacheIdentity(c.PQC.CacheIdentity)
	}
	return params
}

// KeystoreDir returns the configured keystore directory, or "" for the default location.
func (c Config) KeystoreDir() string {
	dir := c.Keystore.Dir
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.HomeDir, dir)
}
