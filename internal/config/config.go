package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for apkforge.
type Config struct {
	OutputDir string `mapstructure:"output_dir"`
	CacheDir  string `mapstructure:"cache_dir"`
	CacheTTL  string `mapstructure:"cache_ttl"`
	NoCache   bool   `mapstructure:"no_cache"`
	Offline   bool   `mapstructure:"offline"`
	LogLevel  string `mapstructure:"log_level"`

	GitHub   GitHubConfig   `mapstructure:"github"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Signing  SigningConfig  `mapstructure:"signing"`
	Patching PatchingConfig `mapstructure:"patching"`
}

// GitHubConfig holds release-API settings.
type GitHubConfig struct {
	Token string `mapstructure:"token"`
}

// EngineConfig names the release repositories the toolchain is fetched
// from and the JVM options every engine invocation runs with.
type EngineConfig struct {
	CLIRepo       string   `mapstructure:"cli_repo"`
	PatchesRepo   string   `mapstructure:"patches_repo"`
	MergeToolRepo string   `mapstructure:"merge_tool_repo"`
	JavaOpts      []string `mapstructure:"java_opts"`
}

// MirrorConfig holds APK mirror scraping settings.
type MirrorConfig struct {
	BaseURL   string  `mapstructure:"base_url"`
	UserAgent string  `mapstructure:"user_agent"`
	Results   int     `mapstructure:"results"`
	RPS       float64 `mapstructure:"rps"`
}

// SigningConfig holds keystore parameters forwarded to the patch engine.
type SigningConfig struct {
	Keystore         string `mapstructure:"keystore"`
	KeystorePassword string `mapstructure:"keystore_password"`
	KeyAlias         string `mapstructure:"key_alias"`
	KeyPassword      string `mapstructure:"key_password"`
}

// PatchingConfig holds defaults for patch selection.
type PatchingConfig struct {
	Exclusive        bool `mapstructure:"exclusive"`
	IncludeUniversal bool `mapstructure:"include_universal"`
}

// Load reads configuration from file, environment, and defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("output_dir", "output")
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("cache_ttl", "1h")
	v.SetDefault("no_cache", false)
	v.SetDefault("offline", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("engine.cli_repo", "revanced/revanced-cli")
	v.SetDefault("engine.patches_repo", "revanced/revanced-patches")
	v.SetDefault("engine.merge_tool_repo", "REAndroid/APKEditor")
	v.SetDefault("engine.java_opts", []string{
		"-XX:+UseG1GC",
		"-XX:+ParallelRefProcEnabled",
		"-XX:MaxGCPauseMillis=200",
		"-Xmx4G",
		"-Xms512M",
	})
	v.SetDefault("mirror.base_url", "https://www.apkmirror.com")
	v.SetDefault("mirror.user_agent", "Mozilla/5.0 (X11; Linux x86_64; rv:122.0) Gecko/20100101 Firefox/122.0")
	v.SetDefault("mirror.results", 1)
	v.SetDefault("mirror.rps", 0.5)
	v.SetDefault("patching.exclusive", true)
	v.SetDefault("patching.include_universal", false)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/apkforge")
	}

	// Environment variables
	v.SetEnvPrefix("APKFORGE")
	v.AutomaticEnv()

	// Bind specific env vars
	_ = v.BindEnv("github.token", "GITHUB_TOKEN")
	_ = v.BindEnv("signing.keystore", "APKFORGE_KEYSTORE")
	_ = v.BindEnv("signing.keystore_password", "APKFORGE_KEYSTORE_PASSWORD")
	_ = v.BindEnv("signing.key_alias", "APKFORGE_KEY_ALIAS")
	_ = v.BindEnv("signing.key_password", "APKFORGE_KEY_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Resolve output dir to absolute
	if !filepath.IsAbs(cfg.OutputDir) {
		abs, err := filepath.Abs(cfg.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("resolving output dir: %w", err)
		}
		cfg.OutputDir = abs
	}

	return &cfg, nil
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/apkforge-cache"
	}
	return filepath.Join(home, ".cache", "apkforge")
}
