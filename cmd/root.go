package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/in-c0/langtern/internal/ai"
	"github.com/in-c0/langtern/internal/cache"
	"github.com/in-c0/langtern/internal/catalog"
	"github.com/in-c0/langtern/internal/events"
	"github.com/in-c0/langtern/internal/logger"
	"github.com/in-c0/langtern/internal/matching"
)

const (
	app       = "langtern"
	envPrefix = "LANGTERN"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Cache       CacheConfig       `mapstructure:"cache"`
	AI          AIConfig          `mapstructure:"ai"`
	Translation TranslationConfig `mapstructure:"translation"`
	Events      EventsConfig      `mapstructure:"events"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
}

type StorageConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
	DSNFile string `mapstructure:"dsn-file"`
}

type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RedisURL        string        `mapstructure:"redis-url"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshSchedule string        `mapstructure:"refresh-schedule"`
}

type AIConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Provider          string        `mapstructure:"provider"`
	Timeout           time.Duration `mapstructure:"timeout"`
	TopN              int           `mapstructure:"top-n"`
	RequestsPerMinute int           `mapstructure:"requests-per-minute"`
	MaxLogLength      int           `mapstructure:"max-log-length"`
	Gemini            GeminiConfig  `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey      string   `mapstructure:"api-key"`
	APIKeyFile  string   `mapstructure:"api-key-file"`
	Model       string   `mapstructure:"model"`
	Temperature *float32 `mapstructure:"temperature"`
}

type TranslationConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	AutoDetect bool `mapstructure:"auto-detect"`
}

type EventsConfig struct {
	NATSURL string `mapstructure:"nats-url"`
	Subject string `mapstructure:"subject"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "langtern matches students with internship listings and translates their messages",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is langtern.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

// setDefaults registers every key so that LANGTERN_* variables reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read-timeout", 10*time.Second)
	v.SetDefault("server.write-timeout", 30*time.Second)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", app+".db")
	v.SetDefault("storage.dsn-file", "")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.redis-url", "")
	v.SetDefault("cache.ttl", cache.DefaultTTL)
	v.SetDefault("cache.refresh-schedule", catalog.DefaultRefreshSchedule)

	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.timeout", matching.DefaultAITimeout)
	v.SetDefault("ai.top-n", ai.DefaultTopN)
	v.SetDefault("ai.requests-per-minute", 30)
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	// no default: unset keeps the model's own temperature
	v.BindEnv("ai.gemini.temperature")

	v.SetDefault("translation.enabled", true)
	v.SetDefault("translation.auto-detect", true)

	v.SetDefault("events.nats-url", "")
	v.SetDefault("events.subject", events.DefaultSubject)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Without a file the defaults and LANGTERN_* variables are enough.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// bootstrap builds the logger and the decoded config, exiting on failure.
func bootstrap() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	return logger, config
}
