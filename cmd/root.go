package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/ai"
	"github.com/spigell/skill-matcher/internal/ai/gemini"
	"github.com/spigell/skill-matcher/internal/catalog"
	"github.com/spigell/skill-matcher/internal/entity"
	"github.com/spigell/skill-matcher/internal/filtering"
	"github.com/spigell/skill-matcher/internal/logger"
	"github.com/spigell/skill-matcher/internal/secrets"
)

const (
	app = "skill-matcher"

	geminiAPIKeyEnv = "GEMINI_API_KEY"
)

type Config struct {
	Catalog  *CatalogConfig    `mapstructure:"catalog"`
	Matching *MatchingConfig   `mapstructure:"matching"`
	Filters  *filtering.Config `mapstructure:"filters"`
	AI       *AIConfig         `mapstructure:"ai"`
	Server   *ServerConfig     `mapstructure:"server"`
}

type CatalogConfig struct {
	File  string `mapstructure:"file"`
	Watch bool   `mapstructure:"watch"`
}

type MatchingConfig struct {
	MaxCardinality bool          `mapstructure:"max-cardinality"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "skill-matcher pairs applicants with positions by the skills they share",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("catalog.file", "SKILL_MATCHER_CATALOG"); err != nil {
		log.Fatalf("binding SKILL_MATCHER_CATALOG environment variable: %v", err)
	}

	viper.SetDefault("matching.max-cardinality", true)
	viper.SetDefault("matching.timeout", 10*time.Second)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-pro")
	viper.SetDefault("ai.gemini.max-retries", 2)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("server.listen", ":8080")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is skill-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().String("catalog", "", "catalog file with positions and applicants (default is the bundled catalog)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("catalog.file", rootCmd.PersistentFlags().Lookup("catalog"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless given explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	config := &Config{}
	err := viper.Unmarshal(config)
	if err != nil {
		return config, err
	}

	if config.Catalog == nil {
		config.Catalog = &CatalogConfig{}
	}
	if config.Matching == nil {
		config.Matching = &MatchingConfig{}
	}
	if config.Filters == nil {
		config.Filters = &filtering.Config{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}

	return config, nil
}

// setup builds the logger and the config shared by all commands.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func loadCatalog(config *Config, logger *zap.Logger) *catalog.Catalog {
	c, err := catalog.LoadOrDefault(config.Catalog.File)
	if err != nil {
		logger.Fatal("loading catalog", zap.Error(err))
	}

	logger.Debug("catalog loaded",
		zap.String("file", config.Catalog.File),
		zap.Int("positions", len(c.Positions)),
		zap.Int("applicants", len(c.Applicants)),
	)

	return c
}

// filterSide runs the configured filters over one side of a matching run.
func filterSide(ctx context.Context, config *Config, logger *zap.Logger, side entity.Side, items []entity.Entity) ([]entity.Entity, error) {
	steps := filtering.Configured(config.Filters)
	for _, status := range filtering.Describe(steps) {
		if !status.Enabled {
			logger.Debug("filter is disabled", zap.String("name", status.Name), zap.String("reason", status.Reason))
		}
	}

	return filtering.Run(ctx, config.Filters, filtering.Deps{Logger: logger, Side: side}, steps, items)
}

func newSkillExtractor(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.SkillExtractor, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  geminiAPIKeyEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (or set ai.gemini.api-key-file)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model)
	if err != nil {
		return nil, err
	}

	extractorLogger := logger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	return gemini.NewExtractor(generator, extractorLogger, cfg.Gemini.MaxRetries, cfg.Gemini.MaxLogLength), nil
}
