package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Workbook    WorkbookConfig    `yaml:"workbook" mapstructure:"workbook"`
	Checkpoint  CheckpointConfig  `yaml:"checkpoint" mapstructure:"checkpoint"`
	Perplexity  PerplexityConfig  `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI      OpenAIConfig      `yaml:"openai" mapstructure:"openai"`
	Matrix      MatrixConfig      `yaml:"matrix" mapstructure:"matrix"`
	Probability ProbabilityConfig `yaml:"probability" mapstructure:"probability"`
	Contacts    ContactsConfig    `yaml:"contacts" mapstructure:"contacts"`
	Profiles    ProfilesConfig    `yaml:"profiles" mapstructure:"profiles"`
	Retry       RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// WorkbookConfig locates the xlsx workbook and its sheets.
type WorkbookConfig struct {
	Path          string `yaml:"path" mapstructure:"path"`
	CompanySheet  string `yaml:"company_sheet" mapstructure:"company_sheet"`
	MatrixSheet   string `yaml:"matrix_sheet" mapstructure:"matrix_sheet"`
	ContactsSheet string `yaml:"contacts_sheet" mapstructure:"contacts_sheet"`
	ProfilesSheet string `yaml:"profiles_sheet" mapstructure:"profiles_sheet"`
	LogSheet      string `yaml:"log_sheet" mapstructure:"log_sheet"`
}

// CheckpointConfig configures the resume-cursor store.
type CheckpointConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
	// DiscoveryModel handles the profile discovery prompt.
	DiscoveryModel string `yaml:"discovery_model" mapstructure:"discovery_model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// ScoringModel handles the probability pass; OutreachModel drafts
	// profile emails.
	ScoringModel  string `yaml:"scoring_model" mapstructure:"scoring_model"`
	OutreachModel string `yaml:"outreach_model" mapstructure:"outreach_model"`
}

// MatrixConfig tunes the narrative fill pass.
type MatrixConfig struct {
	PairIntervalMS int `yaml:"pair_interval_ms" mapstructure:"pair_interval_ms"`
	DeadlineEvery  int `yaml:"deadline_every" mapstructure:"deadline_every"`
}

// ProbabilityConfig tunes the scoring pass. StartRow and StartCol set
// where the walk begins when no checkpoint exists; StartCol applies
// only to the starting row, and later rows walk from the first data
// column.
type ProbabilityConfig struct {
	StartRow       int `yaml:"start_row" mapstructure:"start_row"`
	StartCol       int `yaml:"start_col" mapstructure:"start_col"`
	PairIntervalMS int `yaml:"pair_interval_ms" mapstructure:"pair_interval_ms"`
	DeadlineEvery  int `yaml:"deadline_every" mapstructure:"deadline_every"`
}

// ContactsConfig tunes contact enrichment.
type ContactsConfig struct {
	// Product is the offering the outreach pitches.
	Product        string `yaml:"product" mapstructure:"product"`
	RowIntervalMS  int    `yaml:"row_interval_ms" mapstructure:"row_interval_ms"`
	WriterMaxToken int    `yaml:"writer_max_tokens" mapstructure:"writer_max_tokens"`
}

// ProfilesConfig tunes profile enrichment and discovery.
type ProfilesConfig struct {
	Product       string   `yaml:"product" mapstructure:"product"`
	Benefits      []string `yaml:"benefits" mapstructure:"benefits"`
	BatchSize     int      `yaml:"batch_size" mapstructure:"batch_size"`
	SeedCount     int      `yaml:"seed_count" mapstructure:"seed_count"`
	RowIntervalMS int      `yaml:"row_interval_ms" mapstructure:"row_interval_ms"`
}

// RetryConfig tunes the retry wrapper around provider calls.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMS int `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMS  int `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("workbook.path", "outreach.xlsx")
	v.SetDefault("workbook.company_sheet", "List of companies")
	v.SetDefault("workbook.matrix_sheet", "CollaborationMatrix")
	v.SetDefault("workbook.contacts_sheet", "Contacts")
	v.SetDefault("workbook.profiles_sheet", "Profiles")
	v.SetDefault("workbook.log_sheet", "ProcessLog")
	v.SetDefault("checkpoint.path", "outreach.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("perplexity.discovery_model", "llama-3.1-sonar-large-128k-chat")
	v.SetDefault("anthropic.model", "claude-3-5-sonnet-20241022")
	v.SetDefault("anthropic.max_tokens", 8096)
	v.SetDefault("anthropic.temperature", 0.7)
	v.SetDefault("openai.scoring_model", "o3-mini")
	v.SetDefault("openai.outreach_model", "gpt-4o")
	v.SetDefault("matrix.pair_interval_ms", 1000)
	v.SetDefault("matrix.deadline_every", 10)
	v.SetDefault("probability.start_row", 17)
	v.SetDefault("probability.start_col", 17)
	v.SetDefault("probability.pair_interval_ms", 1000)
	v.SetDefault("probability.deadline_every", 10)
	v.SetDefault("contacts.product", "zenloop")
	v.SetDefault("contacts.row_interval_ms", 2000)
	v.SetDefault("contacts.writer_max_tokens", 800)
	v.SetDefault("profiles.product", "Protaige, an AI-driven marketing automation platform")
	v.SetDefault("profiles.benefits", []string{
		"Complete brand voice and story capture/management",
		"Persona creation and management",
		"End-to-end campaign creation (strategy to content)",
	})
	v.SetDefault("profiles.batch_size", 5)
	v.SetDefault("profiles.seed_count", 5)
	v.SetDefault("profiles.row_interval_ms", 2000)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_ms", 2000)
	v.SetDefault("retry.max_delay_ms", 30000)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs before it runs. mode is
// the command name; each mode requires only the provider keys its
// workflows call.
func (c *Config) Validate(mode string) error {
	var problems []string

	requireKey := func(name, value string) {
		if value == "" {
			problems = append(problems, name+" is required")
		}
	}

	if c.Workbook.Path == "" {
		problems = append(problems, "workbook.path is required")
	}

	switch mode {
	case "companies":
		requireKey("perplexity.key", c.Perplexity.Key)
	case "matrix":
		requireKey("anthropic.key", c.Anthropic.Key)
	case "probability":
		requireKey("openai.key", c.OpenAI.Key)
		if c.Probability.StartRow < 2 || c.Probability.StartCol < 2 {
			problems = append(problems, "probability.start_row and start_col must be >= 2")
		}
	case "contacts":
		requireKey("perplexity.key", c.Perplexity.Key)
		requireKey("anthropic.key", c.Anthropic.Key)
	case "profiles":
		requireKey("openai.key", c.OpenAI.Key)
		requireKey("perplexity.key", c.Perplexity.Key)
		if c.Profiles.BatchSize < 1 || c.Profiles.BatchSize > 50 {
			problems = append(problems, "profiles.batch_size must be between 1 and 50")
		}
	case "log":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Retry.MaxAttempts < 1 {
		problems = append(problems, "retry.max_attempts must be >= 1")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
