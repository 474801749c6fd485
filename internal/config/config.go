package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone       = "UTC"
	defaultSourceTimezone = "Asia/Shanghai"
	configPathEnv         = "ARTICLE_ENRICHER_CONFIG"
	databaseDriverEnv     = "DATABASE_DRIVER"
	databaseDSNEnv        = "DATABASE_DSN"
	llmAPIKeyEnv          = "LLM_API_KEY"
	llmModelEnv           = "LLM_MODEL"
	speechAPIKeyEnv       = "SPEECH_API_KEY"
	telegramTokenEnv      = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv     = "TELEGRAM_CHAT_ID"
	audioDirEnv           = "AUDIO_DIR"
	logLevelEnv           = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Source        SourceConfig       `yaml:"source"`
	Enrichment    EnrichmentConfig   `yaml:"enrichment"`
	LLM           LLMConfig          `yaml:"llm"`
	Speech        SpeechConfig       `yaml:"speech"`
	Storage       StorageConfig      `yaml:"storage"`
	HTTP          HTTPConfig         `yaml:"http"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// DatabaseConfig selects the SQL driver and its connection string.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// SourceConfig describes the listing and detail endpoints of the article source.
type SourceConfig struct {
	ListURL           string         `yaml:"listUrl"`
	DetailURL         string         `yaml:"detailUrl"`
	SourceRefTemplate string         `yaml:"sourceRefTemplate"`
	PageSize          int            `yaml:"pageSize"`
	MaxPages          int            `yaml:"maxPages"`
	RetentionDays     int            `yaml:"retentionDays"`
	Timezone          string         `yaml:"timezone"`
	UserAgent         string         `yaml:"userAgent"`
	PagePacing        Duration       `yaml:"pagePacing"`
	ItemPacing        Duration       `yaml:"itemPacing"`
	location          *time.Location `yaml:"-"`
}

// Location is the timezone the source publishes dates in.
func (s SourceConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.FixedZone("CST", 8*3600)
}

// EnrichmentConfig tunes the retry policy and batching of enrichment calls.
type EnrichmentConfig struct {
	RetryAttempts       int      `yaml:"retryAttempts"`
	InitialDelay        Duration `yaml:"initialDelay"`
	BackoffFactor       float64  `yaml:"backoffFactor"`
	CallPacing          Duration `yaml:"callPacing"`
	BatchPacing         Duration `yaml:"batchPacing"`
	VocabularyBatchSize int      `yaml:"vocabularyBatchSize"`
	// SkipClassification disables the language model fallback for articles
	// whose source grade is unknown.
	SkipClassification bool `yaml:"skipClassification"`
}

// LLMConfig defines how to contact the chat completions API.
type LLMConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Model    string   `yaml:"model"`
	APIKey   string   `yaml:"apiKey"`
	Timeout  Duration `yaml:"timeout"`
}

// SpeechConfig describes the speech synthesis service.
type SpeechConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Model    string   `yaml:"model"`
	Voice    string   `yaml:"voice"`
	APIKey   string   `yaml:"apiKey"`
	Timeout  Duration `yaml:"timeout"`
}

// StorageConfig points at the on-disk audio artifact tree.
type StorageConfig struct {
	AudioDir string `yaml:"audioDir"`
}

// HTTPConfig configures the audio serving adapter.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both the token and the chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration accepts Go duration strings ("500ms", "2s") in YAML.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Load reads .env and YAML configuration (if present) and applies environment
// overrides. An explicit path wins over ARTICLE_ENRICHER_CONFIG.
func Load(path string) Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezones()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(speechAPIKeyEnv); v != "" {
		c.Speech.APIKey = v
	}

	if v := os.Getenv(audioDirEnv); v != "" {
		c.Storage.AudioDir = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezones() {
	c.Scheduler.location = loadLocation(c.Scheduler.Timezone, defaultTimezone)
	c.Source.location = loadLocation(c.Source.Timezone, defaultSourceTimezone)
}

func loadLocation(name, fallback string) *time.Location {
	if name == "" {
		name = fallback
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	log.Printf("config: unknown timezone %s, reverting to %s", name, fallback)
	if loc, err = time.LoadLocation(fallback); err == nil {
		return loc
	}
	return time.UTC
}

func mergeConfig(base, override Config) Config {
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	base.Source = mergeSource(base.Source, override.Source)
	base.Enrichment = mergeEnrichment(base.Enrichment, override.Enrichment)

	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.Timeout > 0 {
		base.LLM.Timeout = override.LLM.Timeout
	}

	if override.Speech.Endpoint != "" {
		base.Speech.Endpoint = override.Speech.Endpoint
	}
	if override.Speech.Model != "" {
		base.Speech.Model = override.Speech.Model
	}
	if override.Speech.Voice != "" {
		base.Speech.Voice = override.Speech.Voice
	}
	if override.Speech.APIKey != "" {
		base.Speech.APIKey = override.Speech.APIKey
	}
	if override.Speech.Timeout > 0 {
		base.Speech.Timeout = override.Speech.Timeout
	}

	if override.Storage.AudioDir != "" {
		base.Storage.AudioDir = override.Storage.AudioDir
	}
	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	return base
}

func mergeSource(base, override SourceConfig) SourceConfig {
	if override.ListURL != "" {
		base.ListURL = override.ListURL
	}
	if override.DetailURL != "" {
		base.DetailURL = override.DetailURL
	}
	if override.SourceRefTemplate != "" {
		base.SourceRefTemplate = override.SourceRefTemplate
	}
	if override.PageSize > 0 {
		base.PageSize = override.PageSize
	}
	if override.MaxPages > 0 {
		base.MaxPages = override.MaxPages
	}
	if override.RetentionDays > 0 {
		base.RetentionDays = override.RetentionDays
	}
	if override.Timezone != "" {
		base.Timezone = override.Timezone
	}
	if override.UserAgent != "" {
		base.UserAgent = override.UserAgent
	}
	if override.PagePacing > 0 {
		base.PagePacing = override.PagePacing
	}
	if override.ItemPacing > 0 {
		base.ItemPacing = override.ItemPacing
	}
	return base
}

func mergeEnrichment(base, override EnrichmentConfig) EnrichmentConfig {
	if override.RetryAttempts > 0 {
		base.RetryAttempts = override.RetryAttempts
	}
	if override.InitialDelay > 0 {
		base.InitialDelay = override.InitialDelay
	}
	if override.BackoffFactor > 0 {
		base.BackoffFactor = override.BackoffFactor
	}
	if override.CallPacing > 0 {
		base.CallPacing = override.CallPacing
	}
	if override.BatchPacing > 0 {
		base.BatchPacing = override.BatchPacing
	}
	if override.VocabularyBatchSize > 0 {
		base.VocabularyBatchSize = override.VocabularyBatchSize
	}
	if override.SkipClassification {
		base.SkipClassification = true
	}
	return base
}

// Default returns the built-in configuration with timezones bound.
func Default() Config {
	cfg := defaultConfig()
	cfg.bindTimezones()
	return cfg
}

func defaultConfig() Config {
	return Config{
		Database:  DatabaseConfig{Driver: "sqlite", DSN: "data/articles.db"},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone},
		Source: SourceConfig{
			ListURL:           "https://apiv3.shanbay.com/news/retrieve/articles",
			DetailURL:         "https://apiv3.shanbay.com/news/articles",
			SourceRefTemplate: "https://web.shanbay.com/reading/web-news/articles/%s",
			PageSize:          10,
			MaxPages:          5,
			RetentionDays:     2,
			Timezone:          defaultSourceTimezone,
			UserAgent:         "ArticleEnricher/1.0 (+https://github.com/articleenricher)",
			PagePacing:        Duration(time.Second),
			ItemPacing:        Duration(time.Second),
		},
		Enrichment: EnrichmentConfig{
			RetryAttempts:       3,
			InitialDelay:        Duration(2 * time.Second),
			BackoffFactor:       2,
			CallPacing:          Duration(500 * time.Millisecond),
			BatchPacing:         Duration(time.Second),
			VocabularyBatchSize: 20,
		},
		LLM: LLMConfig{
			Endpoint: "https://api.deepseek.com/chat/completions",
			Model:    "deepseek-chat",
			Timeout:  Duration(90 * time.Second),
		},
		Speech: SpeechConfig{
			Endpoint: "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation",
			Model:    "qwen-tts",
			Voice:    "Cherry",
			Timeout:  Duration(60 * time.Second),
		},
		Storage: StorageConfig{AudioDir: "static/audio"},
		HTTP:    HTTPConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
