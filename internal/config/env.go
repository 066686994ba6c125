package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// SorterConfig exposes the layout heuristics as tunables. Defaults match
// the golden regression corpus.
type SorterConfig struct {
	LeftEdgeTolRatio float64
	ColumnGapRatio   float64
	OrphanGapRatio   float64
	AnchorYTol       float64
	HighConsistency  float64
	LowAdjacency     float64
	HighAdjacency    float64
	MinAnchors       int
}

// DetectorConfig points at the layout-detection inference service.
type DetectorConfig struct {
	URL     string
	Timeout time.Duration
}

// OCRConfig points at the OCR service.
type OCRConfig struct {
	URL     string
	Timeout time.Duration
}

// ProviderModels defines the model triplet for a vision provider.
type ProviderModels struct {
	Primary   string
	Secondary string
	Fast      string
}

// ProvidersConfig defines engines and models for visual descriptions.
type ProvidersConfig struct {
	PrimaryEngine   string // "openai"|"anthropic"
	SecondaryEngine string
	OpenAI          ProviderModels
	Anthropic       ProviderModels
}

// WorkerConfig defines dispatcher worker behavior and limits.
type WorkerConfig struct {
	Concurrency        int
	RenderDPI          int
	JPEGQuality        int
	RequestTimeout     time.Duration
	PageTotalTimeout   time.Duration
	JobTimeout         time.Duration
	MaxInflightPerKey  int
	BreakerBaseBackoff time.Duration
	BreakerMaxBackoff  time.Duration
}

// QueueConfig defines queue connectivity and names.
type QueueConfig struct {
	RedisURL     string
	Stream       string
	Group        string
	PollInterval time.Duration
}

// StorageConfig defines S3 result storage.
type StorageConfig struct {
	Bucket       string
	ResultPrefix string
}

// Config is the top-level configuration.
type Config struct {
	Logging  LoggingConfig
	Axiom    AxiomConfig
	Sorter   SorterConfig
	Detector DetectorConfig
	OCR      OCRConfig

	Providers ProvidersConfig
	Worker    WorkerConfig
	Queue     QueueConfig
	Storage   StorageConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/readorder.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_readorder",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Sorter = SorterConfig{
		LeftEdgeTolRatio: parseFloat(getEnv("SORT_LEFT_EDGE_TOL_RATIO", "0.04"), 0.04),
		ColumnGapRatio:   parseFloat(getEnv("SORT_COLUMN_GAP_RATIO", "0.05"), 0.05),
		OrphanGapRatio:   parseFloat(getEnv("SORT_ORPHAN_GAP_RATIO", "0.08"), 0.08),
		AnchorYTol:       parseFloat(getEnv("SORT_ANCHOR_Y_TOL", "4"), 4),
		HighConsistency:  parseFloat(getEnv("SORT_HIGH_CONSISTENCY", "0.75"), 0.75),
		LowAdjacency:     parseFloat(getEnv("SORT_LOW_ADJACENCY", "0.25"), 0.25),
		HighAdjacency:    parseFloat(getEnv("SORT_HIGH_ADJACENCY", "0.40"), 0.40),
		MinAnchors:       parseInt(getEnv("SORT_MIN_ANCHORS", "2"), 2),
	}

	cfg.Detector = DetectorConfig{
		URL:     getEnv("DETECTOR_URL", "http://127.0.0.1:9100/detect"),
		Timeout: parseDuration(getEnv("DETECTOR_TIMEOUT", "60s"), 60*time.Second),
	}
	cfg.OCR = OCRConfig{
		URL:     getEnv("OCR_URL", "http://127.0.0.1:9101/recognize"),
		Timeout: parseDuration(getEnv("OCR_TIMEOUT", "90s"), 90*time.Second),
	}

	cfg.Providers = ProvidersConfig{
		PrimaryEngine:   getEnv("PRIMARY_ENGINE", "openai"),
		SecondaryEngine: getEnv("SECONDARY_ENGINE", "anthropic"),
		OpenAI: ProviderModels{
			Primary:   getEnv("OPENAI_PRIMARY_MODEL", "gpt-4.1"),
			Secondary: getEnv("OPENAI_SECONDARY_MODEL", "gpt-4o"),
			Fast:      getEnv("OPENAI_FAST_MODEL", "gpt-4.1-mini"),
		},
		Anthropic: ProviderModels{
			Primary:   getEnv("ANTHROPIC_PRIMARY_MODEL", "claude-3-5-sonnet"),
			Secondary: getEnv("ANTHROPIC_SECONDARY_MODEL", "claude-3-opus"),
			Fast:      getEnv("ANTHROPIC_FAST_MODEL", "claude-3-haiku"),
		},
	}

	cfg.Worker = WorkerConfig{
		Concurrency:        parseInt(getEnv("WORKER_CONCURRENCY", "2"), 2),
		RenderDPI:          parseInt(getEnv("RENDER_DPI", "200"), 200),
		JPEGQuality:        parseInt(getEnv("RENDER_JPEG_QUALITY", "85"), 85),
		RequestTimeout:     parseDuration(getEnv("AI_REQUEST_TIMEOUT", "60s"), 60*time.Second),
		PageTotalTimeout:   parseDuration(getEnv("PAGE_TOTAL_TIMEOUT", "5m"), 5*time.Minute),
		JobTimeout:         parseDuration(getEnv("JOB_TIMEOUT", "30m"), 30*time.Minute),
		MaxInflightPerKey:  parseInt(getEnv("MAX_INFLIGHT_PER_MODEL", "2"), 2),
		BreakerBaseBackoff: parseDuration(getEnv("BREAKER_BASE_BACKOFF", "30s"), 30*time.Second),
		BreakerMaxBackoff:  parseDuration(getEnv("BREAKER_MAX_BACKOFF", "5m"), 5*time.Minute),
	}

	cfg.Queue = QueueConfig{
		RedisURL:     getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		Stream:       getEnv("QUEUE_STREAM", "readorder:pages"),
		Group:        getEnv("QUEUE_GROUP", "readorder-workers"),
		PollInterval: parseDuration(getEnv("QUEUE_POLL_INTERVAL", "200ms"), 200*time.Millisecond),
	}

	cfg.Storage = StorageConfig{
		Bucket:       getEnv("AWS_S3_BUCKET", "readorder-files-dev"),
		ResultPrefix: getEnv("RESULT_S3_PREFIX", "results"),
	}

	return cfg
}

func devDefaultPretty() string {
	if strings.EqualFold(os.Getenv("APP_ENV"), "dev") {
		return "true"
	}
	return "false"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(s string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}
	return def
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
		return d
	}
	return def
}
