package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment   string
	Server        ServerConfig
	Database      DatabaseConfig
	Queue         QueueConfig
	Coordination  CoordinationConfig
	Chain         ChainConfig
	Sequence      SequenceConfig
	Batch         BatchConfig
	Submit        SubmitConfig
	Finality      FinalityConfig
	Webhook       WebhookConfig
	Workers       WorkerConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Path      string
	LogTiming bool
}

type QueueConfig struct {
	Backend string
	AMQPURL string
}

type CoordinationConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TimeoutMS     int
}

type ChainConfig struct {
	URL          string
	TimeoutMS    int
	ProviderID   string
	ProviderSeed []byte
}

type SequenceConfig struct {
	Window  int
	LeaseMS int
}

type BatchConfig struct {
	MaxItems        int
	IntervalSeconds int
}

type SubmitConfig struct {
	MaxAttempts int
	BackoffMS   int
}

type FinalityConfig struct {
	ScanIntervalMS   int
	MaxBlocksPerScan int
}

type WebhookConfig struct {
	URLs         []string
	Token        string
	Secret       string
	TimeoutMS    int
	MaxAttempts  int
	BackoffMS    int
	MaxBackoffMS int
}

type WorkerConfig struct {
	PerStage             int
	PollMS               int
	ShutdownGraceSeconds int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type ObservabilityConfig struct {
	Enabled           bool
	OTLPEndpoint      string
	OTLPTraceHeaders  map[string]string
	OTLPMetricHeaders map[string]string
	ServiceName       string
	ServiceVer        string
	SamplingRatio     float64
	MetricsConsole    bool
}

const (
	QueueBackendSQLite   = "sqlite"
	QueueBackendRabbitMQ = "rabbitmq"
)

// localProviderSeed is a fixed development key so local runs sign deterministically.
const localProviderSeed = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"

func Load() (Config, error) {
	return load(true)
}

// LoadForTool loads config for CLI tools that never sign or submit.
func LoadForTool() (Config, error) {
	return load(false)
}

func load(requireProvider bool) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("txcommit_env", "")
	v.SetDefault("app_env", "")
	v.SetDefault("go_env", "")
	v.SetDefault("txcommit_http_port", 8090)
	v.SetDefault("txcommit_db_path", "data/txcommit")
	v.SetDefault("txcommit_db_timing", false)
	v.SetDefault("txcommit_queue_backend", QueueBackendSQLite)
	v.SetDefault("txcommit_amqp_url", "")
	v.SetDefault("txcommit_redis_addr", "localhost:6379")
	v.SetDefault("txcommit_redis_password", "")
	v.SetDefault("txcommit_redis_db", 0)
	v.SetDefault("txcommit_redis_timeout_ms", 500)
	v.SetDefault("txcommit_chain_url", "http://localhost:9944")
	v.SetDefault("txcommit_chain_timeout_ms", 5000)
	v.SetDefault("txcommit_provider_id", "")
	v.SetDefault("txcommit_provider_seed", "")
	v.SetDefault("txcommit_sequence_window", 50)
	v.SetDefault("txcommit_sequence_lease_ms", 2000)
	v.SetDefault("txcommit_batch_max_items", 100)
	v.SetDefault("txcommit_batch_interval_seconds", 10)
	v.SetDefault("txcommit_submit_max_attempts", 10)
	v.SetDefault("txcommit_submit_backoff_ms", 500)
	v.SetDefault("txcommit_scan_interval_ms", 3000)
	v.SetDefault("txcommit_scan_max_blocks", 256)
	v.SetDefault("txcommit_webhook_urls", "")
	v.SetDefault("txcommit_webhook_token", "")
	v.SetDefault("txcommit_webhook_secret", "")
	v.SetDefault("txcommit_webhook_timeout_ms", 3000)
	v.SetDefault("txcommit_webhook_max_attempts", 5)
	v.SetDefault("txcommit_webhook_backoff_ms", 1000)
	v.SetDefault("txcommit_webhook_max_backoff_ms", 60000)
	v.SetDefault("txcommit_workers", 4)
	v.SetDefault("txcommit_worker_poll_ms", 250)
	v.SetDefault("txcommit_shutdown_grace_seconds", 30)
	v.SetDefault("txcommit_kafka_brokers", "")
	v.SetDefault("txcommit_kafka_topic", "txcommit.outcomes")
	v.SetDefault("txcommit_otel_enabled", false)
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("otel_exporter_otlp_headers", "")
	v.SetDefault("otel_exporter_otlp_traces_headers", "")
	v.SetDefault("otel_exporter_otlp_metrics_headers", "")
	v.SetDefault("otel_service_name", "txcommit")
	v.SetDefault("txcommit_version", "dev")
	v.SetDefault("otel_service_version", "")
	v.SetDefault("txcommit_otel_sampling_ratio", 1.0)
	v.SetDefault("txcommit_otel_metrics_console", false)

	env := resolveEnvironment(v)
	port := v.GetInt("txcommit_http_port")
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid TXCOMMIT_HTTP_PORT: %d", port)
	}

	samplingRatio := v.GetFloat64("txcommit_otel_sampling_ratio")
	if samplingRatio < 0 {
		samplingRatio = 0
	}
	if samplingRatio > 1 {
		samplingRatio = 1
	}

	backend := strings.ToLower(strings.TrimSpace(v.GetString("txcommit_queue_backend")))
	switch backend {
	case QueueBackendSQLite, QueueBackendRabbitMQ:
	default:
		return Config{}, fmt.Errorf("invalid TXCOMMIT_QUEUE_BACKEND: %q", backend)
	}
	amqpURL := strings.TrimSpace(v.GetString("txcommit_amqp_url"))
	if backend == QueueBackendRabbitMQ && amqpURL == "" {
		return Config{}, fmt.Errorf("TXCOMMIT_AMQP_URL is required for the rabbitmq queue backend")
	}

	serviceName := strings.TrimSpace(v.GetString("otel_service_name"))
	if serviceName == "" {
		serviceName = "txcommit"
	}

	serviceVersion := strings.TrimSpace(v.GetString("txcommit_version"))
	if serviceVersion == "" {
		serviceVersion = strings.TrimSpace(v.GetString("otel_service_version"))
	}
	if serviceVersion == "" {
		serviceVersion = "dev"
	}

	otlpEndpoint := strings.TrimSpace(v.GetString("otel_exporter_otlp_endpoint"))
	otlpCommonHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_headers"))
	otlpTraceHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_traces_headers"))
	otlpMetricHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_metrics_headers"))
	metricsConsole := v.GetBool("txcommit_otel_metrics_console")
	otelEnabled := v.GetBool("txcommit_otel_enabled") || otlpEndpoint != "" || metricsConsole

	cfg := Config{
		Environment: env,
		Server:      ServerConfig{Port: port},
		Database: DatabaseConfig{
			Path:      strings.TrimSpace(v.GetString("txcommit_db_path")),
			LogTiming: v.GetBool("txcommit_db_timing"),
		},
		Queue: QueueConfig{Backend: backend, AMQPURL: amqpURL},
		Coordination: CoordinationConfig{
			RedisAddr:     strings.TrimSpace(v.GetString("txcommit_redis_addr")),
			RedisPassword: v.GetString("txcommit_redis_password"),
			RedisDB:       v.GetInt("txcommit_redis_db"),
			TimeoutMS:     clampInt(v.GetInt("txcommit_redis_timeout_ms"), 50, 10000, 500),
		},
		Chain: ChainConfig{
			URL:        strings.TrimRight(strings.TrimSpace(v.GetString("txcommit_chain_url")), "/"),
			TimeoutMS:  clampInt(v.GetInt("txcommit_chain_timeout_ms"), 100, 60000, 5000),
			ProviderID: strings.TrimSpace(v.GetString("txcommit_provider_id")),
		},
		Sequence: SequenceConfig{
			Window:  clampInt(v.GetInt("txcommit_sequence_window"), 1, 500, 50),
			LeaseMS: clampInt(v.GetInt("txcommit_sequence_lease_ms"), 100, 60000, 2000),
		},
		Batch: BatchConfig{
			MaxItems:        clampInt(v.GetInt("txcommit_batch_max_items"), 1, 2000, 100),
			IntervalSeconds: clampInt(v.GetInt("txcommit_batch_interval_seconds"), 1, 3600, 10),
		},
		Submit: SubmitConfig{
			MaxAttempts: clampInt(v.GetInt("txcommit_submit_max_attempts"), 1, 100, 10),
			BackoffMS:   clampInt(v.GetInt("txcommit_submit_backoff_ms"), 10, 60000, 500),
		},
		Finality: FinalityConfig{
			ScanIntervalMS:   clampInt(v.GetInt("txcommit_scan_interval_ms"), 100, 60000, 3000),
			MaxBlocksPerScan: clampInt(v.GetInt("txcommit_scan_max_blocks"), 1, 10000, 256),
		},
		Webhook: WebhookConfig{
			URLs:         splitList(v.GetString("txcommit_webhook_urls")),
			Token:        strings.TrimSpace(v.GetString("txcommit_webhook_token")),
			Secret:       strings.TrimSpace(v.GetString("txcommit_webhook_secret")),
			TimeoutMS:    clampInt(v.GetInt("txcommit_webhook_timeout_ms"), 100, 60000, 3000),
			MaxAttempts:  clampInt(v.GetInt("txcommit_webhook_max_attempts"), 1, 50, 5),
			BackoffMS:    clampInt(v.GetInt("txcommit_webhook_backoff_ms"), 10, 600000, 1000),
			MaxBackoffMS: clampInt(v.GetInt("txcommit_webhook_max_backoff_ms"), 10, 86400000, 60000),
		},
		Workers: WorkerConfig{
			PerStage:             clampInt(v.GetInt("txcommit_workers"), 1, 64, 4),
			PollMS:               clampInt(v.GetInt("txcommit_worker_poll_ms"), 10, 10000, 250),
			ShutdownGraceSeconds: clampInt(v.GetInt("txcommit_shutdown_grace_seconds"), 1, 600, 30),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("txcommit_kafka_brokers")),
			Topic:   strings.TrimSpace(v.GetString("txcommit_kafka_topic")),
		},
		Observability: ObservabilityConfig{
			Enabled:           otelEnabled,
			OTLPEndpoint:      otlpEndpoint,
			OTLPTraceHeaders:  mergeHeaderMaps(otlpCommonHeaders, otlpTraceHeaders),
			OTLPMetricHeaders: mergeHeaderMaps(otlpCommonHeaders, otlpMetricHeaders),
			ServiceName:       serviceName,
			ServiceVer:        serviceVersion,
			SamplingRatio:     samplingRatio,
			MetricsConsole:    metricsConsole,
		},
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/txcommit"
	}
	if cfg.Webhook.MaxBackoffMS < cfg.Webhook.BackoffMS {
		cfg.Webhook.MaxBackoffMS = cfg.Webhook.BackoffMS
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "txcommit.outcomes"
	}

	seedHex := strings.TrimPrefix(strings.TrimSpace(v.GetString("txcommit_provider_seed")), "0x")
	if seedHex == "" && cfg.IsLocalDevelopment() {
		seedHex = localProviderSeed
	}
	if seedHex != "" {
		seed, err := hex.DecodeString(seedHex)
		if err != nil || len(seed) != 32 {
			return Config{}, fmt.Errorf("invalid TXCOMMIT_PROVIDER_SEED: expected 32 hex encoded bytes")
		}
		cfg.Chain.ProviderSeed = seed
	}
	if cfg.Chain.ProviderID == "" && cfg.IsLocalDevelopment() {
		cfg.Chain.ProviderID = "1"
	}
	if requireProvider && !cfg.IsLocalDevelopment() {
		if cfg.Chain.ProviderID == "" {
			return Config{}, fmt.Errorf("TXCOMMIT_PROVIDER_ID is required outside local/dev environments")
		}
		if len(cfg.Chain.ProviderSeed) == 0 {
			return Config{}, fmt.Errorf("TXCOMMIT_PROVIDER_SEED is required outside local/dev environments")
		}
	}

	return cfg, nil
}

func clampInt(value, lower, upper, fallback int) int {
	if value <= 0 {
		return fallback
	}
	if value < lower {
		return lower
	}
	if value > upper {
		return upper
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseOTLPHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mergeHeaderMaps(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func (c Config) IsLocalDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

func (c Config) SequenceLeaseTTL() time.Duration {
	return time.Duration(c.Sequence.LeaseMS) * time.Millisecond
}

func (c Config) CoordinationTimeout() time.Duration {
	return time.Duration(c.Coordination.TimeoutMS) * time.Millisecond
}

func (c Config) ChainTimeout() time.Duration {
	return time.Duration(c.Chain.TimeoutMS) * time.Millisecond
}

func (c Config) BatchInterval() time.Duration {
	return time.Duration(c.Batch.IntervalSeconds) * time.Second
}

func (c Config) SubmitBackoff() time.Duration {
	return time.Duration(c.Submit.BackoffMS) * time.Millisecond
}

func (c Config) ScanInterval() time.Duration {
	return time.Duration(c.Finality.ScanIntervalMS) * time.Millisecond
}

func (c Config) WebhookTimeout() time.Duration {
	return time.Duration(c.Webhook.TimeoutMS) * time.Millisecond
}

func (c Config) WebhookBackoff() (base, max time.Duration) {
	return time.Duration(c.Webhook.BackoffMS) * time.Millisecond, time.Duration(c.Webhook.MaxBackoffMS) * time.Millisecond
}

func (c Config) WorkerPoll() time.Duration {
	return time.Duration(c.Workers.PollMS) * time.Millisecond
}

func (c Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Workers.ShutdownGraceSeconds) * time.Second
}

func resolveEnvironment(v *viper.Viper) string {
	for _, key := range []string{"txcommit_env", "app_env", "go_env"} {
		value := strings.TrimSpace(v.GetString(key))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}
