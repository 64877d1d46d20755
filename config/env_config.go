package config

import (
	"os"
	"strconv"
	"strings"
)

type EnvConfig struct {
	Postgres struct {
		HOST     string
		Database string
		Username string
		Password string
		Port     string
	}
	JWT struct {
		SecretKey string
		Algorithm string
		Expire    int
	}
	CORS struct {
		AllowDomains string
		GlobalDomain string
	}
	Redis struct {
		Password  string
		Database  int
		RedisHost string
		RedisPort string
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
	}
	Minio struct {
		Endpoint     string
		RootUser     string
		RootPassword string
		Bucket       string
		PublicURL    string
	}
	Engine struct {
		MediaToolsURL string
		SeparatorURL  string
		TranscribeURL string
		TranslateURL  string
		SynthesizeURL string
	}
	Pipeline struct {
		WorkerCount      int
		MaxRetries       int
		RetryBaseDelayMS int64
		StageTimeoutSec  int
		EstimateSec      int
		WorkDir          string
	}
	Grafana struct {
		OTLPEndpoint string
		ServiceName  string
	}
	Environment struct {
		Mode  string
		Group string
	}
	DomainName string
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Postgres
	config.Postgres.HOST = os.Getenv("PGPOOL_HOST")
	config.Postgres.Database = os.Getenv("PGPOOL_DB")
	config.Postgres.Username = os.Getenv("PGPOOL_USER")
	config.Postgres.Password = os.Getenv("PGPOOL_PASSWORD")
	config.Postgres.Port = os.Getenv("PGPOOL_PORT")

	// JWT
	config.JWT.SecretKey = os.Getenv("JWT_SECRET_KEY")
	config.JWT.Algorithm = os.Getenv("JWT_ALGORITHM")
	if val, err := strconv.Atoi(os.Getenv("JWT_EXPIRE")); err == nil && val > 0 {
		config.JWT.Expire = val
	} else {
		config.JWT.Expire = 3600 * 24 * 7
	}

	config.CORS.AllowDomains = os.Getenv("ALLOWED_DOMAINS")
	config.CORS.GlobalDomain = os.Getenv("GLOBAL_DOMAIN")

	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	config.Redis.RedisHost = os.Getenv("REDIS_HOST")
	config.Redis.RedisPort = os.Getenv("REDIS_PORT")

	// RabbitMQ
	config.RabbitMQ.Host = os.Getenv("RABBITMQ_HOST")
	if config.RabbitMQ.Host == "" {
		config.RabbitMQ.Host = "localhost"
	}
	config.RabbitMQ.Port = os.Getenv("RABBITMQ_PORT")
	if config.RabbitMQ.Port == "" {
		config.RabbitMQ.Port = "5672"
	}
	config.RabbitMQ.Username = os.Getenv("RABBITMQ_USER")
	if config.RabbitMQ.Username == "" {
		config.RabbitMQ.Username = "guest"
	}
	config.RabbitMQ.Password = os.Getenv("RABBITMQ_PASSWORD")
	if config.RabbitMQ.Password == "" {
		config.RabbitMQ.Password = "guest"
	}

	config.Minio.Endpoint = os.Getenv("MINIO_ENDPOINT")
	config.Minio.RootUser = os.Getenv("MINIO_ROOT_USER")
	config.Minio.RootPassword = os.Getenv("MINIO_ROOT_PASSWORD")
	config.Minio.Bucket = os.Getenv("MINIO_DUB_BUCKET")
	if config.Minio.Bucket == "" {
		config.Minio.Bucket = "dubbed-media"
	}
	config.Minio.PublicURL = os.Getenv("MINIO_PUBLIC_URL")

	// Engine services
	config.Engine.MediaToolsURL = os.Getenv("MEDIA_TOOLS_SERVICE_URL")
	if config.Engine.MediaToolsURL == "" {
		config.Engine.MediaToolsURL = "http://localhost:9100"
	}
	config.Engine.SeparatorURL = os.Getenv("SEPARATOR_SERVICE_URL")
	if config.Engine.SeparatorURL == "" {
		config.Engine.SeparatorURL = "http://localhost:9101"
	}
	config.Engine.TranscribeURL = os.Getenv("TRANSCRIBE_SERVICE_URL")
	if config.Engine.TranscribeURL == "" {
		config.Engine.TranscribeURL = "http://localhost:9102"
	}
	config.Engine.TranslateURL = os.Getenv("TRANSLATE_SERVICE_URL")
	if config.Engine.TranslateURL == "" {
		config.Engine.TranslateURL = "http://localhost:9103"
	}
	config.Engine.SynthesizeURL = os.Getenv("SYNTHESIZE_SERVICE_URL")
	if config.Engine.SynthesizeURL == "" {
		config.Engine.SynthesizeURL = "http://localhost:9104"
	}

	// Pipeline
	if val, err := strconv.Atoi(os.Getenv("DUB_WORKER_COUNT")); err == nil && val > 0 {
		config.Pipeline.WorkerCount = val
	} else {
		config.Pipeline.WorkerCount = 4
	}
	if val, err := strconv.Atoi(os.Getenv("DUB_MAX_RETRIES")); err == nil && val >= 0 {
		config.Pipeline.MaxRetries = val
	} else {
		config.Pipeline.MaxRetries = 3
	}
	if val, err := strconv.ParseInt(os.Getenv("DUB_RETRY_BASE_DELAY_MS"), 10, 64); err == nil && val > 0 {
		config.Pipeline.RetryBaseDelayMS = val
	} else {
		config.Pipeline.RetryBaseDelayMS = 5000
	}
	if val, err := strconv.Atoi(os.Getenv("DUB_STAGE_TIMEOUT_SEC")); err == nil && val > 0 {
		config.Pipeline.StageTimeoutSec = val
	} else {
		config.Pipeline.StageTimeoutSec = 1800
	}
	if val, err := strconv.Atoi(os.Getenv("DUB_ESTIMATE_SEC")); err == nil && val > 0 {
		config.Pipeline.EstimateSec = val
	} else {
		config.Pipeline.EstimateSec = 600
	}
	config.Pipeline.WorkDir = os.Getenv("DUB_WORK_DIR")
	if config.Pipeline.WorkDir == "" {
		config.Pipeline.WorkDir = os.TempDir()
	}

	// Grafana/OpenTelemetry
	grafanaEndpoint := os.Getenv("GRAFANA_OTLP_ENDPOINT")
	if grafanaEndpoint == "" {
		grafanaEndpoint = "https://grafana.vidlingo.online"
	}
	// Remove protocol for OpenTelemetry client to avoid duplicate protocols
	if strings.HasPrefix(grafanaEndpoint, "https://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "https://")
	} else if strings.HasPrefix(grafanaEndpoint, "http://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "http://")
	} else {
		config.Grafana.OTLPEndpoint = grafanaEndpoint
	}
	config.Grafana.ServiceName = os.Getenv("SERVICE_NAME")
	if config.Grafana.ServiceName == "" {
		config.Grafana.ServiceName = "vidlingo-dub-orchestrator"
	}

	config.Environment.Mode = os.Getenv("DEPLOY_ENV")
	if config.Environment.Mode == "" {
		config.Environment.Mode = "development"
	}
	config.Environment.Group = os.Getenv("GROUP_NAME")
	if config.Environment.Group == "" {
		config.Environment.Group = "local"
	}

	config.DomainName = os.Getenv("DOMAIN_NAME")
	if config.DomainName == "" {
		config.DomainName = "localhost:8080"
	}

	return &config
}
