package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
)

// Object and document store backends.
const (
	ObjectStoreGCS   = "gcs"
	ObjectStoreS3    = "s3"
	ObjectStoreMinio = "minio"

	DocumentStorePostgres  = "postgres"
	DocumentStoreFirestore = "firestore"
	DocumentStoreBadger    = "badger"

	OCREngineVision = "vision"
	OCREngineGemini = "gemini"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	ObjectStore        string
	GCSCredentialsFile string
	AwsAccessKey       string
	AwsSecretKey       string
	AwsRegion          string
	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioUseSSL        bool

	DocumentStore       string
	DatabaseURL         string
	GCPProjectID        string
	FirestoreDatabase   string
	FirestoreCollection string
	BadgerPath          string

	OCREngine          string
	AIAPIKey           string
	GenModel           string
	LanguageCode       string
	SpeechSampleRateHz int
	OCRTimeout         time.Duration
	TranscribeTimeout  time.Duration
	PollInterval       time.Duration
	TempDir            string

	ChunkMaxBytes  int
	IngestWorkers  int
	RedisAddr      string
	RedisPassword  string
	RedisEventList string

	CORSAllowedOrigins []string
}

// LoadConfig reads .env when present, then the environment.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		ObjectStore:        strings.ToLower(getEnv("OBJECT_STORE", ObjectStoreGCS)),
		GCSCredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		AwsAccessKey:       getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:       getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:          getEnv("AWS_REGION", "us-east-2"),
		MinioEndpoint:      getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:     getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:        getEnvBool("MINIO_USE_SSL", false),

		DocumentStore:       strings.ToLower(getEnv("DOCUMENT_STORE", DocumentStorePostgres)),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		GCPProjectID:        getEnv("GCP_PROJECT_ID", ""),
		FirestoreDatabase:   getEnv("FIRESTORE_DATABASE", "(default)"),
		FirestoreCollection: getEnv("FIRESTORE_COLLECTION", "documents"),
		BadgerPath:          getEnv("BADGER_PATH", "./data/badger"),

		OCREngine:          strings.ToLower(getEnv("OCR_ENGINE", OCREngineVision)),
		AIAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GenModel:           getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		LanguageCode:       getEnv("LANGUAGE_CODE", "en-US"),
		SpeechSampleRateHz: getEnvInt("SPEECH_SAMPLE_RATE_HZ", 0),
		OCRTimeout:         getEnvDuration("OCR_TIMEOUT", 2*time.Minute),
		TranscribeTimeout:  getEnvDuration("TRANSCRIBE_TIMEOUT", 30*time.Minute),
		PollInterval:       getEnvDuration("POLL_INTERVAL", 5*time.Second),
		TempDir:            getEnv("TEMP_DIR", os.TempDir()),

		ChunkMaxBytes:  getEnvInt("CHUNK_MAX_BYTES", 500*1024),
		IngestWorkers:  getEnvInt("INGEST_WORKERS", 4),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisEventList: getEnv("REDIS_EVENTS_LIST", "ingest:events"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
	}
}

// Validate reports the first setting the selected backends cannot run without.
func (c *Config) Validate() error {
	switch c.ObjectStore {
	case ObjectStoreGCS:
	case ObjectStoreS3:
		if c.AwsAccessKey == "" || c.AwsSecretKey == "" {
			return errors.New("AWS_ACCESS_KEY and AWS_SECRET_KEY are required for OBJECT_STORE=s3")
		}
	case ObjectStoreMinio:
		if c.MinioEndpoint == "" {
			return errors.New("MINIO_ENDPOINT is required for OBJECT_STORE=minio")
		}
	default:
		return fmt.Errorf("OBJECT_STORE=%q is not one of gcs, s3, minio", c.ObjectStore)
	}

	switch c.DocumentStore {
	case DocumentStorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL not set")
		}
	case DocumentStoreFirestore:
		if c.GCPProjectID == "" {
			return errors.New("GCP_PROJECT_ID is required for DOCUMENT_STORE=firestore")
		}
	case DocumentStoreBadger:
	default:
		return fmt.Errorf("DOCUMENT_STORE=%q is not one of postgres, firestore, badger", c.DocumentStore)
	}

	switch c.OCREngine {
	case OCREngineVision:
	case OCREngineGemini:
		if c.AIAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required for OCR_ENGINE=gemini")
		}
	default:
		return fmt.Errorf("OCR_ENGINE=%q is not one of vision, gemini", c.OCREngine)
	}

	if c.ChunkMaxBytes < utf8.UTFMax {
		return fmt.Errorf("CHUNK_MAX_BYTES must be at least %d, got %d", utf8.UTFMax, c.ChunkMaxBytes)
	}
	if c.IngestWorkers <= 0 {
		return fmt.Errorf("INGEST_WORKERS must be positive, got %d", c.IngestWorkers)
	}
	if c.SpeechSampleRateHz < 0 {
		return fmt.Errorf("SPEECH_SAMPLE_RATE_HZ must not be negative, got %d", c.SpeechSampleRateHz)
	}
	return nil
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config value is not a bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config value is not a duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
