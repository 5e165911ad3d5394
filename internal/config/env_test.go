package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/dossier")

	cfg := LoadConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ObjectStoreGCS, cfg.ObjectStore)
	assert.Equal(t, DocumentStorePostgres, cfg.DocumentStore)
	assert.Equal(t, OCREngineVision, cfg.OCREngine)
	assert.Equal(t, 500*1024, cfg.ChunkMaxBytes)
	assert.Equal(t, 2*time.Minute, cfg.OCRTimeout)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, "ingest:events", cfg.RedisEventList)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowedOrigins)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("OBJECT_STORE", "MinIO")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("DOCUMENT_STORE", "badger")
	t.Setenv("TRANSCRIBE_TIMEOUT", "45m")
	t.Setenv("INGEST_WORKERS", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg := LoadConfig()
	assert.Equal(t, ObjectStoreMinio, cfg.ObjectStore)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, 45*time.Minute, cfg.TranscribeTimeout)
	assert.Equal(t, 4, cfg.IngestWorkers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			ObjectStore:   ObjectStoreGCS,
			DocumentStore: DocumentStoreBadger,
			OCREngine:     OCREngineVision,
			ChunkMaxBytes: 1024,
			IngestWorkers: 1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"postgres without dsn", func(c *Config) { c.DocumentStore = DocumentStorePostgres }, "DATABASE_URL"},
		{"firestore without project", func(c *Config) { c.DocumentStore = DocumentStoreFirestore }, "GCP_PROJECT_ID"},
		{"unknown store", func(c *Config) { c.DocumentStore = "mongo" }, "DOCUMENT_STORE"},
		{"s3 without keys", func(c *Config) { c.ObjectStore = ObjectStoreS3 }, "AWS_ACCESS_KEY"},
		{"unknown object store", func(c *Config) { c.ObjectStore = "azure" }, "OBJECT_STORE"},
		{"gemini without key", func(c *Config) { c.OCREngine = OCREngineGemini }, "GEMINI_API_KEY"},
		{"zero chunk bound", func(c *Config) { c.ChunkMaxBytes = 0 }, "CHUNK_MAX_BYTES"},
		{"chunk bound below rune width", func(c *Config) { c.ChunkMaxBytes = 3 }, "CHUNK_MAX_BYTES"},
		{"chunk bound at rune width", func(c *Config) { c.ChunkMaxBytes = 4 }, ""},
		{"negative sample rate", func(c *Config) { c.SpeechSampleRateHz = -1 }, "SPEECH_SAMPLE_RATE_HZ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
