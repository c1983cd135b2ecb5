package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the framemill worker.
type Config struct {
	Env         string
	Database    DatabaseConfig
	Redis       RedisConfig
	Queue       QueueConfig
	ObjectStore ObjectStoreConfig
	Progress    ProgressConfig
	Pipeline    PipelineConfig
	Classifier  ClassifierConfig
	Worker      WorkerConfig
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type QueueConfig struct {
	URL        string
	Stream     string
	Subject    string
	Durable    string
	BatchSize  int
	Wait       time.Duration
	AckWait    time.Duration
	MaxDeliver int
}

type ObjectStoreConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PresignExpiry time.Duration
}

type ProgressConfig struct {
	Partition string
	TTL       time.Duration
}

type PipelineConfig struct {
	FFmpegPath      string
	FFprobePath     string
	FrameRate       int
	TopK            int
	MaxUploadFrames int
	TmpDir          string
}

type ClassifierConfig struct {
	Provider   string
	ModelPath  string
	LabelsPath string
	LibPath    string
}

type WorkerConfig struct {
	ErrorBackoff time.Duration
}

var validProviders = map[string]bool{
	"mock": true,
	"onnx": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Env: envString("ENV", "development"),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxConns:        envInt("DATABASE_MAX_CONNS", 8),
			MinConns:        envInt("DATABASE_MIN_CONNS", 2),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Queue: QueueConfig{
			URL:        os.Getenv("NATS_URL"),
			Stream:     envString("QUEUE_STREAM", "FRAMEMILL_JOBS"),
			Subject:    envString("QUEUE_SUBJECT", "framemill.jobs.process"),
			Durable:    envString("QUEUE_DURABLE", "framemill-worker"),
			BatchSize:  envInt("QUEUE_BATCH_SIZE", 10),
			Wait:       envDuration("QUEUE_WAIT", 20*time.Second),
			AckWait:    envDuration("QUEUE_ACK_WAIT", 5*time.Minute),
			MaxDeliver: envInt("QUEUE_MAX_DELIVER", 5),
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:      os.Getenv("MINIO_ENDPOINT"),
			AccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey:     os.Getenv("MINIO_SECRET_KEY"),
			Bucket:        envString("MINIO_BUCKET", "framemill-media"),
			UseSSL:        envBool("MINIO_USE_SSL", false),
			PresignExpiry: envDuration("MINIO_PRESIGN_EXPIRY", time.Hour),
		},
		Progress: ProgressConfig{
			Partition: envString("PROGRESS_PARTITION", "default"),
			TTL:       envDuration("PROGRESS_TTL", 0),
		},
		Pipeline: PipelineConfig{
			FFmpegPath:      envString("FFMPEG_PATH", "ffmpeg"),
			FFprobePath:     envString("FFPROBE_PATH", "ffprobe"),
			FrameRate:       envInt("PIPELINE_FRAME_RATE", 1),
			TopK:            envInt("PIPELINE_TOP_K", 3),
			MaxUploadFrames: envInt("PIPELINE_MAX_UPLOAD_FRAMES", 5),
			TmpDir:          os.Getenv("PIPELINE_TMP_DIR"),
		},
		Classifier: ClassifierConfig{
			Provider:   envString("CLASSIFIER_PROVIDER", "mock"),
			ModelPath:  os.Getenv("CLASSIFIER_MODEL_PATH"),
			LabelsPath: os.Getenv("CLASSIFIER_LABELS_PATH"),
			LibPath:    os.Getenv("ONNXRUNTIME_LIB_PATH"),
		},
		Worker: WorkerConfig{
			ErrorBackoff: envDuration("WORKER_ERROR_BACKOFF", 5*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Queue.URL == "" {
		return fmt.Errorf("NATS_URL is required")
	}
	if c.Queue.BatchSize < 1 {
		return fmt.Errorf("QUEUE_BATCH_SIZE must be at least 1, got %d", c.Queue.BatchSize)
	}

	if c.ObjectStore.Endpoint == "" {
		return fmt.Errorf("MINIO_ENDPOINT is required")
	}
	if c.ObjectStore.AccessKey == "" || c.ObjectStore.SecretKey == "" {
		return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required")
	}

	if c.Pipeline.FrameRate < 1 {
		return fmt.Errorf("PIPELINE_FRAME_RATE must be at least 1, got %d", c.Pipeline.FrameRate)
	}
	if c.Pipeline.TopK < 1 {
		return fmt.Errorf("PIPELINE_TOP_K must be at least 1, got %d", c.Pipeline.TopK)
	}

	if !validProviders[c.Classifier.Provider] {
		return fmt.Errorf("CLASSIFIER_PROVIDER must be one of mock, onnx; got %q", c.Classifier.Provider)
	}
	if c.Classifier.Provider == "onnx" {
		if c.Classifier.ModelPath == "" {
			return fmt.Errorf("CLASSIFIER_MODEL_PATH is required when CLASSIFIER_PROVIDER is onnx")
		}
		if c.Classifier.LabelsPath == "" {
			return fmt.Errorf("CLASSIFIER_LABELS_PATH is required when CLASSIFIER_PROVIDER is onnx")
		}
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
