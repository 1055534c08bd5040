package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerAddr  string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	RedisAddr   string
	WorkerCount int

	// MinIO/S3 configuration
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3UsePathStyle bool

	// Pipeline tool configuration
	AudioDir         string
	YtdlpPath        string
	FfmpegPath       string
	FfprobePath      string
	WhisperPath      string
	WhisperModelPath string
	WhisperThreads   int

	// Summarizer configuration
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	PromptPath    string

	// Per-stage timeouts; zero disables the bound
	DownloadTimeout   time.Duration
	TranscribeTimeout time.Duration
	SummarizeTimeout  time.Duration
}

func Load() *Config {
	workerCount, _ := strconv.Atoi(getEnvOrDefault("WORKER_COUNT", "2"))
	if workerCount <= 0 {
		workerCount = 2
	}

	whisperThreads, _ := strconv.Atoi(getEnvOrDefault("WHISPER_THREADS", "0"))

	minioUseSSL, _ := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", "false"))
	s3UsePathStyle, _ := strconv.ParseBool(getEnvOrDefault("S3_USE_PATH_STYLE", "true"))

	minioEndpoint := getEnvOrDefault("MINIO_ENDPOINT", "localhost:9000")

	return &Config{
		ServerAddr:  getEnvOrDefault("SERVER_ADDR", ":8080"),
		DBHost:      getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:      getEnvOrDefault("DB_PORT", "5432"),
		DBUser:      getEnvOrDefault("DB_USER", "vidigest"),
		DBPassword:  getEnvOrDefault("DB_PASSWORD", "vidigest_dev_password"),
		DBName:      getEnvOrDefault("DB_NAME", "vidigest"),
		RedisAddr:   getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		WorkerCount: workerCount,

		MinioEndpoint:  minioEndpoint,
		MinioAccessKey: getEnvOrDefault("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnvOrDefault("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnvOrDefault("MINIO_BUCKET", "video-artifacts"),
		MinioUseSSL:    minioUseSSL,
		S3Endpoint:     getEnvOrDefault("S3_ENDPOINT", "http://"+minioEndpoint),
		S3Region:       getEnvOrDefault("S3_REGION", "us-east-1"),
		S3AccessKey:    getEnvOrDefault("S3_ACCESS_KEY", getEnvOrDefault("MINIO_ACCESS_KEY", "minioadmin")),
		S3SecretKey:    getEnvOrDefault("S3_SECRET_KEY", getEnvOrDefault("MINIO_SECRET_KEY", "minioadmin")),
		S3Bucket:       getEnvOrDefault("S3_BUCKET", "video-artifacts"),
		S3UsePathStyle: s3UsePathStyle,

		AudioDir:         getEnvOrDefault("AUDIO_DIR", "/tmp/vidigest-audio"),
		YtdlpPath:        getEnvOrDefault("YTDLP_PATH", "yt-dlp"),
		FfmpegPath:       getEnvOrDefault("FFMPEG_PATH", "ffmpeg"),
		FfprobePath:      getEnvOrDefault("FFPROBE_PATH", "ffprobe"),
		WhisperPath:      getEnvOrDefault("WHISPER_PATH", "whisper-cli"),
		WhisperModelPath: getEnvOrDefault("WHISPER_MODEL_PATH", ""),
		WhisperThreads:   whisperThreads,

		OpenAIBaseURL: getEnvOrDefault("OPENAI_BASE_URL", ""),
		OpenAIAPIKey:  getEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnvOrDefault("OPENAI_MODEL", ""),
		PromptPath:    getEnvOrDefault("PROMPT_PATH", ""),

		DownloadTimeout:   getDurationOrDefault("DOWNLOAD_TIMEOUT", 0),
		TranscribeTimeout: getDurationOrDefault("TRANSCRIBE_TIMEOUT", 0),
		SummarizeTimeout:  getDurationOrDefault("SUMMARIZE_TIMEOUT", 0),
	}
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
