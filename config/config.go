package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Values come from environment variables (optionally via .env) with
// defaults that work for a local setup.
type Config struct {
	// Generative audio API
	ReplicateToken string // API credential; generation fails per-task when empty
	ReplicateModel string // model slug, e.g. "meta/musicgen"
	ReplicateURL   string // API base URL, overridable for tests

	// External tools for the score pipeline
	JavaPath       string // java executable used to launch the recognizer
	AudiverisDir   string // directory containing the Audiveris jars
	FluidsynthPath string
	FFmpegPath     string
	SoundfontPath  string // instrument soundfont for MIDI synthesis

	// Artifact directories
	UploadDir string // per-task work directories live under here
	OutputDir string // final audio artifacts, served by /api/audio

	// Task handling
	RecognizeTimeout time.Duration // wall-clock bound on score recognition
	WorkerCount      int           // concurrent generation workers
	QueueSize        int           // pending generation queue capacity
	TaskTTL          time.Duration // terminal tasks evicted after this age

	// Optional MinIO mirror for final artifacts
	MinioEndpoint  string // empty disables MinIO entirely
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable holding seconds or returns a default.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		ReplicateToken: os.Getenv("REPLICATE_API_TOKEN"), // no hardcoded default for credentials
		ReplicateModel: getEnv("REPLICATE_MODEL", "meta/musicgen"),
		ReplicateURL:   getEnv("REPLICATE_API_URL", "https://api.replicate.com"),

		JavaPath:       getEnv("JAVA_PATH", "java"),
		AudiverisDir:   getEnv("AUDIVERIS_DIR", filepath.Join("/opt", "audiveris", "app")),
		FluidsynthPath: getEnv("FLUIDSYNTH_PATH", "fluidsynth"),
		FFmpegPath:     getEnv("FFMPEG_PATH", "ffmpeg"),
		SoundfontPath:  getEnv("SOUNDFONT_PATH", filepath.Join("/usr", "share", "sounds", "sf2", "FluidR3_GM.sf2")),

		UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		OutputDir: getEnv("OUTPUT_DIR", "outputs"),

		RecognizeTimeout: getEnvDuration("RECOGNIZE_TIMEOUT_SECONDS", 120*time.Second),
		WorkerCount:      getEnvInt("GENERATION_WORKERS", 4),
		QueueSize:        getEnvInt("GENERATION_QUEUE_SIZE", 64),
		TaskTTL:          getEnvDuration("TASK_TTL_SECONDS", 3600*time.Second),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""), // empty keeps artifacts local-only
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "scorefm"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
	}
}
