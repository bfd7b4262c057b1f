package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	AWS       AWSConfig
	Artifacts ArtifactsConfig
	Providers ProvidersConfig
	Interview InterviewConfig
	Worker    WorkerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// LogConfig controls the zap logger built by each process.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

// Debug reports whether debug level logging was requested.
func (c LogConfig) Debug() bool { return strings.EqualFold(c.Level, "debug") }

// JSON reports whether the encoder should emit JSON.
func (c LogConfig) JSON() bool { return !strings.EqualFold(c.Format, "console") }

// DatabaseConfig holds PostgreSQL connection settings. An empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL string // e.g. postgres://localhost:5432/interviews?sslmode=disable
}

// Enabled reports whether a PostgreSQL store is configured.
func (c DatabaseConfig) Enabled() bool { return c.URL != "" }

// RedisConfig holds Redis connection settings. An empty Addr runs without Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether Redis is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// AWSConfig holds AWS credentials and the S3 bucket for interview artifacts.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ArtifactsBucket string
}

// ArtifactsConfig configures where synthesized audio, uploads and mirrored video land.
type ArtifactsConfig struct {
	LocalDir      string // used when no bucket is configured
	PublicBaseURL string // URL prefix under which LocalDir is served
}

// ProvidersConfig is the read-only capability configuration: backend order, credentials, models and timeouts.
type ProvidersConfig struct {
	DemoMode bool

	GenerationBackends  []string
	SynthesisBackends   []string
	RecognitionBackends []string
	AvatarBackends      []string

	GeminiAPIKey     string
	GeminiModel      string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	DeepSeekAPIKey   string
	DeepSeekModel    string
	PlayHTAPIKey     string
	PlayHTUserID     string
	ElevenLabsAPIKey string
	AssemblyAIAPIKey string
	DeepgramAPIKey   string
	DIDAPIKey        string
	HeyGenAPIKey     string

	GenerationTimeout  time.Duration
	SynthesisTimeout   time.Duration
	RecognitionTimeout time.Duration

	PollInterval         time.Duration
	VideoPollMax         int
	TranscriptionPollMax int
	MaxGenerationTokens  int
}

// InterviewConfig holds session behaviour knobs.
type InterviewConfig struct {
	PromptContextTurns int
	MemoryWindow       int
	MaxMessageLength   int
	DefaultPersona     string
	PersonasFile       string
	Retention          time.Duration
	PassThreshold      float64
}

// WorkerConfig holds artifact mirror worker settings.
type WorkerConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 120),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ArtifactsBucket: getEnv("AWS_S3_ARTIFACTS_BUCKET", ""),
		},
		Artifacts: ArtifactsConfig{
			LocalDir:      getEnv("ARTIFACTS_DIR", "./data/artifacts"),
			PublicBaseURL: getEnv("ARTIFACTS_PUBLIC_URL", "/artifacts"),
		},
		Providers: ProvidersConfig{
			DemoMode:             getEnvBool("DEMO_MODE_ENABLED", false),
			GenerationBackends:   splitTrim(getEnv("GENERATION_BACKENDS", "gemini,openai,deepseek"), ","),
			SynthesisBackends:    splitTrim(getEnv("SYNTHESIS_BACKENDS", "playht,elevenlabs"), ","),
			RecognitionBackends:  splitTrim(getEnv("RECOGNITION_BACKENDS", "assemblyai,deepgram"), ","),
			AvatarBackends:       splitTrim(getEnv("AVATAR_BACKENDS", "did,heygen"), ","),
			GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
			GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", ""),
			OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			DeepSeekAPIKey:       getEnv("DEEPSEEK_API_KEY", ""),
			DeepSeekModel:        getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			PlayHTAPIKey:         getEnv("PLAYHT_API_KEY", ""),
			PlayHTUserID:         getEnv("PLAYHT_USER_ID", ""),
			ElevenLabsAPIKey:     getEnv("ELEVENLABS_API_KEY", ""),
			AssemblyAIAPIKey:     getEnv("ASSEMBLYAI_API_KEY", ""),
			DeepgramAPIKey:       getEnv("DEEPGRAM_API_KEY", ""),
			DIDAPIKey:            getEnv("DID_API_KEY", ""),
			HeyGenAPIKey:         getEnv("HEYGEN_API_KEY", ""),
			GenerationTimeout:    time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 30)) * time.Second,
			SynthesisTimeout:     time.Duration(getEnvInt("SYNTHESIS_TIMEOUT_SECONDS", 30)) * time.Second,
			RecognitionTimeout:   time.Duration(getEnvInt("RECOGNITION_TIMEOUT_SECONDS", 30)) * time.Second,
			PollInterval:         time.Duration(getEnvInt("POLL_INTERVAL_MS", 1000)) * time.Millisecond,
			VideoPollMax:         getEnvInt("VIDEO_POLL_MAX", 60),
			TranscriptionPollMax: getEnvInt("TRANSCRIPTION_POLL_MAX", 30),
			MaxGenerationTokens:  getEnvInt("GENERATION_MAX_TOKENS", 500),
		},
		Interview: InterviewConfig{
			PromptContextTurns: getEnvInt("PROMPT_CONTEXT_TURNS", 6),
			MemoryWindow:       getEnvInt("MEMORY_WINDOW", 20),
			MaxMessageLength:   getEnvInt("MAX_MESSAGE_LENGTH", 5000),
			DefaultPersona:     getEnv("DEFAULT_PERSONA", "sarah-professional-hr"),
			PersonasFile:       getEnv("PERSONAS_FILE", ""),
			Retention:          time.Duration(getEnvInt("SESSION_RETENTION_MINUTES", 30)) * time.Minute,
			PassThreshold:      getEnvFloat("PASS_THRESHOLD", 7.0),
		},
		Worker: WorkerConfig{
			MaxRetries:   getEnvInt("WORKER_MAX_RETRIES", 3),
			RetryBackoff: time.Duration(getEnvInt("WORKER_RETRY_BACKOFF_SECONDS", 5)) * time.Second,
		},
	}
	if getEnvBool("DEBUG", false) {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
