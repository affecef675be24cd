package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	GigaChat  GigaChatConfig
	Knowledge KnowledgeConfig
	History   HistoryConfig
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	Model              string
	InsecureSkipVerify bool
	RequestTimeout     time.Duration
}

type KnowledgeConfig struct {
	Path string
}

// HistoryConfig describes the optional chat-history store. When neither a
// Firestore project nor a database host is configured, persistence is
// disabled and the service runs without it.
type HistoryConfig struct {
	FirestoreProject string
	Database         DatabaseConfig
	AppendTimeout    time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Enabled reports whether any history backend is configured.
func (h HistoryConfig) Enabled() bool {
	return h.FirestoreProject != "" || h.Database.Host != ""
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	// No .env file is fine, environment variables are used directly
	// (useful for Docker/K8s)

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "60"))
	requestTimeout, _ := strconv.Atoi(getEnv("GIGACHAT_REQUEST_TIMEOUT_SECONDS", "30"))
	appendTimeout, _ := strconv.Atoi(getEnv("HISTORY_APPEND_TIMEOUT_SECONDS", "5"))
	insecureSkipVerify := getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "false") == "true"

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
			InsecureSkipVerify: insecureSkipVerify,
			RequestTimeout:     time.Duration(requestTimeout) * time.Second,
		},
		Knowledge: KnowledgeConfig{
			Path: getEnv("KB_PATH", "kb/ortho_kb.json"),
		},
		History: HistoryConfig{
			FirestoreProject: getEnv("FIRESTORE_PROJECT_ID", ""),
			Database: DatabaseConfig{
				Host:     getEnv("HISTORY_DB_HOST", ""),
				Port:     getEnv("HISTORY_DB_PORT", "5432"),
				User:     getEnv("HISTORY_DB_USER", "postgres"),
				Password: getEnv("HISTORY_DB_PASSWORD", "postgres"),
				DBName:   getEnv("HISTORY_DB_NAME", "bracescarebot"),
				SSLMode:  getEnv("HISTORY_DB_SSLMODE", "disable"),
			},
			AppendTimeout: time.Duration(appendTimeout) * time.Second,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
