package config

import (
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	Addr            string
	DataDir         string
	DefaultOwner    string
	GmailCredsPath  string
	GmailTokenPath  string
	GeminiProject   string
	GeminiLocation  string
	GeminiModel     string
	SyncMaxResults  int
	SyncMaxAICalls  int
}

func Load() Config {
	dataDir := getenv("JOBTRACKER_DATA_DIR", "local-data")
	return Config{
		Addr:           getenv("JOBTRACKER_ADDR", ":8000"),
		DataDir:        dataDir,
		DefaultOwner:   getenv("JOBTRACKER_DEFAULT_OWNER", "demo"),
		GmailCredsPath: getenv("JOBTRACKER_GMAIL_CREDENTIALS", "credentials.json"),
		GmailTokenPath: getenv("JOBTRACKER_GMAIL_TOKEN", filepath.Join(dataDir, "token.json")),
		GeminiProject:  os.Getenv("GOOGLE_CLOUD_PROJECT"),
		GeminiLocation: getenv("GOOGLE_CLOUD_LOCATION", "us-central1"),
		GeminiModel:    getenv("JOBTRACKER_GEMINI_MODEL", "gemini-1.5-flash"),
		SyncMaxResults: getenvInt("JOBTRACKER_SYNC_MAX_RESULTS", 50),
		SyncMaxAICalls: getenvInt("JOBTRACKER_SYNC_MAX_AI_CALLS", 10),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
