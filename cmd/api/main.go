package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/example/jobtracker/internal/ai"
	"github.com/example/jobtracker/internal/blob"
	"github.com/example/jobtracker/internal/classify"
	"github.com/example/jobtracker/internal/config"
	"github.com/example/jobtracker/internal/httpapi"
	"github.com/example/jobtracker/internal/store"
)

func main() {
	loadDotEnv()
	cfg := config.Load()
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("mkdir data dir: %v", err)
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "jobtracker.db"))
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	blobs := blob.LocalFS{Root: cfg.DataDir}

	var gen classify.Generator
	gemini, err := ai.NewGeminiFromConfig(context.Background(), cfg)
	if err != nil {
		log.Fatalf("gemini config error: %v", err)
	}
	if gemini == nil {
		log.Printf("ai disabled (GOOGLE_CLOUD_PROJECT not set)")
	} else {
		defer gemini.Close()
		gen = gemini
	}

	server := httpapi.NewServer(st, blobs, gen, cfg)

	log.Printf("API listening on %s (owner=%s)", cfg.Addr, cfg.DefaultOwner)
	if err := http.ListenAndServe(cfg.Addr, server.Router()); err != nil {
		log.Fatalf("listen: %v", err)
	}
}

func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
