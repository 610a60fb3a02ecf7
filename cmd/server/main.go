package main

import (
	"flag"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"echotrace/internal/engine"
	"echotrace/internal/storage"
	"echotrace/pkg/logger"
)

var (
	port           int
	dbPath         string
	tempDir        string
	sampleRate     int
	allowedOrigins string
)

func init() {
	godotenv.Load()

	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("ECHOTRACE_DB_PATH", storage.DefaultDBFile), "Path to the SQLite database file")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("ECHOTRACE_TEMP_DIR", os.TempDir()), "Directory for temporary audio conversion files")
	flag.IntVar(&sampleRate, "rate", 11025, "Audio sample rate for processing")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated allowed CORS origins, * for all")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	log := logger.GetLogger()
	flag.Parse()

	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		log.Fatalf("opening storage: %v", err)
	}
	defer db.Close()

	eng, err := engine.New()
	if err != nil {
		log.Fatalf("building engine: %v", err)
	}
	restored, err := db.LoadIndex(eng.Index())
	if err != nil {
		log.Fatalf("loading index: %v", err)
	}
	log.Infof("restored %d postings from %s", restored, dbPath)

	srv := NewServer(db, eng, &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		TempDir:        tempDir,
		SampleRate:     sampleRate,
		AllowedOrigins: origins,
	})
	if err := srv.Start(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
