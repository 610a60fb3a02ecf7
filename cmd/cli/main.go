package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"echotrace/internal/audio"
	"echotrace/internal/engine"
	"echotrace/internal/storage"
	"echotrace/pkg/logger"
)

var (
	dbPath     string
	tempDir    string
	sampleRate int
	workers    int
)

func init() {
	godotenv.Load()

	flag.StringVar(&dbPath, "db", getEnvOrDefault("ECHOTRACE_DB_PATH", storage.DefaultDBFile), "Path to the SQLite database file")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("ECHOTRACE_TEMP_DIR", os.TempDir()), "Directory for temporary audio conversion files")
	flag.IntVar(&sampleRate, "rate", 11025, "Audio sample rate for processing")
	flag.IntVar(&workers, "workers", runtime.NumCPU(), "Concurrent workers for bulk indexing")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	log := logger.GetLogger()

	// Global flags come before the command; flag parsing stops at the
	// first non-flag argument.
	flag.Parse()
	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}
	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "add":
		handleAdd(args)
	case "bulk":
		handleBulk(args)
	case "match":
		handleMatch(args)
	case "list":
		handleList()
	case "delete":
		handleDelete(args)
	default:
		log.Warnf("unknown command: %s", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`echotrace - acoustic fingerprint search engine

Usage:
  echotrace add <audio-file> -title <t> -artist <a>   index one reference song
  echotrace bulk <dir>                                index every audio file under dir
  echotrace match <audio-file>                        identify a recording
  echotrace list                                      list indexed songs
  echotrace delete <song-id>                          remove a song from storage

Global flags (before the command):
  -db, -temp, -rate, -workers`)
}

func openAll() (*storage.DBClient, *engine.Engine) {
	log := logger.GetLogger()
	os.Setenv("ECHOTRACE_DB_PATH", dbPath)

	db, err := storage.NewDBClient()
	if err != nil {
		log.Fatalf("opening storage: %v", err)
	}
	eng, err := engine.New()
	if err != nil {
		log.Fatalf("building engine: %v", err)
	}
	return db, eng
}

// loadSignal converts any container format to canonical mono WAV, then
// decodes it into integer samples.
func loadSignal(ctx context.Context, path string) ([]int, error) {
	wavPath, err := audio.ConvertToMonoWAV(ctx, path, tempDir, audio.ConvertWAVConfig{SampleRate: sampleRate})
	if err != nil {
		return nil, fmt.Errorf("audio conversion failed: %w", err)
	}
	samples, _, err := audio.ReadWAV(wavPath)
	if err != nil {
		return nil, fmt.Errorf("reading wav: %w", err)
	}
	return samples, nil
}

func handleAdd(args []string) {
	log := logger.GetLogger()

	if len(args) < 1 {
		log.Fatalf("add: missing audio file")
	}
	audioPath := args[0]

	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	title := addCmd.String("title", "", "Song title (required)")
	artist := addCmd.String("artist", "", "Artist name (required)")
	addCmd.Parse(args[1:])
	if *title == "" || *artist == "" {
		log.Fatalf("add: -title and -artist are required")
	}

	db, eng := openAll()
	defer db.Close()

	samples, err := loadSignal(context.Background(), audioPath)
	if err != nil {
		log.Fatalf("add: %v", err)
	}

	durationMs := len(samples) * 1000 / sampleRate
	songID, err := db.RegisterSong(*title, *artist, durationMs)
	if err != nil {
		log.Fatalf("registering song: %v", err)
	}

	pairs := eng.Fingerprint(samples)
	if err := db.StoreFingerprints(songID, pairs); err != nil {
		log.Fatalf("storing fingerprints: %v", err)
	}
	log.Infof("added song %d (%s by %s): %d pairs", songID, *title, *artist, len(pairs))
}

func handleBulk(args []string) {
	log := logger.GetLogger()

	if len(args) < 1 {
		log.Fatalf("bulk: missing directory")
	}
	root := args[0]

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".wav", ".mp3", ".m4a", ".flac", ".ogg":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("walking %s: %v", root, err)
	}
	if len(paths) == 0 {
		log.Fatalf("no audio files under %s", root)
	}

	db, eng := openAll()
	defer db.Close()

	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(int64(len(paths)),
		mpb.PrependDecorators(
			decor.Name("Indexing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex // serializes the register+store pair per song
	ctx := context.Background()

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if err := bulkOne(ctx, db, eng, &mu, path); err != nil {
					log.Warnf("skipping %s: %v", path, err)
				}
				bar.Increment()
			}
		}()
	}
	for _, path := range paths {
		jobs <- path
	}
	close(jobs)
	wg.Wait()
	p.Wait()

	log.Infof("indexed %d files", len(paths))
}

func bulkOne(ctx context.Context, db *storage.DBClient, eng *engine.Engine, mu *sync.Mutex, path string) error {
	samples, err := loadSignal(ctx, path)
	if err != nil {
		return err
	}
	pairs := eng.Fingerprint(samples)

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	artist := filepath.Base(filepath.Dir(path))
	durationMs := len(samples) * 1000 / sampleRate

	mu.Lock()
	defer mu.Unlock()
	songID, err := db.RegisterSong(title, artist, durationMs)
	if err != nil {
		return err
	}
	return db.StoreFingerprints(songID, pairs)
}

func handleMatch(args []string) {
	log := logger.GetLogger()

	if len(args) < 1 {
		log.Fatalf("match: missing audio file")
	}
	queryPath := args[0]

	db, eng := openAll()
	defer db.Close()

	restored, err := db.LoadIndex(eng.Index())
	if err != nil {
		log.Fatalf("loading index: %v", err)
	}
	log.Debugf("restored %d postings", restored)

	samples, err := loadSignal(context.Background(), queryPath)
	if err != nil {
		log.Fatalf("match: %v", err)
	}

	matches := eng.MatchSignal(samples)
	if len(matches) == 0 {
		fmt.Println("No recognizable match.")
		return
	}
	for i, m := range matches {
		song, err := db.GetSongByID(m.SongID)
		if err != nil {
			log.Warnf("song %d not in storage: %v", m.SongID, err)
			continue
		}
		fmt.Printf("%2d) %s - %s  score=%.1f\n", i+1, song.Artist, song.Title, m.Score)
	}
}

func handleList() {
	log := logger.GetLogger()

	db, _ := openAll()
	defer db.Close()

	songs, err := db.ListSongs()
	if err != nil {
		log.Fatalf("listing songs: %v", err)
	}
	if len(songs) == 0 {
		fmt.Println("No songs indexed.")
		return
	}
	for _, s := range songs {
		fmt.Printf("%4d  %s - %s  (%.1fs)\n", s.ID, s.Artist, s.Title, float64(s.DurationMs)/1000)
	}
}

func handleDelete(args []string) {
	log := logger.GetLogger()

	if len(args) < 1 {
		log.Fatalf("delete: missing song id")
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		log.Fatalf("delete: bad song id %q", args[0])
	}

	db, _ := openAll()
	defer db.Close()

	if err := db.DeleteSongByID(uint32(id)); err != nil {
		log.Fatalf("deleting song %d: %v", id, err)
	}
	log.Infof("deleted song %d", id)
}
