// Package storage persists the song registry and fingerprint postings in
// SQLite. The in-memory SongIndex stays the query-time source of truth;
// storage exists so the index can be rebuilt across process restarts.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"echotrace/internal/fingerprint"
	"echotrace/internal/index"
)

const DefaultDBFile = "echotrace.sqlite3"

var errNilClient = errors.New("db client is nil")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Song struct {
	ID         uint32 `gorm:"primaryKey;autoIncrement"`
	RefID      string `gorm:"type:varchar(36);index:idx_ref_id"`
	Title      string `gorm:"uniqueIndex:idx_song_unique,priority:1" json:"title"`
	Artist     string `gorm:"uniqueIndex:idx_song_unique,priority:2" json:"artist"`
	DurationMs int    `json:"duration_ms"`
	CreatedAt  time.Time
}

type Fingerprint struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Hash        uint32 `gorm:"index:idx_hash" json:"hash"`
	SongID      uint32 `gorm:"index:idx_song" json:"song_id"`
	AnchorChunk int    `json:"anchor_chunk"`
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("ECHOTRACE_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Song{}, &Fingerprint{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RegisterSong creates a song row or returns the existing ID when the same
// title and artist were registered before.
func (c *DBClient) RegisterSong(title, artist string, durationMs int) (uint32, error) {
	if c == nil || c.DB == nil {
		return 0, errNilClient
	}

	var song Song
	err := c.DB.Where("title = ? AND artist = ?", title, artist).First(&song).Error
	if err == nil {
		return song.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("querying existing song: %w", err)
	}

	song = Song{RefID: uuid.NewString(), Title: title, Artist: artist, DurationMs: durationMs}
	if err := c.DB.Create(&song).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "constraint failed") {
			if fetchErr := c.DB.Where("title = ? AND artist = ?", title, artist).First(&song).Error; fetchErr != nil {
				return 0, fmt.Errorf("fetching song after constraint violation: %w", fetchErr)
			}
			return song.ID, nil
		}
		return 0, fmt.Errorf("creating song: %w", err)
	}
	return song.ID, nil
}

// StoreFingerprints persists one song's peak pairs as (hash, anchor chunk)
// rows. Pairs with unrepresentable keys are skipped, same as the index.
func (c *DBClient) StoreFingerprints(songID uint32, pairs []fingerprint.PeakPair) error {
	if c == nil || c.DB == nil {
		return errNilClient
	}

	rows := make([]Fingerprint, 0, len(pairs))
	for _, pair := range pairs {
		key, ok := fingerprint.NewKey(pair)
		if !ok {
			continue
		}
		rows = append(rows, Fingerprint{
			Hash:        uint32(key),
			SongID:      songID,
			AnchorChunk: pair.Anchor.TimeChunk,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	if err := c.DB.CreateInBatches(rows, 1000).Error; err != nil {
		return fmt.Errorf("storing fingerprints: %w", err)
	}
	return nil
}

// LoadIndex replays every stored posting into idx and returns the number of
// postings restored. Postings are inserted in key order, preserving the
// per-key anchor-chunk sort.
func (c *DBClient) LoadIndex(idx *index.SongIndex) (int, error) {
	if c == nil || c.DB == nil {
		return 0, errNilClient
	}

	var rows []Fingerprint
	if err := c.DB.Order("hash, anchor_chunk, song_id").Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("loading fingerprints: %w", err)
	}
	for _, row := range rows {
		idx.AddPosting(fingerprint.Key(row.Hash), index.Posting{
			AnchorChunk: row.AnchorChunk,
			SongID:      row.SongID,
		})
	}
	return len(rows), nil
}

func (c *DBClient) GetSongByID(songID uint32) (*Song, error) {
	if c == nil || c.DB == nil {
		return nil, errNilClient
	}
	var song Song
	if err := c.DB.First(&song, songID).Error; err != nil {
		return nil, err
	}
	return &song, nil
}

func (c *DBClient) ListSongs() ([]Song, error) {
	if c == nil || c.DB == nil {
		return nil, errNilClient
	}
	var songs []Song
	if err := c.DB.Order("id").Find(&songs).Error; err != nil {
		return nil, err
	}
	return songs, nil
}

func (c *DBClient) FingerprintCount(songID uint32) (int, error) {
	if c == nil || c.DB == nil {
		return 0, errNilClient
	}
	var count int64
	if err := c.DB.Model(&Fingerprint{}).Where("song_id = ?", songID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// DeleteSongByID removes a song and its stored fingerprints. This is a
// storage-level operation; the in-memory index is append-only and picks up
// the deletion on the next rebuild.
func (c *DBClient) DeleteSongByID(songID uint32) error {
	if c == nil || c.DB == nil {
		return errNilClient
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("song_id = ?", songID).Delete(&Fingerprint{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", songID).Delete(&Song{}).Error
	})
}
