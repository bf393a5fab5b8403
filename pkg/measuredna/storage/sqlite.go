//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"bytes"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/ulikunitz/xz"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "measuredna.sqlite3"
const errDBClientNil = "db client is nil"

// ErrScoreNotFound is returned when no score has the requested ID.
var ErrScoreNotFound = errors.New("score not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// ScoreRecord is a stored MusicXML document. Content is kept xz-compressed;
// fingerprints are never stored, they are rebuilt on every load.
type ScoreRecord struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	Title        string `gorm:"index:idx_score_meta,priority:1" json:"title"`
	Composer     string `gorm:"index:idx_score_meta,priority:2" json:"composer"`
	FileName     string `json:"file_name"`
	ContentHash  string `gorm:"uniqueIndex:idx_content_hash;type:varchar(64)" json:"content_hash"`
	MeasureCount int    `json:"measure_count"`
	SizeBytes    int64  `json:"size_bytes"`
	Content      []byte `json:"-"`
	CreatedAt    time.Time
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("MEASURE_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !os.IsExist(err) {
		if filepath.Dir(dbPath) != "." {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), gormConfig)
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

	if err := db.AutoMigrate(&ScoreRecord{}); err != nil {
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

// SaveScore stores content and returns its ID. Storing the same bytes twice
// returns the first record's ID.
func (c *DBClient) SaveScore(title, composer, fileName string, measureCount int, content []byte) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	var existing ScoreRecord
	err := c.DB.Where("content_hash = ?", hash).First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("querying existing score: %w", err)
	}

	packed, err := compress(content)
	if err != nil {
		return "", err
	}

	rec := ScoreRecord{
		ID:           uuid.NewString(),
		Title:        title,
		Composer:     composer,
		FileName:     fileName,
		ContentHash:  hash,
		MeasureCount: measureCount,
		SizeBytes:    int64(len(content)),
		Content:      packed,
	}
	if err := c.DB.Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			if fetchErr := c.DB.Where("content_hash = ?", hash).First(&existing).Error; fetchErr != nil {
				return "", fmt.Errorf("fetching score after constraint violation: %w", fetchErr)
			}
			return existing.ID, nil
		}
		return "", fmt.Errorf("creating score: %w", err)
	}
	return rec.ID, nil
}

// GetScore returns the record without its content.
func (c *DBClient) GetScore(id string) (*ScoreRecord, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rec ScoreRecord
	err := c.DB.Omit("content").Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("score %s: %w", id, ErrScoreNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying score: %w", err)
	}
	return &rec, nil
}

// GetScoreContent returns the decompressed MusicXML bytes and the stored
// file name.
func (c *DBClient) GetScoreContent(id string) ([]byte, string, error) {
	if c == nil || c.DB == nil {
		return nil, "", errors.New(errDBClientNil)
	}
	var rec ScoreRecord
	err := c.DB.Select("id", "file_name", "content").Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", fmt.Errorf("score %s: %w", id, ErrScoreNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("querying score content: %w", err)
	}

	content, err := decompress(rec.Content)
	if err != nil {
		return nil, "", fmt.Errorf("score %s: %w", id, err)
	}
	return content, rec.FileName, nil
}

func (c *DBClient) ListScores() ([]ScoreRecord, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var recs []ScoreRecord
	if err := c.DB.Omit("content").Order("created_at asc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing scores: %w", err)
	}
	return recs, nil
}

func (c *DBClient) CountScores() (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var count int64
	if err := c.DB.Model(&ScoreRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting scores: %w", err)
	}
	return count, nil
}

func (c *DBClient) DeleteScoreByID(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	res := c.DB.Where("id = ?", id).Delete(&ScoreRecord{})
	if res.Error != nil {
		return fmt.Errorf("deleting score: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("score %s: %w", id, ErrScoreNotFound)
	}
	return nil
}

func compress(content []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("creating xz writer: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		return nil, fmt.Errorf("compressing score: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing xz writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(packed []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, fmt.Errorf("opening xz stream: %w", err)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing score: %w", err)
	}
	return content, nil
}
