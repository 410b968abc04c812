// Package store keeps an append-only record of completed batches and
// their per-item outcomes for status reporting. It is not a persisted
// queue: nothing in here is replayed on restart.
package store

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// BatchRecord summarizes one finished conversion batch.
type BatchRecord struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Format    string    `json:"format"`
	Quality   int       `json:"quality"`
	Successes int       `json:"successes"`
	Failures  int       `json:"failures"`
	OutputDir string    `json:"output_dir"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemRecord is the outcome of one source within a batch.
type ItemRecord struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BatchID      string    `gorm:"index" json:"batch_id"`
	SourcePath   string    `json:"source_path"`
	OutputPath   string    `json:"output_path"`
	Status       string    `gorm:"index" json:"status"`
	ErrorMessage string    `json:"error_message"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// Stats aggregates the recorded history.
type Stats struct {
	TotalBatches int64 `json:"total_batches"`
	TotalItems   int64 `json:"total_items"`
	Successes    int64 `json:"successes"`
	Failures     int64 `json:"failures"`
}

type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the history database at path and migrates the
// schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.AutoMigrate(&BatchRecord{}, &ItemRecord{}); err != nil {
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) InsertBatch(rec *BatchRecord) error {
	return s.db.Create(rec).Error
}

func (s *Store) InsertItem(rec *ItemRecord) error {
	return s.db.Create(rec).Error
}

// ListBatches returns the most recent batches, newest first.
func (s *Store) ListBatches(limit int) ([]BatchRecord, error) {
	var rows []BatchRecord
	err := s.db.Order("created_at desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// ListItems returns the items of one batch in recorded order.
func (s *Store) ListItems(batchID string) ([]ItemRecord, error) {
	var rows []ItemRecord
	err := s.db.Where("batch_id = ?", batchID).Order("id asc").Find(&rows).Error
	return rows, err
}

func (s *Store) GetStats() (Stats, error) {
	var st Stats
	if err := s.db.Model(&BatchRecord{}).Count(&st.TotalBatches).Error; err != nil {
		return st, err
	}
	if err := s.db.Model(&ItemRecord{}).Count(&st.TotalItems).Error; err != nil {
		return st, err
	}
	if err := s.db.Model(&ItemRecord{}).Where("status = ?", StatusSuccess).Count(&st.Successes).Error; err != nil {
		return st, err
	}
	if err := s.db.Model(&ItemRecord{}).Where("status = ?", StatusFailed).Count(&st.Failures).Error; err != nil {
		return st, err
	}
	return st, nil
}
