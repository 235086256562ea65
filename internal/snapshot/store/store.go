// Package store keeps a database copy of the fetched collections. It serves
// as the primary source in database mode and as the stale fallback behind
// the spreadsheet otherwise.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"github.com/smallbiznis/studioledger/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SourceName = "database"
	batchSize  = 200
)

var (
	ErrNotSynced = errors.New("collection_not_synced")
	ErrConflict  = errors.New("mirror_write_conflict")
)

// SourceRecord is one mirrored row. Position keeps the source order.
type SourceRecord struct {
	ID         snowflake.ID      `gorm:"primaryKey;autoIncrement:false"`
	Collection string            `gorm:"size:32;not null;index:idx_source_records_collection_position,priority:1"`
	Position   int               `gorm:"not null;index:idx_source_records_collection_position,priority:2"`
	Payload    datatypes.JSONMap `gorm:"not null"`
	SyncedAt   time.Time         `gorm:"not null"`
}

func (SourceRecord) TableName() string { return "source_records" }

// SourceSync marks the last successful write of a collection.
type SourceSync struct {
	Collection string    `gorm:"primaryKey;size:32"`
	Records    int       `gorm:"not null"`
	SyncedAt   time.Time `gorm:"not null"`
}

func (SourceSync) TableName() string { return "source_syncs" }

type Store struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func New(conn *gorm.DB, genID *snowflake.Node) *Store {
	return &Store{db: conn, genID: genID}
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&SourceRecord{}, &SourceSync{})
}

func (s *Store) Name() string { return SourceName }

func (s *Store) Fetch(ctx context.Context, collection records.CollectionName) ([]records.RawRecord, error) {
	rows, _, err := s.Load(ctx, collection)
	return rows, err
}

// Load returns the mirrored rows in source order with the time they were written.
func (s *Store) Load(ctx context.Context, collection records.CollectionName) ([]records.RawRecord, time.Time, error) {
	var sync SourceSync
	err := s.db.WithContext(ctx).
		Where("collection = ?", string(collection)).
		Take(&sync).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, time.Time{}, fmt.Errorf("%w: %s", ErrNotSynced, collection)
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	var stored []SourceRecord
	if err := s.db.WithContext(ctx).
		Where("collection = ?", string(collection)).
		Order("position ASC").
		Find(&stored).Error; err != nil {
		return nil, time.Time{}, err
	}

	out := make([]records.RawRecord, 0, len(stored))
	for _, row := range stored {
		out = append(out, records.RawRecord(row.Payload))
	}
	return out, sync.SyncedAt, nil
}

// Replace swaps the mirrored copy of a collection atomically.
func (s *Store) Replace(ctx context.Context, collection records.CollectionName, rows []records.RawRecord, syncedAt time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection = ?", string(collection)).Delete(&SourceRecord{}).Error; err != nil {
			return err
		}

		if len(rows) > 0 {
			batch := make([]SourceRecord, 0, len(rows))
			for i, row := range rows {
				batch = append(batch, SourceRecord{
					ID:         s.genID.Generate(),
					Collection: string(collection),
					Position:   i,
					Payload:    datatypes.JSONMap(row),
					SyncedAt:   syncedAt,
				})
			}
			if err := tx.CreateInBatches(batch, batchSize).Error; err != nil {
				return err
			}
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}},
			DoUpdates: clause.AssignmentColumns([]string{"records", "synced_at"}),
		}).Create(&SourceSync{
			Collection: string(collection),
			Records:    len(rows),
			SyncedAt:   syncedAt,
		}).Error
	})
	if db.IsDuplicateKeyErr(err) {
		return errors.Join(ErrConflict, err)
	}
	return err
}
