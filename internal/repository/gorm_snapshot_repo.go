package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"buildpos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// snapshotRow is the storage shape: one row per logical table. The whole
// collection is a JSONB blob — per-record columns would change the store's
// replace-everything contract.
type snapshotRow struct {
	Name      string `gorm:"primaryKey"`
	Version   int64  `gorm:"not null;default:0"`
	Body      []byte `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (snapshotRow) TableName() string { return "snapshots" }

type gormSnapshotRepo struct{ db *gorm.DB }

// NewGormSnapshotRepository returns the Postgres-backed snapshot store.
// It migrates the snapshots table on startup.
func NewGormSnapshotRepository(db *gorm.DB) (SnapshotRepository, error) {
	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, err
	}
	return &gormSnapshotRepo{db: db}, nil
}

func (r *gormSnapshotRepo) Get(ctx context.Context, table model.Table) (*Snapshot, error) {
	var row snapshotRow
	err := r.db.WithContext(ctx).First(&row, "name = ?", string(table)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Snapshot{Table: table, Version: row.Version, Items: json.RawMessage(row.Body)}, nil
}

func (r *gormSnapshotRepo) Replace(ctx context.Context, table model.Table, baseVersion int64, items json.RawMessage) (*Snapshot, error) {
	newVersion := baseVersion + 1

	if baseVersion == 0 {
		// First write for this table. ON CONFLICT DO NOTHING + RowsAffected
		// check keeps two racing first-writers from both succeeding.
		res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
			Create(&snapshotRow{Name: string(table), Version: newVersion, Body: items})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			return &Snapshot{Table: table, Version: newVersion, Items: items}, nil
		}
		// Row already exists — fall through to the guarded UPDATE, which will
		// conflict unless someone reset the version to 0.
	}

	res := r.db.WithContext(ctx).Model(&snapshotRow{}).
		Where("name = ? AND version = ?", string(table), baseVersion).
		Updates(map[string]interface{}{"version": newVersion, "body": []byte(items)})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrVersionConflict
	}
	return &Snapshot{Table: table, Version: newVersion, Items: items}, nil
}
