package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trip-planner-service/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormKeyValueRepository implements KeyValueRepository on a SQL table
type GormKeyValueRepository struct {
	db *gorm.DB
}

// PlannerKV GORM model for database mapping
type PlannerKV struct {
	Key       string `gorm:"column:key;primaryKey"`
	Value     []byte `gorm:"column:value"`
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (PlannerKV) TableName() string {
	return "planner_kv"
}

// NewGormKeyValueRepository creates a new GORM key-value repository and
// migrates its table
func NewGormKeyValueRepository(db *gorm.DB) (repository.KeyValueRepository, error) {
	if err := db.AutoMigrate(&PlannerKV{}); err != nil {
		return nil, fmt.Errorf("failed to migrate planner_kv: %w", err)
	}
	return &GormKeyValueRepository{
		db: db,
	}, nil
}

// Get reads the value stored under key
func (r *GormKeyValueRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var row PlannerKV
	result := r.db.WithContext(ctx).Where("key = ?", key).First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read key %s: %w", key, result.Error)
	}
	return row.Value, nil
}

// Set upserts the value stored under key
func (r *GormKeyValueRepository) Set(ctx context.Context, key string, value []byte) error {
	row := PlannerKV{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to write key %s: %w", key, result.Error)
	}
	return nil
}
