package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type profileRecord struct {
	Username  string         `gorm:"primaryKey;size:128"`
	Skills    map[string]int `gorm:"serializer:json;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (profileRecord) TableName() string { return "player_profiles" }

type PostgresStore struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return NewGormStore(db)
}

// NewGormStore migrates the profile table on db and wraps it.
func NewGormStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&profileRecord{}); err != nil {
		return nil, fmt.Errorf("migrate profiles: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Load(ctx context.Context, username string) (Profile, error) {
	var rec profileRecord
	err := s.db.WithContext(ctx).First(&rec, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("load profile %s: %w", username, err)
	}
	return fromRecord(rec), nil
}

func (s *PostgresStore) Save(ctx context.Context, p Profile) error {
	rec := toRecord(stamp(p, nil, time.Now()))
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"skills", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save profile %s: %w", p.Username, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(p Profile) profileRecord {
	skills := p.Skills
	if skills == nil {
		skills = map[string]int{}
	}
	return profileRecord{
		Username:  p.Username,
		Skills:    skills,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromRecord(r profileRecord) Profile {
	skills := r.Skills
	if skills == nil {
		skills = map[string]int{}
	}
	return Profile{
		Username:  r.Username,
		Skills:    skills,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
