// Package gormstore is a worldstore.Backend on top of gorm, used with
// Postgres.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mercari.io/worldstore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"
)

var _ worldstore.Backend = (*Store)(nil)

type record struct {
	Collection string `gorm:"primaryKey;column:collection"`
	ID         string `gorm:"primaryKey;column:id"`
	V          int    `gorm:"column:v;not null;index:world_records_version"`
	D          []byte `gorm:"column:d"`
}

func (record) TableName() string { return "world_records" }

func (r *record) toRecord() *worldstore.Record {
	return &worldstore.Record{
		Key: worldstore.NewKey(r.Collection, r.ID),
		V:   r.V,
		D:   r.D,
	}
}

// Store persists records in a single table.
type Store struct {
	db *gorm.DB
}

type Option interface {
	Apply(*gorm.Config)
}

// WithLogger routes gorm's warnings and slow queries to logf.
func WithLogger(logf worldstore.Logf) Option {
	return &withLogger{logf}
}

type withLogger struct{ logf worldstore.Logf }

func (w *withLogger) Apply(c *gorm.Config) {
	c.Logger = gormLogger.New(printf(w.logf), gormLogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormLogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type printf worldstore.Logf

func (p printf) Printf(format string, args ...interface{}) {
	p(context.Background(), "gormstore: "+format, args...)
}

// Open connects to the Postgres database at dsn.
func Open(dsn string, opts ...Option) (*Store, error) {
	config := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	}
	for _, opt := range opts {
		opt.Apply(config)
	}

	db, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("gormstore: failed to connect to Postgres: %w", err)
	}
	return New(db)
}

// New uses db as is and migrates the records table.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("gormstore: migrate: %w", err)
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

func (s *Store) byKey(ctx context.Context, key worldstore.Key) *gorm.DB {
	return s.db.WithContext(ctx).Where("collection = ? AND id = ?", key.Collection, key.ID)
}

func (s *Store) FindByID(ctx context.Context, key worldstore.Key) (*worldstore.Record, error) {
	var row record
	err := s.byKey(ctx, key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, worldstore.ErrNoSuchRecord
	} else if err != nil {
		return nil, fmt.Errorf("gormstore: find %s: %w", key.String(), err)
	}
	return row.toRecord(), nil
}

func (s *Store) Find(ctx context.Context, q *worldstore.Query) ([]*worldstore.Record, error) {
	tx := s.db.WithContext(ctx).Where("collection = ?", q.Collection)
	if len(q.IDs) != 0 {
		tx = tx.Where("id IN ?", q.IDs)
	}
	if q.StartAfter != "" {
		tx = tx.Where("id > ?", q.StartAfter)
	}
	if 0 < q.VersionBelow {
		tx = tx.Where("v < ?", q.VersionBelow)
	}
	if 0 < q.Limit {
		tx = tx.Limit(q.Limit)
	}

	var rows []record
	if err := tx.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gormstore: find in %s: %w", q.Collection, err)
	}

	list := make([]*worldstore.Record, 0, len(rows))
	for idx := range rows {
		list = append(list, rows[idx].toRecord())
	}
	return list, nil
}

func (s *Store) Create(ctx context.Context, rec *worldstore.Record) error {
	row := &record{Collection: rec.Key.Collection, ID: rec.Key.ID, V: rec.V, D: rec.D}
	err := s.db.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return worldstore.ErrRecordExists
	} else if err != nil {
		return fmt.Errorf("gormstore: create %s: %w", rec.Key.String(), err)
	}
	return nil
}

func (s *Store) FindByIDAndUpdate(ctx context.Context, key worldstore.Key, rec *worldstore.Record, upsert bool) (*worldstore.Record, error) {
	row := &record{Collection: key.Collection, ID: key.ID, V: rec.V, D: rec.D}
	if upsert {
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"v", "d"}),
		}).Create(row).Error
		if err != nil {
			return nil, fmt.Errorf("gormstore: upsert %s: %w", key.String(), err)
		}
		return row.toRecord(), nil
	}

	res := s.byKey(ctx, key).Model(&record{}).Updates(map[string]interface{}{"v": rec.V, "d": rec.D})
	if res.Error != nil {
		return nil, fmt.Errorf("gormstore: update %s: %w", key.String(), res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, worldstore.ErrNoSuchRecord
	}
	return row.toRecord(), nil
}

func (s *Store) Exists(ctx context.Context, key worldstore.Key) (bool, error) {
	var n int64
	if err := s.byKey(ctx, key).Model(&record{}).Count(&n).Error; err != nil {
		return false, fmt.Errorf("gormstore: exists %s: %w", key.String(), err)
	}
	return 0 < n, nil
}

func (s *Store) Delete(ctx context.Context, key worldstore.Key) error {
	if err := s.byKey(ctx, key).Delete(&record{}).Error; err != nil {
		return fmt.Errorf("gormstore: delete %s: %w", key.String(), err)
	}
	return nil
}
