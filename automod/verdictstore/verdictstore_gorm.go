package verdictstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists verdicts in a relational table, surviving restarts.
// Used for the reviewer-curated flag list in particular.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

type verdictRow struct {
	UniqueID     string `gorm:"primaryKey"`
	ShouldDelete bool
	Category     string
	Score        float64
	Flagged      bool
	CheckedAt    time.Time
}

func (verdictRow) TableName() string {
	return "verdicts"
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&verdictRow{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// NewSqliteStore opens (or creates) a sqlite-backed store at the given path.
func NewSqliteStore(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return NewGormStore(db)
}

func (s *GormStore) Get(ctx context.Context, uniqueID string) (*Verdict, error) {
	var row verdictRow
	err := s.db.WithContext(ctx).First(&row, "unique_id = ?", uniqueID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Verdict{
		ShouldDelete: row.ShouldDelete,
		Category:     row.Category,
		Score:        row.Score,
		Flagged:      row.Flagged,
		CheckedAt:    row.CheckedAt,
	}, nil
}

func (s *GormStore) Put(ctx context.Context, uniqueID string, v Verdict) error {
	row := verdictRow{
		UniqueID:     uniqueID,
		ShouldDelete: v.ShouldDelete,
		Category:     v.Category,
		Score:        v.Score,
		Flagged:      v.Flagged,
		CheckedAt:    v.CheckedAt,
	}
	// upsert, but never clobber a reviewer flag with pipeline output
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "unique_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"should_delete": row.ShouldDelete,
			"category":      row.Category,
			"score":         row.Score,
			"checked_at":    row.CheckedAt,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "verdicts", Name: "flagged"}, Value: false},
		}},
	}).Create(&row).Error
}

func (s *GormStore) Flag(ctx context.Context, uniqueID string) error {
	row := verdictRow{
		UniqueID:     uniqueID,
		ShouldDelete: true,
		Flagged:      true,
		CheckedAt:    time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "unique_id"}},
		UpdateAll: true,
	}).Create(&row).Error
}
