// Package journal persists a history of runs in a local SQLite database.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/raoulx24/autosnap/internal/report"
)

// Run is one recorded invocation.
type Run struct {
	ID        string    `gorm:"primaryKey"`
	StartedAt time.Time `gorm:"index"`
	EndedAt   time.Time
	Mode      string
	Label     string `gorm:"index"`
	Keep      int
	DryRun    bool
	Workloads int
	Failures  int
	Outcomes  []Outcome `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// Outcome is the result of one workload within a run.
type Outcome struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"index"`
	WorkloadID int    `gorm:"index"`
	Kind       string
	Phase      string
	Failed     bool
	Created    string
	Deleted    int
	Replicated bool
	Errors     string
}

// Store records runs.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the journal at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&Run{}, &Outcome{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores r with its outcomes.
func (s *Store) Record(ctx context.Context, r *report.Report) error {
	if r.RunID == "" {
		return errors.New("report has no run id")
	}
	run := Run{
		ID:        r.RunID,
		StartedAt: r.Started.UTC(),
		EndedAt:   r.Finished.UTC(),
		Mode:      r.Mode,
		Label:     r.Label,
		Keep:      r.Keep,
		DryRun:    r.DryRun,
		Workloads: len(r.Workloads),
		Failures:  r.Failures(),
	}
	for _, o := range r.Workloads {
		run.Outcomes = append(run.Outcomes, Outcome{
			WorkloadID: o.ID,
			Kind:       o.Kind,
			Phase:      o.Phase,
			Failed:     o.Failed,
			Created:    o.Created,
			Deleted:    len(o.Deleted),
			Replicated: o.Replicated,
			Errors:     strings.Join(o.Errors, "\n"),
		})
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("recording run %s: %w", r.RunID, err)
	}
	return nil
}

// Recent returns the latest runs, newest first, without outcomes.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	q := s.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Outcomes returns the workload outcomes of a run ordered by workload id.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]Outcome, error) {
	var out []Outcome
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("workload_id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
