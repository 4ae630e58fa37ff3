// Package store persists game snapshots in Postgres for crash recovery and
// keeps an archive of finished games. It is optional: without a DSN the
// process runs memory-only and sessions do not survive a restart.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/slovoigra/spelling-backend/internal/engine"
	"github.com/slovoigra/spelling-backend/internal/session"
	"github.com/slovoigra/spelling-backend/internal/teams"
)

var ErrNoArchive = errors.New("no archived game for channel")

type Store struct {
	db *gorm.DB
}

// sessionRecord is the live snapshot row, one per channel with an
// unfinished game.
type sessionRecord struct {
	Channel   string `gorm:"primaryKey"`
	Root      string
	Phase     string
	Deadline  time.Time
	Found     []byte `gorm:"type:jsonb"`
	Scores    []byte `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (sessionRecord) TableName() string { return "spelling_sessions" }

// archiveRecord is a finished game kept for the "previous game" query.
type archiveRecord struct {
	ID       uint   `gorm:"primaryKey"`
	Channel  string `gorm:"index"`
	Root     string
	Phase    string
	Deadline time.Time
	Found    []byte `gorm:"type:jsonb"`
	Scores   []byte `gorm:"type:jsonb"`
	EndedAt  time.Time
}

func (archiveRecord) TableName() string { return "spelling_archives" }

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.AutoMigrate(&sessionRecord{}, &archiveRecord{}); err != nil {
		return nil, fmt.Errorf("migrating store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save upserts the channel's live snapshot. Called after every accepted
// guess, so a crash loses at most the guess in flight.
func (s *Store) Save(ctx context.Context, snap session.Snapshot) error {
	rec, err := toRecord(snap)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
}

func (s *Store) Delete(ctx context.Context, channel string) error {
	return s.db.WithContext(ctx).
		Delete(&sessionRecord{}, "channel = ?", channel).Error
}

// Archive stores a finished game for the previous-game query.
func (s *Store) Archive(ctx context.Context, snap session.Snapshot) error {
	rec, err := toRecord(snap)
	if err != nil {
		return err
	}
	arch := archiveRecord{
		Channel:  rec.Channel,
		Root:     rec.Root,
		Phase:    rec.Phase,
		Deadline: rec.Deadline,
		Found:    rec.Found,
		Scores:   rec.Scores,
		EndedAt:  time.Now(),
	}
	return s.db.WithContext(ctx).Create(&arch).Error
}

// LoadActive returns the snapshots of games that were still running when
// the process last stopped, for boot-time recovery.
func (s *Store) LoadActive(ctx context.Context) ([]session.Snapshot, error) {
	var records []sessionRecord
	err := s.db.WithContext(ctx).
		Where("phase = ?", string(engine.PhaseActive)).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("loading active snapshots: %w", err)
	}

	snaps := make([]session.Snapshot, 0, len(records))
	for _, rec := range records {
		snap, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// LatestArchive returns the most recently finished game for the channel and
// when it ended.
func (s *Store) LatestArchive(ctx context.Context, channel string) (session.Snapshot, time.Time, error) {
	var rec archiveRecord
	err := s.db.WithContext(ctx).
		Where("channel = ?", channel).
		Order("ended_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return session.Snapshot{}, time.Time{}, ErrNoArchive
	}
	if err != nil {
		return session.Snapshot{}, time.Time{}, fmt.Errorf("loading archive: %w", err)
	}

	snap, err := fromRecord(sessionRecord{
		Channel:  rec.Channel,
		Root:     rec.Root,
		Phase:    rec.Phase,
		Deadline: rec.Deadline,
		Found:    rec.Found,
		Scores:   rec.Scores,
	})
	return snap, rec.EndedAt, err
}

func toRecord(snap session.Snapshot) (sessionRecord, error) {
	found, err := json.Marshal(snap.Found)
	if err != nil {
		return sessionRecord{}, fmt.Errorf("encoding found words: %w", err)
	}
	scores, err := json.Marshal(snap.Scores)
	if err != nil {
		return sessionRecord{}, fmt.Errorf("encoding scores: %w", err)
	}
	return sessionRecord{
		Channel:  snap.Channel,
		Root:     snap.Root,
		Phase:    string(snap.Phase),
		Deadline: snap.Deadline,
		Found:    found,
		Scores:   scores,
	}, nil
}

func fromRecord(rec sessionRecord) (session.Snapshot, error) {
	snap := session.Snapshot{
		Channel:  rec.Channel,
		Root:     rec.Root,
		Phase:    engine.Phase(rec.Phase),
		Deadline: rec.Deadline,
		Found:    make(map[string]engine.Finder),
		Scores:   make(map[teams.Team]int),
	}
	if len(rec.Found) > 0 {
		if err := json.Unmarshal(rec.Found, &snap.Found); err != nil {
			return session.Snapshot{}, fmt.Errorf("decoding found words: %w", err)
		}
	}
	if len(rec.Scores) > 0 {
		if err := json.Unmarshal(rec.Scores, &snap.Scores); err != nil {
			return session.Snapshot{}, fmt.Errorf("decoding scores: %w", err)
		}
	}
	return snap, nil
}
