// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rapidaai/voice-capture/pkg/commons"
	"github.com/rapidaai/voice-capture/pkg/connectors"
)

// ErrNotFound is returned when no record exists for a session.
var ErrNotFound = errors.New("session record not found")

const defaultListLimit = 20

// Store keeps the terminal outcome of every recording session so a results
// page can render without the controller that produced it.
type Store interface {
	// Migrate creates or updates the capture_sessions table.
	Migrate(ctx context.Context) error

	// Save inserts the record, or overwrites the outcome columns when the
	// session was saved before (a retried upload).
	Save(ctx context.Context, r *SessionRecord) error

	// Get returns the record of one session.
	Get(ctx context.Context, sessionID string) (*SessionRecord, error)

	// ListByDevice returns the latest records of a device, newest first.
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]*SessionRecord, error)
}

type gormStore struct {
	database connectors.DatabaseConnector
	logger   commons.Logger
}

// NewStore creates a session history store on the given database.
func NewStore(database connectors.DatabaseConnector, logger commons.Logger) Store {
	return &gormStore{
		database: database,
		logger:   logger,
	}
}

func (s *gormStore) Migrate(ctx context.Context) error {
	if err := s.database.DB(ctx).AutoMigrate(&SessionRecord{}); err != nil {
		return fmt.Errorf("failed to migrate capture sessions: %w", err)
	}
	return nil
}

func (s *gormStore) Save(ctx context.Context, r *SessionRecord) error {
	if r.SessionID == "" {
		return errors.New("session record without session id")
	}
	r.UpdatedDate = time.Now()
	db := s.database.DB(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "chunk_count", "byte_count", "question_index", "limited",
			"result_ref", "error_kind", "error_status", "error_message",
			"stopped_at", "updated_date",
		}),
	}).Create(r).Error
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", r.SessionID, err)
	}

	s.logger.Infof("saved capture session: session=%s, device=%s, status=%s",
		r.SessionID, r.DeviceID, r.Status)
	return nil
}

func (s *gormStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	db := s.database.DB(ctx)
	var r SessionRecord
	if err := db.Where("session_id = ?", sessionID).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to read session %s: %w", sessionID, err)
	}
	return &r, nil
}

func (s *gormStore) ListByDevice(ctx context.Context, deviceID string, limit int) ([]*SessionRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	db := s.database.DB(ctx)
	var records []*SessionRecord
	err := db.Where("device_id = ?", deviceID).
		Order("created_date DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions of %s: %w", deviceID, err)
	}
	return records, nil
}
