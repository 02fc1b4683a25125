// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_history

import (
	"time"

	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	"gorm.io/gorm"
)

// SessionRecord is the persisted outcome of a recording session. A row is
// written when the session reaches a terminal state and overwritten if a
// retry changes that outcome.
type SessionRecord struct {
	Id            uint64    `json:"id" gorm:"primaryKey;autoIncrement;<-:create"`
	SessionID     string    `json:"sessionId" gorm:"column:session_id;type:varchar(36);not null;uniqueIndex"`
	DeviceID      string    `json:"deviceId" gorm:"column:device_id;type:varchar(200);not null;index"`
	Status        string    `json:"status" gorm:"column:status;type:varchar(20);not null"`
	ChunkCount    int       `json:"chunkCount" gorm:"column:chunk_count;not null;default:0"`
	ByteCount     int       `json:"byteCount" gorm:"column:byte_count;not null;default:0"`
	QuestionIndex *int      `json:"questionIndex,omitempty" gorm:"column:question_index"`
	Limited       bool      `json:"limited" gorm:"column:limited;not null;default:false"`
	ResultRef     string    `json:"resultRef,omitempty" gorm:"column:result_ref;type:text;not null;default:''"`
	ErrorKind     string    `json:"errorKind,omitempty" gorm:"column:error_kind;type:varchar(50);not null;default:''"`
	ErrorStatus   int       `json:"errorStatus,omitempty" gorm:"column:error_status;not null;default:0"`
	ErrorMessage  string    `json:"errorMessage,omitempty" gorm:"column:error_message;type:text;not null;default:''"`
	StartedAt     time.Time `json:"startedAt" gorm:"column:started_at"`
	StoppedAt     time.Time `json:"stoppedAt" gorm:"column:stopped_at"`
	CreatedDate   time.Time `json:"createdDate" gorm:"column:created_date;not null;<-:create"`
	UpdatedDate   time.Time `json:"updatedDate" gorm:"column:updated_date"`
}

func (SessionRecord) TableName() string {
	return "capture_sessions"
}

func (r *SessionRecord) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	if r.CreatedDate.IsZero() {
		r.CreatedDate = now
	}
	r.UpdatedDate = now
	return nil
}

// FromSession converts a session snapshot into a record.
func FromSession(s internal_type.Session) *SessionRecord {
	r := &SessionRecord{
		SessionID:     s.ID,
		DeviceID:      s.DeviceID,
		Status:        s.State.String(),
		ChunkCount:    s.ChunkCount,
		ByteCount:     s.ByteCount,
		QuestionIndex: s.Index,
		Limited:       s.Limited,
		ResultRef:     s.ResultRef,
		StartedAt:     s.StartedAt,
		StoppedAt:     s.StoppedAt,
	}
	if s.Err != nil {
		r.ErrorKind = string(s.Err.Kind)
		r.ErrorStatus = s.Err.Status
		r.ErrorMessage = s.Err.Message
	}
	return r
}

// Session converts the record back into a snapshot.
func (r *SessionRecord) Session() internal_type.Session {
	s := internal_type.Session{
		ID:         r.SessionID,
		DeviceID:   r.DeviceID,
		State:      internal_type.State(r.Status),
		ChunkCount: r.ChunkCount,
		ByteCount:  r.ByteCount,
		Index:      r.QuestionIndex,
		Limited:    r.Limited,
		ResultRef:  r.ResultRef,
		StartedAt:  r.StartedAt,
		StoppedAt:  r.StoppedAt,
	}
	if r.ErrorKind != "" {
		s.Err = &internal_type.CaptureError{
			Kind:    internal_type.ErrorKind(r.ErrorKind),
			Status:  r.ErrorStatus,
			Message: r.ErrorMessage,
		}
	}
	return s
}
