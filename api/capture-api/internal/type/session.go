// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import "time"

// Session is a point-in-time copy of a recording session.
type Session struct {
	ID         string        `json:"id"`
	DeviceID   string        `json:"deviceId"`
	State      State         `json:"state"`
	ChunkCount int           `json:"chunkCount"`
	ByteCount  int           `json:"byteCount"`
	StartedAt  time.Time     `json:"startedAt,omitempty"`
	StoppedAt  time.Time     `json:"stoppedAt,omitempty"`
	ResultRef  string        `json:"resultRef,omitempty"`
	Index      *int          `json:"index,omitempty"`
	Limited    bool          `json:"limited,omitempty"`
	Err        *CaptureError `json:"error,omitempty"`
}

// Metadata accompanies a payload to the upload endpoint.
type Metadata struct {
	PatientID     string            `mapstructure:"patient_id" json:"patient_id,omitempty"`
	DoctorID      string            `mapstructure:"doctor_id" json:"doctor_id,omitempty"`
	QuestionIndex *int              `mapstructure:"-" json:"question_index,omitempty"`
	Extra         map[string]string `mapstructure:"-" json:"extra,omitempty"`
}

// Payload is the concatenated audio of a stopped session.
type Payload struct {
	SessionID string
	Data      []byte
	Format    Format
	StartedAt time.Time
	Metadata  Metadata
}

// EventType identifies what an Event reports.
type EventType string

const (
	EventState     EventType = "state"
	EventChunk     EventType = "chunk"
	EventLimit     EventType = "limit"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Event is published to controller subscribers.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	State     State     `json:"state"`
	ChunkSize int       `json:"chunkSize,omitempty"`
	Session   *Session  `json:"session,omitempty"`
	At        time.Time `json:"at"`
}

// Terminal reports whether the event closes a session.
func (e Event) Terminal() bool {
	return e.Type == EventCompleted || e.Type == EventFailed
}
