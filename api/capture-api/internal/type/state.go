// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of a recording session.
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateRecording  State = "recording"
	StateStopping   State = "stopping"
	StateUploading  State = "uploading"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

func (s State) String() string { return string(s) }

// Terminal reports whether only Reset can leave s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// HoldsChunks reports whether a session in s may carry audio chunks.
func (s State) HoldsChunks() bool {
	switch s {
	case StateRecording, StateStopping, StateUploading, StateCompleted:
		return true
	}
	return false
}

// Trigger drives a state transition.
type Trigger string

const (
	TriggerStart        Trigger = "start"
	TriggerGranted      Trigger = "granted"
	TriggerDenied       Trigger = "denied"
	TriggerStop         Trigger = "stop"
	TriggerFlushed      Trigger = "flushed"
	TriggerUploaded     Trigger = "uploaded"
	TriggerUploadFailed Trigger = "upload_failed"
	TriggerAbort        Trigger = "abort"
	TriggerRetry        Trigger = "retry"
	TriggerReset        Trigger = "reset"
)

// ErrInvalidTransition is returned when an operation is not valid in the
// session's current state.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition returns the state reached from current on trigger.
//
//	idle --start--> requesting --granted--> recording
//	requesting --denied--> failed
//	recording --stop--> stopping --flushed--> uploading
//	uploading --uploaded--> completed | --upload_failed--> failed
//	recording --abort--> idle
//	failed --retry--> uploading (retained payload only)
//	completed|failed --reset--> idle
func Transition(current State, trigger Trigger) (State, error) {
	switch current {
	case StateIdle:
		if trigger == TriggerStart {
			return StateRequesting, nil
		}
	case StateRequesting:
		switch trigger {
		case TriggerGranted:
			return StateRecording, nil
		case TriggerDenied:
			return StateFailed, nil
		}
	case StateRecording:
		switch trigger {
		case TriggerStop:
			return StateStopping, nil
		case TriggerAbort:
			return StateIdle, nil
		}
	case StateStopping:
		if trigger == TriggerFlushed {
			return StateUploading, nil
		}
	case StateUploading:
		switch trigger {
		case TriggerUploaded:
			return StateCompleted, nil
		case TriggerUploadFailed:
			return StateFailed, nil
		}
	case StateCompleted:
		if trigger == TriggerReset {
			return StateIdle, nil
		}
	case StateFailed:
		switch trigger {
		case TriggerReset:
			return StateIdle, nil
		case TriggerRetry:
			return StateUploading, nil
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
	return current, fmt.Errorf("%w: %s --(%s)--> ?", ErrInvalidTransition, current, trigger)
}
