// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	"github.com/rapidaai/voice-capture/pkg/utils"
)

const defaultExtension = "bin"

// FileName renders <base>-YYYY-MM-DD-HH-MM-SS.<ext> for a recording started at t.
func FileName(base string, startedAt time.Time, format internal_type.Format) string {
	ext := strings.TrimPrefix(format.Extension, ".")
	if ext == "" {
		ext = defaultExtension
	}
	return fmt.Sprintf("%s-%s.%s", base, utils.FileTimestamp(startedAt), ext)
}

// Write saves the payload under dir and returns the written path.
func Write(dir, base string, p internal_type.Payload) (string, error) {
	if len(p.Data) == 0 {
		return "", fmt.Errorf("empty payload for session %s", p.SessionID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}
	path := filepath.Join(dir, FileName(base, p.StartedAt, p.Format))
	if err := os.WriteFile(path, p.Data, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	return path, nil
}
