// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import "context"

// UploadRequest is a finished recording ready for submission.
type UploadRequest struct {
	Payload    Payload
	FileName   string
	IndexField string
}

// Uploader submits payloads to the analysis endpoint. Failures are returned
// already classified; the returned string is the opaque result reference.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (string, *CaptureError)
}
