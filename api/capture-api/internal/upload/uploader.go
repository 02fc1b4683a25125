// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"

	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	"github.com/rapidaai/voice-capture/pkg/commons"
	"github.com/rapidaai/voice-capture/pkg/utils"
	"github.com/rapidaai/voice-capture/pkg/configs"
)

var (
	// DefaultResultPaths are tried in order to find the result reference in a
	// successful response.
	DefaultResultPaths = []string{"text", "transcript", "result.text", "analysis_id", "id"}

	errorMessagePaths = []string{"detail.error", "detail", "error.message", "error", "message"}
)

const genericServerMessage = "unexpected response from analysis service"

// MultipartUploader posts recordings to the analysis endpoint as multipart
// form data.
type MultipartUploader struct {
	logger      commons.Logger
	client      *resty.Client
	url         string
	fieldName   string
	authToken   string
	resultPaths []string
}

func NewMultipartUploader(logger commons.Logger, cfg configs.UploadConfig) *MultipartUploader {
	client := resty.New().
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	paths := cfg.ResultPaths
	if len(paths) == 0 {
		paths = DefaultResultPaths
	}
	return &MultipartUploader{
		logger:      logger,
		client:      client,
		url:         cfg.URL,
		fieldName:   cfg.FieldName,
		authToken:   cfg.AuthToken,
		resultPaths: paths,
	}
}

// Upload submits the payload and returns the result reference extracted from
// the response. Every failure comes back classified.
func (u *MultipartUploader) Upload(ctx context.Context, req internal_type.UploadRequest) (string, *internal_type.CaptureError) {
	fields, err := formFields(req)
	if err != nil {
		return "", &internal_type.CaptureError{Kind: internal_type.KindServerError, Message: genericServerMessage, Err: err}
	}

	r := u.client.R().
		SetContext(ctx).
		SetMultipartField(u.fieldName, req.FileName, req.Payload.Format.MimeType, bytes.NewReader(req.Payload.Data)).
		SetFormData(fields)
	if !utils.IsEmpty(u.authToken) {
		r.SetAuthToken(u.authToken)
	}

	start := time.Now()
	resp, err := r.Post(u.url)
	u.logger.Benchmark("MultipartUploader.Upload", time.Since(start))
	if err != nil {
		return "", classifyTransportError(ctx, err)
	}

	body := resp.Body()
	if !resp.IsSuccess() {
		u.logger.Warnw("analysis service rejected upload",
			"session", req.Payload.SessionID, "status", resp.StatusCode(), "body", string(body))
		return "", internal_type.NewServerError(resp.StatusCode(), serverMessage(resp.StatusCode(), body))
	}

	ref, ok := u.resultRef(body)
	if !ok {
		u.logger.Warnw("analysis service returned an unusable body",
			"session", req.Payload.SessionID, "status", resp.StatusCode())
		return "", internal_type.NewServerError(resp.StatusCode(), genericServerMessage)
	}
	u.logger.Debugw("upload accepted", "session", req.Payload.SessionID, "status", resp.StatusCode())
	return ref, nil
}

// formFields renders the metadata as form fields. Empty values are omitted.
func formFields(req internal_type.UploadRequest) (map[string]string, error) {
	md := req.Payload.Metadata
	decoded := map[string]interface{}{}
	if err := mapstructure.Decode(md, &decoded); err != nil {
		return nil, fmt.Errorf("encoding upload metadata: %w", err)
	}
	fields := make(map[string]string, len(decoded)+len(md.Extra)+1)
	for k, v := range md.Extra {
		if v != "" {
			fields[k] = v
		}
	}
	for k, v := range decoded {
		if s := fmt.Sprint(v); s != "" {
			fields[k] = s
		}
	}
	if md.QuestionIndex != nil && req.IndexField != "" {
		fields[req.IndexField] = strconv.Itoa(*md.QuestionIndex)
	}
	return fields, nil
}

func classifyTransportError(ctx context.Context, err error) *internal_type.CaptureError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return internal_type.NewTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return internal_type.NewTimeoutError(err)
	}
	return internal_type.NewNetworkError(err)
}

// resultRef picks the first non-empty scalar at the configured paths and
// falls back to the whole JSON body. A configured path that is present but
// empty counts as an empty result; a bare JSON string is unquoted.
func (u *MultipartUploader) resultRef(body []byte) (string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !gjson.ValidBytes(trimmed) {
		return "", false
	}
	root := gjson.ParseBytes(trimmed)
	if root.Type == gjson.String {
		s := strings.TrimSpace(root.String())
		return s, s != ""
	}
	emptyField := false
	for _, path := range u.resultPaths {
		res := root.Get(path)
		if !res.Exists() || res.IsObject() || res.IsArray() || res.Type == gjson.Null {
			continue
		}
		if s := strings.TrimSpace(res.String()); s != "" {
			return s, true
		}
		emptyField = true
	}
	if emptyField {
		return "", false
	}
	switch string(trimmed) {
	case "null", "{}", "[]":
		return "", false
	}
	return string(trimmed), true
}

func serverMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range errorMessagePaths {
			res := gjson.GetBytes(body, path)
			if res.Type == gjson.String && strings.TrimSpace(res.String()) != "" {
				return res.String()
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return genericServerMessage
}
