package capture_routers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	internal_device "github.com/rapidaai/voice-capture/api/capture-api/internal/device"
	internal_history "github.com/rapidaai/voice-capture/api/capture-api/internal/history"
	internal_registry "github.com/rapidaai/voice-capture/api/capture-api/internal/registry"
	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	"github.com/rapidaai/voice-capture/config"
	"github.com/rapidaai/voice-capture/pkg/commons"
	"github.com/rapidaai/voice-capture/pkg/configs"
	"github.com/rapidaai/voice-capture/pkg/connectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUploader struct {
	ref string
	err *internal_type.CaptureError
}

func (s stubUploader) Upload(context.Context, internal_type.UploadRequest) (string, *internal_type.CaptureError) {
	return s.ref, s.err
}

type sessionBody struct {
	Session internal_type.Session `json:"session"`
	Error   string                `json:"error"`
}

type testServer struct {
	engine   *gin.Engine
	cfg      *config.AppConfig
	registry *internal_registry.Registry
	device   string
	audio    []byte
}

func newTestServer(t *testing.T, uploader internal_type.Uploader) *testServer {
	t.Helper()
	logger, err := commons.NewApplicationLogger(commons.Console(false))
	require.NoError(t, err)

	audio := internal_device.EncodeWAV(bytes.Repeat([]byte{7}, 320), 16000, 1)
	path := filepath.Join(t.TempDir(), "answer.wav")
	require.NoError(t, os.WriteFile(path, audio, 0o644))
	device := "answer"

	cfg := &config.AppConfig{
		Name:    "voice-capture",
		Version: "test",
		CaptureConfig: configs.CaptureConfig{
			Devices:         []string{device},
			Mode:            "single",
			MaxDuration:     time.Minute,
			MaxPayloadBytes: 1 << 20,
			ChunkInterval:   5 * time.Millisecond,
			EventBuffer:     32,
			DownloadDir:     t.TempDir(),
			BaseName:        "recording",
		},
	}

	db := connectors.NewDatabaseConnector(configs.DatabaseConfig{Driver: "sqlite", DBName: ":memory:"}, logger)
	require.NoError(t, db.Connect(context.Background()))
	t.Cleanup(func() { _ = db.Disconnect(context.Background()) })
	store := internal_history.NewStore(db, logger)
	require.NoError(t, store.Migrate(context.Background()))

	registry := internal_registry.New(logger, cfg.CaptureConfig, uploader,
		internal_registry.WithStore(store),
		internal_registry.WithDeviceFactory(func(id string) internal_type.CaptureDevice {
			return internal_device.NewFileDevice(logger, id, path, internal_device.Config{
				SampleRate:    16000,
				Channels:      1,
				ChunkInterval: cfg.CaptureConfig.ChunkInterval,
			})
		}),
	)
	t.Cleanup(func() { _ = registry.Close() })

	engine := NewEngine(logger, false)
	HealthCheckRoutes(cfg, engine, logger, db, nil)
	CaptureApiRoute(cfg, engine, logger, registry)
	return &testServer{engine: engine, cfg: cfg, registry: registry, device: device, audio: audio}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) devicePath(suffix string) string {
	return "/v1/devices/" + s.device + suffix
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) sessionBody {
	t.Helper()
	var body sessionBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRoutes_RecordingLifecycle(t *testing.T) {
	s := newTestServer(t, stubUploader{ref: "ok"})

	w := s.do(t, http.MethodPost, s.devicePath("/recording/start"), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	started := decodeSession(t, w).Session
	assert.Equal(t, internal_type.StateRecording, started.State)

	w = s.do(t, http.MethodPost, s.devicePath("/recording/start"), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, started.ID, decodeSession(t, w).Session.ID)

	w = s.do(t, http.MethodPost, s.devicePath("/recording/reset"), "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, internal_type.StateRecording, decodeSession(t, w).Session.State)

	time.Sleep(100 * time.Millisecond)
	w = s.do(t, http.MethodPost, s.devicePath("/recording/stop"), `{"patient_id":"p-1","doctor_id":"d-2"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stopped := decodeSession(t, w).Session
	assert.Equal(t, internal_type.StateCompleted, stopped.State)
	assert.Equal(t, "ok", stopped.ResultRef)

	w = s.do(t, http.MethodGet, s.devicePath("/recording"), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, internal_type.StateCompleted, decodeSession(t, w).Session.State)

	w = s.do(t, http.MethodGet, s.devicePath("/recording/download"), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/wav", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "recording-")
	assert.Equal(t, s.audio, w.Body.Bytes())

	w = s.do(t, http.MethodGet, s.devicePath("/recording/download?save=true"), "")
	require.Equal(t, http.StatusOK, w.Code)
	var saved struct {
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.Equal(t, s.cfg.CaptureConfig.DownloadDir, filepath.Dir(saved.Path))

	require.Eventually(t, func() bool {
		return s.do(t, http.MethodGet, "/v1/results/"+stopped.ID, "").Code == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	w = s.do(t, http.MethodGet, "/v1/results/"+stopped.ID, "")
	assert.JSONEq(t, `{"sessionId":"`+stopped.ID+`","result":"ok"}`, w.Body.String())

	w = s.do(t, http.MethodGet, s.devicePath("/sessions?limit=5"), "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Sessions []internal_type.Session `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Sessions, 1)
	assert.Equal(t, stopped.ID, listed.Sessions[0].ID)

	w = s.do(t, http.MethodPost, s.devicePath("/recording/reset"), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, internal_type.StateIdle, decodeSession(t, w).Session.State)

	w = s.do(t, http.MethodGet, s.devicePath("/recording/download"), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_FailedUploadAndRetry(t *testing.T) {
	s := newTestServer(t, stubUploader{err: internal_type.NewServerError(503, "busy")})

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, s.devicePath("/recording/start"), "").Code)
	w := s.do(t, http.MethodPost, s.devicePath("/recording/stop"), "")
	require.Equal(t, http.StatusOK, w.Code)
	failed := decodeSession(t, w).Session
	assert.Equal(t, internal_type.StateFailed, failed.State)
	require.NotNil(t, failed.Err)
	assert.Equal(t, internal_type.KindServerError, failed.Err.Kind)
	assert.Equal(t, 503, failed.Err.Status)

	w = s.do(t, http.MethodPost, s.devicePath("/recording/retry"), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, internal_type.StateFailed, decodeSession(t, w).Session.State)

	w = s.do(t, http.MethodGet, s.devicePath("/recording/download"), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/v1/results/"+failed.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_Errors(t *testing.T) {
	s := newTestServer(t, stubUploader{ref: "ok"})

	w := s.do(t, http.MethodPost, "/v1/devices/nope/recording/start", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, s.devicePath("/recording/abort"), "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, s.devicePath("/recording/stop"), "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, s.devicePath("/recording/stop"), `{"question_index":"first"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, s.devicePath("/sessions?limit=zero"), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/v1/devices", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"devices":["answer"]}`, w.Body.String())
}

func TestRoutes_Abort(t *testing.T) {
	s := newTestServer(t, stubUploader{ref: "ok"})
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, s.devicePath("/recording/start"), "").Code)

	w := s.do(t, http.MethodPost, s.devicePath("/recording/abort"), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, internal_type.StateIdle, decodeSession(t, w).Session.State)

	w = s.do(t, http.MethodGet, s.devicePath("/recording/download"), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_HealthCheck(t *testing.T) {
	s := newTestServer(t, stubUploader{ref: "ok"})

	w := s.do(t, http.MethodGet, "/healthz/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy":true`)

	w = s.do(t, http.MethodGet, "/readiness/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":true`)
}

func TestRoutes_EventStream(t *testing.T) {
	s := newTestServer(t, stubUploader{ref: "ok"})
	server := httptest.NewServer(s.engine)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + s.devicePath("/events")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	var first internal_type.Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, internal_type.EventState, first.Type)
	assert.Equal(t, internal_type.StateIdle, first.State)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, s.devicePath("/recording/start"), "").Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, s.devicePath("/recording/stop"), "").Code)

	for {
		var ev internal_type.Event
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Terminal() {
			assert.Equal(t, internal_type.EventCompleted, ev.Type)
			require.NotNil(t, ev.Session)
			assert.Equal(t, "ok", ev.Session.ResultRef)
			return
		}
	}
}
