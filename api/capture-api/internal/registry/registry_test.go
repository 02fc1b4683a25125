package internal_registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	internal_device "github.com/rapidaai/voice-capture/api/capture-api/internal/device"
	internal_history "github.com/rapidaai/voice-capture/api/capture-api/internal/history"
	internal_lease "github.com/rapidaai/voice-capture/api/capture-api/internal/lease"
	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	"github.com/rapidaai/voice-capture/pkg/commons"
	"github.com/rapidaai/voice-capture/pkg/configs"
	"github.com/rapidaai/voice-capture/pkg/connectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploaderFunc func(ctx context.Context, req internal_type.UploadRequest) (string, *internal_type.CaptureError)

func (f uploaderFunc) Upload(ctx context.Context, req internal_type.UploadRequest) (string, *internal_type.CaptureError) {
	return f(ctx, req)
}

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(commons.Console(false))
	require.NoError(t, err)
	return logger
}

func newTestStore(t *testing.T, logger commons.Logger) internal_history.Store {
	t.Helper()
	db := connectors.NewDatabaseConnector(configs.DatabaseConfig{Driver: "sqlite", DBName: ":memory:"}, logger)
	require.NoError(t, db.Connect(context.Background()))
	t.Cleanup(func() { _ = db.Disconnect(context.Background()) })
	store := internal_history.NewStore(db, logger)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func fileDeviceID(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answer.wav")
	require.NoError(t, os.WriteFile(path, internal_device.EncodeWAV(make([]byte, 640), 16000, 1), 0o644))
	return internal_device.FilePrefix + path
}

func testConfig(devices ...string) configs.CaptureConfig {
	return configs.CaptureConfig{
		Devices:         devices,
		Mode:            "single",
		MaxDuration:     time.Minute,
		MaxPayloadBytes: 1 << 20,
		ChunkInterval:   5 * time.Millisecond,
		EventBuffer:     16,
		BaseName:        "answer",
	}
}

func TestRegistry_UnknownDevice(t *testing.T) {
	r := New(newTestLogger(t), testConfig("mic"), uploaderFunc(nil))
	_, err := r.Controller("speaker")
	assert.ErrorIs(t, err, ErrUnknownDevice)
	_, err = r.History(context.Background(), "speaker", 5)
	assert.ErrorIs(t, err, ErrUnknownDevice)
	assert.Equal(t, []string{"mic"}, r.Devices())
}

func TestRegistry_ReusesController(t *testing.T) {
	r := New(newTestLogger(t), testConfig("mic"), uploaderFunc(nil))
	defer r.Close()
	a, err := r.Controller("mic")
	require.NoError(t, err)
	b, err := r.Controller("mic")
	require.NoError(t, err)
	assert.Same(t, a, b)

	require.NoError(t, r.Close())
	_, err = r.Controller("mic")
	assert.Error(t, err)
}

func TestRegistry_RecordsCompletedSession(t *testing.T) {
	logger := newTestLogger(t)
	device := fileDeviceID(t)
	store := newTestStore(t, logger)
	client, mock := redismock.NewClientMock()
	cache := internal_history.NewResultCache(client, logger, time.Hour)

	var uploaded []byte
	uploader := uploaderFunc(func(ctx context.Context, req internal_type.UploadRequest) (string, *internal_type.CaptureError) {
		uploaded = req.Payload.Data
		return "ok", nil
	})
	r := New(logger, testConfig(device), uploader,
		WithStore(store),
		WithResultCache(cache),
		WithLease(internal_lease.NewLocalLease()),
	)
	defer r.Close()

	c, err := r.Controller(device)
	require.NoError(t, err)

	snap, err := c.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, internal_type.StateRecording, snap.State)
	mock.ExpectSet("capture:result:"+snap.ID, "ok", time.Hour).SetVal("OK")
	mock.ExpectGet("capture:result:" + snap.ID).SetVal("ok")

	time.Sleep(150 * time.Millisecond)
	snap, err = c.Stop(context.Background(), internal_type.Metadata{PatientID: "p-1"})
	require.NoError(t, err)
	require.Equal(t, internal_type.StateCompleted, snap.State)
	assert.Equal(t, internal_device.EncodeWAV(make([]byte, 640), 16000, 1), uploaded)

	require.Eventually(t, func() bool {
		list, err := r.History(context.Background(), device, 10)
		return err == nil && len(list) == 1
	}, 2*time.Second, 10*time.Millisecond)

	result, err := r.Result(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistry_ResultFallsBackToStore(t *testing.T) {
	logger := newTestLogger(t)
	store := newTestStore(t, logger)
	r := New(logger, testConfig("mic"), uploaderFunc(nil), WithStore(store))

	require.NoError(t, store.Save(context.Background(), internal_history.FromSession(internal_type.Session{
		ID: "done", DeviceID: "mic", State: internal_type.StateCompleted, ResultRef: "transcript",
	})))
	require.NoError(t, store.Save(context.Background(), internal_history.FromSession(internal_type.Session{
		ID: "broken", DeviceID: "mic", State: internal_type.StateFailed, Err: internal_type.NewServerError(500, "boom"),
	})))

	result, err := r.Result(context.Background(), "done")
	require.NoError(t, err)
	assert.Equal(t, "transcript", result)

	_, err = r.Result(context.Background(), "broken")
	assert.ErrorIs(t, err, ErrResultNotFound)
	_, err = r.Result(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrResultNotFound)
}

func TestRegistry_RecordsFailedUpload(t *testing.T) {
	logger := newTestLogger(t)
	device := fileDeviceID(t)
	store := newTestStore(t, logger)
	uploader := uploaderFunc(func(ctx context.Context, req internal_type.UploadRequest) (string, *internal_type.CaptureError) {
		return "", internal_type.NewServerError(502, "bad gateway")
	})
	r := New(logger, testConfig(device), uploader, WithStore(store))
	defer r.Close()

	c, err := r.Controller(device)
	require.NoError(t, err)
	_, err = c.Start(context.Background())
	require.NoError(t, err)
	snap, err := c.Stop(context.Background(), internal_type.Metadata{})
	require.NoError(t, err)
	require.Equal(t, internal_type.StateFailed, snap.State)

	require.Eventually(t, func() bool {
		rec, err := store.Get(context.Background(), snap.ID)
		return err == nil && rec.ErrorStatus == 502
	}, 2*time.Second, 10*time.Millisecond)

	_, err = r.Result(context.Background(), snap.ID)
	assert.ErrorIs(t, err, ErrResultNotFound)
}
