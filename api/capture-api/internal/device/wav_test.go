package internal_device

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamingWAVHeader(t *testing.T) {
	h := StreamingWAVHeader(16000, 1)
	require.Len(t, h, wavHeaderSize)
	assert.Equal(t, "RIFF", string(h[0:4]))
	assert.Equal(t, "WAVE", string(h[8:12]))
	assert.Equal(t, "data", string(h[36:40]))
	assert.Equal(t, uint32(unknownSize), binary.LittleEndian.Uint32(h[4:8]))
	assert.Equal(t, uint32(unknownSize), binary.LittleEndian.Uint32(h[40:44]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(h[24:28]))
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(h[28:32]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(h[22:24]))
}

func TestEncodeWAV(t *testing.T) {
	pcm := make([]byte, 320)
	wav := EncodeWAV(pcm, 16000, 1)
	require.Len(t, wav, wavHeaderSize+320)
	assert.Equal(t, uint32(36+320), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, uint32(320), binary.LittleEndian.Uint32(wav[40:44]))
}

func TestFinalizeWAV(t *testing.T) {
	streamed := append(StreamingWAVHeader(16000, 1), make([]byte, 100)...)
	fixed, err := FinalizeWAV(streamed)
	require.NoError(t, err)
	assert.Equal(t, EncodeWAV(make([]byte, 100), 16000, 1), fixed)
	assert.Equal(t, uint32(unknownSize), binary.LittleEndian.Uint32(streamed[4:8]), "input must not be modified")

	_, err = FinalizeWAV([]byte("not audio"))
	assert.Error(t, err)
}
