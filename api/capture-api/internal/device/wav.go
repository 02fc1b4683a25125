// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_device

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	BytesPerSample = 2  // LINEAR16 → 2 bytes per sample
	BitsPerSample  = 16 // LINEAR16 → 16 bits per sample
	PCMFormat      = 1  // WAV PCM format tag

	wavHeaderSize = 44
	// unknownSize marks the RIFF and data sizes of a stream whose length is
	// not known when the header is written.
	unknownSize = 0xFFFFFFFF
)

// StreamingWAVHeader returns a 44 byte PCM header with open-ended sizes,
// suitable as the first chunk of a capture whose length is unknown.
func StreamingWAVHeader(sampleRate, channels uint32) []byte {
	return wavHeader(sampleRate, channels, unknownSize, unknownSize)
}

// EncodeWAV wraps PCM samples in a complete WAV file.
func EncodeWAV(pcm []byte, sampleRate, channels uint32) []byte {
	header := wavHeader(sampleRate, channels, uint32(36+len(pcm)), uint32(len(pcm)))
	return append(header, pcm...)
}

func wavHeader(sampleRate, channels, riffSize, dataSize uint32) []byte {
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize)
	byteRate := sampleRate * channels * BytesPerSample

	buf.Write([]byte("RIFF"))
	binary.Write(&buf, binary.LittleEndian, riffSize)
	buf.Write([]byte("WAVE"))

	buf.Write([]byte("fmt "))
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(PCMFormat))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, sampleRate)
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, uint16(channels*BytesPerSample))
	binary.Write(&buf, binary.LittleEndian, uint16(BitsPerSample))

	// data chunk
	buf.Write([]byte("data"))
	binary.Write(&buf, binary.LittleEndian, dataSize)
	return buf.Bytes()
}

// FinalizeWAV returns a copy of a streamed WAV payload with its RIFF and
// data sizes filled in.
func FinalizeWAV(payload []byte) ([]byte, error) {
	if len(payload) < wavHeaderSize || string(payload[0:4]) != "RIFF" || string(payload[8:12]) != "WAVE" {
		return nil, errors.New("payload is not a WAV stream")
	}
	out := append([]byte(nil), payload...)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(out)-wavHeaderSize))
	return out, nil
}

func bytesPerSecond(sampleRate, channels uint32) int {
	return int(sampleRate) * int(channels) * BytesPerSample
}
