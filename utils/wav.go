package utils

import (
	"encoding/binary"
	"errors"
	"time"
)

// WAVHeaderSize is the size of the canonical RIFF/WAVE PCM header
const WAVHeaderSize = 44

// FrameWAV prepends a canonical 44-byte PCM WAV header to raw little-endian samples.
// len(samples) must be a whole number of frames for the given channels and bitsPerSample.
func FrameWAV(samples []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(samples)
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	out := make([]byte, WAVHeaderSize+dataSize)
	le := binary.LittleEndian

	copy(out[0:4], "RIFF")
	le.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	le.PutUint32(out[16:20], 16)
	le.PutUint16(out[20:22], 1) // PCM
	le.PutUint16(out[22:24], uint16(channels))
	le.PutUint32(out[24:28], uint32(sampleRate))
	le.PutUint32(out[28:32], uint32(byteRate))
	le.PutUint16(out[32:34], uint16(blockAlign))
	le.PutUint16(out[34:36], uint16(bitsPerSample))
	copy(out[36:40], "data")
	le.PutUint32(out[40:44], uint32(dataSize))
	copy(out[WAVHeaderSize:], samples)

	return out
}

// WAVInfo is the format read back from a framed WAV header
type WAVInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataSize      int
}

// Duration of the PCM payload
func (w WAVInfo) Duration() time.Duration {
	byteRate := w.SampleRate * w.Channels * w.BitsPerSample / 8
	if byteRate == 0 {
		return 0
	}
	return time.Duration(float64(w.DataSize) / float64(byteRate) * float64(time.Second))
}

// ParseWAVHeader reads the canonical header written by FrameWAV
func ParseWAVHeader(wav []byte) (WAVInfo, error) {
	if len(wav) < WAVHeaderSize {
		return WAVInfo{}, errors.New("wav data shorter than header")
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		return WAVInfo{}, errors.New("not a canonical PCM wav")
	}

	le := binary.LittleEndian
	return WAVInfo{
		SampleRate:    int(le.Uint32(wav[24:28])),
		Channels:      int(le.Uint16(wav[22:24])),
		BitsPerSample: int(le.Uint16(wav[34:36])),
		DataSize:      int(le.Uint32(wav[40:44])),
	}, nil
}

// WAVDuration returns the playback duration of a framed WAV
func WAVDuration(wav []byte) (time.Duration, error) {
	info, err := ParseWAVHeader(wav)
	if err != nil {
		return 0, err
	}
	return info.Duration(), nil
}
