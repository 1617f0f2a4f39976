package voice

import (
	"encoding/binary"
	"strings"
	"time"
)

const (
	// mp3ScanWindow is how far into the stream we look for a frame header
	mp3ScanWindow = 1000
	// fallbackBitrate is assumed when no usable frame header is found
	fallbackBitrate = 128000

	// raw PCM from providers is 16-bit mono
	pcmSampleRate     = 44100
	pcmBytesPerSample = 2
)

// MPEG-1 Layer III tables. Index 0 ("free") and 15 are invalid.
var (
	mp3BitratesKbps = [...]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320}
	mp3SampleRates  = [...]int{44100, 48000, 32000}
)

// EstimateMP3Duration estimates playback length from the first frame header
// found in the first 1000 bytes. It assumes a constant bitrate and falls back
// to 128 kbps when no header is found. The second result reports whether a
// header was used. It never panics on short or malformed input.
func EstimateMP3Duration(data []byte) (time.Duration, bool) {
	if bitrate, ok := findMP3Bitrate(data); ok {
		return durationFromBitrate(len(data), bitrate), true
	}
	return durationFromBitrate(len(data), fallbackBitrate), false
}

func findMP3Bitrate(data []byte) (int, bool) {
	limit := min(len(data)-4, mp3ScanWindow)
	for i := 0; i < limit; i++ {
		if data[i] != 0xFF || data[i+1]&0xE0 != 0xE0 {
			continue
		}

		bitrateIndex := int(data[i+2] >> 4)
		sampleRateIndex := int(data[i+2]&0x0C) >> 2
		if bitrateIndex >= len(mp3BitratesKbps) || mp3BitratesKbps[bitrateIndex] == 0 {
			continue
		}
		if sampleRateIndex >= len(mp3SampleRates) {
			continue
		}
		return mp3BitratesKbps[bitrateIndex] * 1000, true
	}
	return 0, false
}

// durationFromBitrate computes size*8/bitrate with millisecond precision
func durationFromBitrate(size, bitsPerSecond int) time.Duration {
	if size <= 0 || bitsPerSecond <= 0 {
		return 0
	}
	millis := int64(size) * 8 * 1000 / int64(bitsPerSecond)
	return time.Duration(millis) * time.Millisecond
}

// EstimateWAVDuration reads the byte rate from a RIFF/WAVE header
func EstimateWAVDuration(data []byte) (time.Duration, bool) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, false
	}

	byteRate := binary.LittleEndian.Uint32(data[28:32])
	if byteRate == 0 {
		return 0, false
	}
	payload := len(data) - 44
	millis := int64(payload) * 1000 / int64(byteRate)
	return time.Duration(millis) * time.Millisecond, true
}

// EstimateDuration picks an estimator by audio format. Raw PCM is assumed to
// be 16-bit mono at 44.1 kHz, the format ElevenLabs returns for pcm_44100.
func EstimateDuration(format string, data []byte) (time.Duration, bool) {
	switch strings.ToLower(format) {
	case "wav", "wave":
		if d, ok := EstimateWAVDuration(data); ok {
			return d, true
		}
	case "pcm":
		millis := int64(len(data)) * 1000 / (pcmSampleRate * pcmBytesPerSample)
		return time.Duration(millis) * time.Millisecond, true
	}
	return EstimateMP3Duration(data)
}
