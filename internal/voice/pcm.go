package voice

import (
	"encoding/base64"
	"encoding/binary"
)

// EncodePCM16 converts float32 samples in [-1, 1] to little-endian 16-bit
// PCM. Out-of-range samples are clamped. Negative and positive halves scale
// asymmetrically so -1.0 maps to -32768 and 1.0 to 32767.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s < 0 {
			v = int16(s * 0x8000)
		} else {
			v = int16(s * 0x7FFF)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// EncodeFrame produces the base64 payload for input_audio_buffer.append.
func EncodeFrame(samples []float32) string {
	return base64.StdEncoding.EncodeToString(EncodePCM16(samples))
}

// DecodePCM16 parses little-endian 16-bit PCM into samples. A trailing odd
// byte is dropped.
func DecodePCM16(data []byte) []int16 {
	n := len(data) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}
