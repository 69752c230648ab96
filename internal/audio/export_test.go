package audio

import (
	"context"
	"encoding/binary"
	"testing"
)

// decodeWAVStereo splits an in-memory stereo WAV back into channels.
func decodeWAVStereo(t *testing.T, data []byte) (left, right []int16, rate int) {
	t.Helper()
	pcm, rate, channels := parseWAVHeader(t, data)
	if channels != 2 {
		t.Fatalf("channels = %d, want 2", channels)
	}
	frames := len(pcm) / 4
	left = make([]int16, frames)
	right = make([]int16, frames)
	for i := 0; i < frames; i++ {
		left[i] = int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		right[i] = int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
	}
	return left, right, rate
}

// decodeWAVMono decodes an in-memory mono WAV back into samples.
func decodeWAVMono(t *testing.T, data []byte) ([]int16, int) {
	t.Helper()
	pcm, rate, channels := parseWAVHeader(t, data)
	if channels != 1 {
		t.Fatalf("channels = %d, want 1", channels)
	}
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out, rate
}

func parseWAVHeader(t *testing.T, data []byte) (pcm []byte, rate, channels int) {
	t.Helper()
	if len(data) < 44 {
		t.Fatalf("wav too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE magic")
	}
	if string(data[12:16]) != "fmt " {
		t.Fatal("missing fmt chunk")
	}
	if format := binary.LittleEndian.Uint16(data[20:22]); format != 1 {
		t.Fatalf("format = %d, want 1 (PCM)", format)
	}
	channels = int(binary.LittleEndian.Uint16(data[22:24]))
	rate = int(binary.LittleEndian.Uint32(data[24:28]))
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		t.Fatalf("bits = %d, want 16", bits)
	}
	if string(data[36:40]) != "data" {
		t.Fatal("missing data chunk")
	}
	size := int(binary.LittleEndian.Uint32(data[40:44]))
	if 44+size > len(data) {
		t.Fatalf("data chunk size %d exceeds file", size)
	}
	return data[44 : 44+size], rate, channels
}

func TestEncodeWAVMono(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}
	data := encodeWAV([][]int16{samples}, 16000)

	pcm, rate, channels := parseWAVHeader(t, data)
	if rate != 16000 || channels != 1 {
		t.Fatalf("rate = %d channels = %d", rate, channels)
	}
	if len(pcm) != len(samples)*2 {
		t.Fatalf("payload = %d bytes, want %d", len(pcm), len(samples)*2)
	}
	for i, want := range samples {
		got := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		if got != want {
			t.Errorf("sample %d = %d, want %d", i, got, want)
		}
	}

	// Declared RIFF size matches the actual file.
	if riffSize := binary.LittleEndian.Uint32(data[4:8]); int(riffSize) != len(data)-8 {
		t.Errorf("riff size = %d, want %d", riffSize, len(data)-8)
	}

	// Byte rate and block align are consistent for 16-bit mono.
	if byteRate := binary.LittleEndian.Uint32(data[28:32]); byteRate != 16000*2 {
		t.Errorf("byte rate = %d, want %d", byteRate, 16000*2)
	}
	if blockAlign := binary.LittleEndian.Uint16(data[32:34]); blockAlign != 2 {
		t.Errorf("block align = %d, want 2", blockAlign)
	}
}

func TestEncodeWAVStereoInterleaves(t *testing.T) {
	left := []int16{1, 2, 3}
	right := []int16{-1, -2, -3}
	data := encodeWAV([][]int16{left, right}, 8000)

	gotLeft, gotRight, rate := decodeWAVStereo(t, data)
	if rate != 8000 {
		t.Fatalf("rate = %d", rate)
	}
	for i := range left {
		if gotLeft[i] != left[i] || gotRight[i] != right[i] {
			t.Errorf("frame %d = (%d, %d), want (%d, %d)", i, gotLeft[i], gotRight[i], left[i], right[i])
		}
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	e := NewEngine(LoadNoiseBank(t.TempDir()), "ffmpeg")
	if _, err := e.encode(context.Background(), [][]int16{{0}}, 8000, "ogg"); err == nil {
		t.Fatal("unknown format should fail")
	}
}
