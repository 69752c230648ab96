package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/calldrill/calldrill/internal/scenario"
)

// encode serializes the channels into the requested container format.
func (e *Engine) encode(ctx context.Context, channels [][]int16, rate int, format scenario.AudioFormat) ([]byte, error) {
	switch format {
	case scenario.FormatWAV:
		return encodeWAV(channels, rate), nil
	case scenario.FormatMP3:
		return e.encodeMP3(ctx, channels, rate)
	default:
		return nil, fmt.Errorf("unsupported audio format %q", format)
	}
}

// interleave flattens the channels into frame-interleaved little-endian
// 16-bit PCM. All channels are assumed equal length.
func interleave(channels [][]int16) []byte {
	numCh := len(channels)
	frames := len(channels[0])
	out := make([]byte, frames*numCh*2)
	pos := 0
	for i := 0; i < frames; i++ {
		for _, ch := range channels {
			binary.LittleEndian.PutUint16(out[pos:], uint16(ch[i]))
			pos += 2
		}
	}
	return out
}

// encodeWAV writes a canonical 44-byte RIFF header followed by the PCM
// payload.
func encodeWAV(channels [][]int16, rate int) []byte {
	pcm := interleave(channels)
	numCh := len(channels)
	blockAlign := numCh * 2

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	writeLE32(&buf, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	writeLE32(&buf, 16)
	writeLE16(&buf, 1) // PCM
	writeLE16(&buf, uint16(numCh))
	writeLE32(&buf, uint32(rate))
	writeLE32(&buf, uint32(rate*blockAlign))
	writeLE16(&buf, uint16(blockAlign))
	writeLE16(&buf, 16) // bits per sample

	buf.WriteString("data")
	writeLE32(&buf, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

func writeLE16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeLE32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// encodeMP3 pipes raw PCM through ffmpeg's libmp3lame encoder. ffmpeg must
// be on PATH or configured explicitly; MP3 export fails cleanly without it,
// WAV export never needs it.
func (e *Engine) encodeMP3(ctx context.Context, channels [][]int16, rate int) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(rate),
		"-ac", strconv.Itoa(len(channels)),
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", "192k",
		"-f", "mp3",
		"pipe:1")

	cmd.Stdin = bytes.NewReader(interleave(channels))
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		if errBuf.Len() > 0 {
			return nil, fmt.Errorf("ffmpeg: %w: %s", err, errBuf.String())
		}
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output")
	}
	return out.Bytes(), nil
}
