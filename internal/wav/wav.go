// Package wav reads and writes RIFF/WAVE PCM files on top of go-audio.
//
// Only what the pipeline needs is exposed: reading the format of voice
// samples and synthesized chunks, and stitching same-format chunks into a
// single output file.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
	gowav "github.com/go-audio/wav"
)

const (
	riffHeaderSize = 12

	// FormatPCM is the WAVE_FORMAT_PCM tag.
	FormatPCM = 1
	// FormatFloat is the WAVE_FORMAT_IEEE_FLOAT tag.
	FormatFloat = 3
)

const errFmtMismatch = "%w: part %d is %s, expected %s"

var (
	// ErrNotWAV is returned when the data does not start with a RIFF/WAVE header.
	ErrNotWAV = errors.New("not a RIFF/WAVE file")
	// ErrMissingChunk is returned when the fmt or data chunk is absent or unreadable.
	ErrMissingChunk = errors.New("missing required chunk")
	// ErrUnsupportedDepth is returned when Encode is asked for a sample size
	// other than 8, 16, 24 or 32 bits.
	ErrUnsupportedDepth = errors.New("unsupported bits per sample")
	// ErrFormatMismatch is returned when concatenated parts differ in format.
	ErrFormatMismatch = errors.New("WAV format mismatch")
	// ErrNoParts is returned when Concat is called without input.
	ErrNoParts = errors.New("no WAV parts to concatenate")
)

// Info describes the sample format of a WAV file.
type Info struct {
	AudioFormat   uint16
	Channels      int
	SampleRate    int
	BitsPerSample int
	DataSize      int
}

// BlockAlign is the size in bytes of one frame across all channels.
func (i Info) BlockAlign() int {
	return i.Channels * i.BitsPerSample / 8
}

// Duration is the playback length of the data chunk.
func (i Info) Duration() time.Duration {
	frame := i.BlockAlign()
	if frame == 0 || i.SampleRate == 0 {
		return 0
	}

	frames := i.DataSize / frame

	return time.Duration(frames) * time.Second / time.Duration(i.SampleRate)
}

// SameFormat reports whether two files can be concatenated sample-for-sample.
func (i Info) SameFormat(other Info) bool {
	return i.AudioFormat == other.AudioFormat &&
		i.Channels == other.Channels &&
		i.SampleRate == other.SampleRate &&
		i.BitsPerSample == other.BitsPerSample
}

func (i Info) String() string {
	return fmt.Sprintf("%d Hz/%d ch/%d bit", i.SampleRate, i.Channels, i.BitsPerSample)
}

// Parse reads the format and PCM payload of a WAV file. Chunks other than
// "fmt " and "data" are skipped. A data chunk whose declared size runs past
// the end of the file, as streaming encoders leave it, is read to the end.
func Parse(data []byte) (Info, []byte, error) {
	if len(data) < riffHeaderSize ||
		!bytes.Equal(data[0:4], riff.RiffID[:]) ||
		!bytes.Equal(data[8:12], riff.WavFormatID[:]) {
		return Info{}, nil, ErrNotWAV
	}

	decoder := gowav.NewDecoder(bytes.NewReader(data))

	decoder.ReadInfo()

	err := decoder.Err()
	if err != nil {
		return Info{}, nil, fmt.Errorf("%w: fmt: %w", ErrMissingChunk, err)
	}

	if decoder.NumChans == 0 || decoder.SampleRate == 0 || decoder.BitDepth == 0 {
		return Info{}, nil, fmt.Errorf("%w: fmt", ErrMissingChunk)
	}

	err = decoder.FwdToPCM()
	if err != nil {
		return Info{}, nil, fmt.Errorf("%w: data: %w", ErrMissingChunk, err)
	}

	if decoder.PCMChunk == nil {
		return Info{}, nil, fmt.Errorf("%w: data", ErrMissingChunk)
	}

	pcm, err := io.ReadAll(io.LimitReader(decoder.PCMChunk, int64(decoder.PCMSize)))
	if err != nil {
		return Info{}, nil, fmt.Errorf("%w: data: %w", ErrMissingChunk, err)
	}

	info := Info{
		AudioFormat:   decoder.WavAudioFormat,
		Channels:      int(decoder.NumChans),
		SampleRate:    int(decoder.SampleRate),
		BitsPerSample: int(decoder.BitDepth),
		DataSize:      len(pcm),
	}

	return info, pcm, nil
}

// Encode writes a WAV header followed by pcm. The payload is copied byte for
// byte, so float data round-trips as its raw 32-bit words.
func Encode(info Info, pcm []byte) ([]byte, error) {
	audioFormat := int(info.AudioFormat)
	if audioFormat == 0 {
		audioFormat = FormatPCM
	}

	samples, err := samplesFromPCM(pcm, info.BitsPerSample)
	if err != nil {
		return nil, err
	}

	var out seekBuffer

	encoder := gowav.NewEncoder(&out, info.SampleRate, info.BitsPerSample, info.Channels, audioFormat)

	err = encoder.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: info.Channels, SampleRate: info.SampleRate},
		Data:           samples,
		SourceBitDepth: info.BitsPerSample,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write WAV data: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to finish WAV header: %w", err)
	}

	return out.Bytes(), nil
}

// samplesFromPCM splits little-endian PCM into one int per sample, the form
// the encoder writes back unchanged. 8-bit WAV samples are unsigned.
func samplesFromPCM(pcm []byte, bitsPerSample int) ([]int, error) {
	width := bitsPerSample / 8
	if bitsPerSample%8 != 0 || width < 1 || width > 4 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDepth, bitsPerSample)
	}

	samples := make([]int, 0, len(pcm)/width)

	for offset := 0; offset+width <= len(pcm); offset += width {
		frame := pcm[offset : offset+width]

		switch width {
		case 1:
			samples = append(samples, int(frame[0]))
		case 2:
			samples = append(samples, int(int16(binary.LittleEndian.Uint16(frame))))
		case 3:
			value := int32(frame[0]) | int32(frame[1])<<8 | int32(int8(frame[2]))<<16
			samples = append(samples, int(value))
		default:
			samples = append(samples, int(int32(binary.LittleEndian.Uint32(frame))))
		}
	}

	return samples, nil
}

// seekBuffer is an in-memory io.WriteSeeker; the encoder seeks back to
// patch chunk sizes once the payload is written.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}

	copy(b.data[b.pos:end], p)
	b.pos = end

	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int64

	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(b.pos)
	case io.SeekEnd:
		base = int64(len(b.data))
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}

	next := base + offset
	if next < 0 {
		return 0, fmt.Errorf("negative seek position %d", next)
	}

	b.pos = int(next)

	return next, nil
}

func (b *seekBuffer) Bytes() []byte {
	return b.data
}

// Concat joins WAV files that share one sample format into a single file.
func Concat(parts ...[]byte) ([]byte, error) {
	if len(parts) == 0 {
		return nil, ErrNoParts
	}

	first, firstPCM, err := Parse(parts[0])
	if err != nil {
		return nil, fmt.Errorf("part 1: %w", err)
	}

	joined := make([]byte, 0, len(firstPCM)*len(parts))
	joined = append(joined, firstPCM...)

	for i, part := range parts[1:] {
		info, pcm, parseErr := Parse(part)
		if parseErr != nil {
			return nil, fmt.Errorf("part %d: %w", i+2, parseErr)
		}

		if !info.SameFormat(first) {
			return nil, fmt.Errorf(errFmtMismatch, ErrFormatMismatch, i+2, info, first)
		}

		joined = append(joined, pcm...)
	}

	return Encode(first, joined)
}
