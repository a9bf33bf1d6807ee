// Package pcm provides a media element that plays decoded PCM audio and taps
// the played samples into the analysis pipeline.
package pcm

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
)

// Channels is the channel count of every decoded clip.
const Channels = 2

// frameSize is the byte size of one interleaved 16-bit stereo frame.
const frameSize = Channels * 2

// Clip is a fully decoded track as interleaved signed 16-bit little-endian stereo.
type Clip struct {
	SampleRate int
	PCM        []byte
}

// Frames returns the number of stereo frames in the clip.
func (c *Clip) Frames() int {
	return len(c.PCM) / frameSize
}

// Duration returns the playing time of the clip.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// SupportedExtensions lists the file extensions Decode understands.
var SupportedExtensions = []string{".wav", ".mp3"}

// Decode reads an audio file, picking the decoder by extension.
func Decode(path string) (*Clip, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".wav" && ext != ".mp3" {
		return nil, domain.NewMediaError("decode", path, "unsupported extension "+ext, domain.ErrUnsupportedFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewMediaError("open", path, err.Error(), err)
	}
	defer f.Close()

	var clip *Clip
	switch ext {
	case ".wav":
		clip, err = DecodeWAV(f)
	case ".mp3":
		clip, err = DecodeMP3(f)
	}
	if err != nil {
		return nil, domain.NewMediaError("decode", path, err.Error(), err)
	}
	return clip, nil
}

// DecodeWAV decodes a PCM WAV stream of 8, 16, 24 or 32 bits.
// Mono input is duplicated to both channels; extra channels are dropped.
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %w", domain.ErrUnsupportedFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}
	return clipFromIntBuffer(buf)
}

func clipFromIntBuffer(buf *audio.IntBuffer) (*Clip, error) {
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("missing WAV format: %w", domain.ErrUnsupportedFormat)
	}
	toInt16, err := sampleConverter(buf.SourceBitDepth)
	if err != nil {
		return nil, err
	}

	chans := buf.Format.NumChannels
	frames := len(buf.Data) / chans
	pcm := make([]byte, frames*frameSize)
	for i := 0; i < frames; i++ {
		left := toInt16(buf.Data[i*chans])
		right := left
		if chans > 1 {
			right = toInt16(buf.Data[i*chans+1])
		}
		binary.LittleEndian.PutUint16(pcm[i*frameSize:], uint16(left))
		binary.LittleEndian.PutUint16(pcm[i*frameSize+2:], uint16(right))
	}
	return &Clip{SampleRate: buf.Format.SampleRate, PCM: pcm}, nil
}

func sampleConverter(bitDepth int) (func(int) int16, error) {
	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned
		return func(v int) int16 { return int16((v - 128) << 8) }, nil
	case 16:
		return func(v int) int16 { return int16(v) }, nil
	case 24:
		return func(v int) int16 { return int16(v >> 8) }, nil
	case 32:
		return func(v int) int16 { return int16(v >> 16) }, nil
	default:
		return nil, fmt.Errorf("unhandled bit depth %d: %w", bitDepth, domain.ErrUnsupportedFormat)
	}
}

// DecodeMP3 decodes an MP3 stream. go-mp3 always yields 16-bit stereo.
func DecodeMP3(r io.Reader) (*Clip, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("opening MP3 stream: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decoding MP3 stream: %w", err)
	}
	return &Clip{SampleRate: dec.SampleRate(), PCM: pcm[:len(pcm)/frameSize*frameSize]}, nil
}

// Resample returns the clip converted to rate by linear interpolation.
// The clip itself is returned when the rates already match.
func (c *Clip) Resample(rate int) *Clip {
	if rate <= 0 || rate == c.SampleRate || c.SampleRate <= 0 {
		return c
	}
	in := c.Frames()
	out := int(int64(in) * int64(rate) / int64(c.SampleRate))
	pcm := make([]byte, out*frameSize)
	step := float64(c.SampleRate) / float64(rate)

	for i := 0; i < out; i++ {
		pos := float64(i) * step
		j := int(pos)
		frac := pos - float64(j)
		k := min(j+1, in-1)
		for ch := 0; ch < Channels; ch++ {
			a := float64(c.sample(j, ch))
			b := float64(c.sample(k, ch))
			binary.LittleEndian.PutUint16(pcm[i*frameSize+ch*2:], uint16(int16(a+(b-a)*frac)))
		}
	}
	return &Clip{SampleRate: rate, PCM: pcm}
}

func (c *Clip) sample(frame, ch int) int16 {
	return int16(binary.LittleEndian.Uint16(c.PCM[frame*frameSize+ch*2:]))
}

// monoSamples converts interleaved stereo PCM to mono floats in [-1, 1].
func monoSamples(dst []float64, pcm []byte) []float64 {
	dst = dst[:0]
	for i := 0; i+frameSize <= len(pcm); i += frameSize {
		l := int16(binary.LittleEndian.Uint16(pcm[i:]))
		r := int16(binary.LittleEndian.Uint16(pcm[i+2:]))
		dst = append(dst, (float64(l)+float64(r))/2/32768)
	}
	return dst
}
