package transcript

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrInvalidWAV = errors.New("invalid wav file")

type chunk struct {
	Path   string
	Offset time.Duration
}

const readFrames = 4096

// splitWAV streams path into consecutive files of at most max each. Chunks
// are written next to the source and must be removed by the caller.
func splitWAV(path string, max time.Duration) ([]chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if err = d.FwdToPCM(); err != nil {
		return nil, err
	}

	rate := int(d.SampleRate)
	chans := int(d.NumChans)
	depth := int(d.BitDepth)
	if rate == 0 || chans == 0 {
		return nil, ErrInvalidWAV
	}
	limit := int(max.Seconds() * float64(rate))
	if limit <= 0 {
		return nil, fmt.Errorf("chunk length too small: %v", max)
	}

	base := strings.TrimSuffix(path, filepath.Ext(path))
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: chans, SampleRate: rate},
		Data:           make([]int, readFrames*chans),
		SourceBitDepth: depth,
	}

	var (
		chunks []chunk
		offset int
		eof    bool
	)
	for !eof {
		name := fmt.Sprintf("%s_part%03d.wav", base, len(chunks))
		frames, err := writeChunk(d, buf, name, rate, depth, chans, limit)
		if err == io.EOF {
			eof = true
		} else if err != nil {
			removeChunks(chunks)
			os.Remove(name)
			return nil, err
		}
		if frames == 0 {
			os.Remove(name)
			break
		}
		chunks = append(chunks, chunk{
			Path:   name,
			Offset: time.Duration(offset) * time.Second / time.Duration(rate),
		})
		offset += frames
	}
	return chunks, nil
}

// writeChunk copies up to limit frames into a new file. It returns io.EOF
// once the source is exhausted.
func writeChunk(d *wav.Decoder, buf *audio.IntBuffer, name string, rate, depth, chans, limit int) (int, error) {
	out, err := os.Create(name)
	if err != nil {
		return 0, err
	}
	enc := wav.NewEncoder(out, rate, depth, chans, 1)

	frames := 0
	var readErr error
	for frames < limit {
		want := (limit - frames) * chans
		if want > cap(buf.Data) {
			want = cap(buf.Data)
		}
		buf.Data = buf.Data[:want]

		n, err := d.PCMBuffer(buf)
		if n == 0 || err == io.EOF {
			readErr = io.EOF
			if n == 0 {
				break
			}
		} else if err != nil {
			readErr = err
			break
		}

		if err = enc.Write(&audio.IntBuffer{Format: buf.Format, Data: buf.Data[:n], SourceBitDepth: depth}); err != nil {
			readErr = err
			break
		}
		frames += n / chans
		if readErr == io.EOF {
			break
		}
	}

	if err := enc.Close(); err != nil && (readErr == nil || readErr == io.EOF) {
		readErr = err
	}
	if err := out.Close(); err != nil && (readErr == nil || readErr == io.EOF) {
		readErr = err
	}
	return frames, readErr
}

func removeChunks(chunks []chunk) {
	for _, c := range chunks {
		os.Remove(c.Path)
	}
}
