package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/labstack/gommon/log"
)

// Toolchain locates the ffmpeg binaries.
type Toolchain struct {
	FFmpeg  string
	FFprobe string
}

func DefaultToolchain() Toolchain {
	return Toolchain{FFmpeg: "ffmpeg", FFprobe: "ffprobe"}
}

// Check fails when ffmpeg cannot be found on PATH.
func (t Toolchain) Check() error {
	if _, err := exec.LookPath(t.FFmpeg); err != nil {
		return err
	}
	return nil
}

var (
	ErrOutputMissing = errors.New("recording file was not created")
	ErrOutputCorrupt = errors.New("recording file might be corrupted")
)

const (
	probeTimeout  = 5 * time.Second
	repairTimeout = 30 * time.Second
)

// Validate checks that the recording exists and that ffprobe can read its
// container. It returns the file size in bytes.
func (t Toolchain) Validate(ctx context.Context, path string) (int64, error) {
	stat, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, ErrOutputMissing
	} else if err != nil {
		return 0, err
	}
	log.Infof("recording saved | output: %s, size: %.2f MB", path, float64(stat.Size())/(1024*1024))

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.FFprobe, "-v", "error", "-show_format", path)
	if err = cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stat.Size(), ErrOutputCorrupt
		}
		return stat.Size(), fmt.Errorf("cannot validate recording: %w", err)
	}
	return stat.Size(), nil
}

// Repair remuxes a damaged recording so the moov atom is rewritten, then
// swaps the result in place of the original.
func (t Toolchain) Repair(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, repairTimeout)
	defer cancel()

	tmp := path + ".temp.mp4"
	cmd := exec.CommandContext(ctx, t.FFmpeg,
		"-i", path,
		"-c", "copy",
		"-f", "mp4",
		"-movflags", "+faststart",
		"-loglevel", "error", "-y",
		tmp,
	)
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stdout
	if err := cmd.Run(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cannot repair recording: %w", err)
	}

	if _, err := os.Stat(tmp); err != nil {
		return fmt.Errorf("repair produced no output: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	log.Infof("repaired recording | output: %s", path)
	return nil
}

// ExtractAudio writes 16 kHz mono PCM, the format speech backends expect.
func (t Toolchain) ExtractAudio(ctx context.Context, input string, output string) error {
	cmd := exec.CommandContext(ctx, t.FFmpeg,
		"-i", input,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"-loglevel", "error", "-y",
		output,
	)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
