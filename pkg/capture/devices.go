package capture

import (
	"bufio"
	"context"
	"os/exec"
	"strings"

	"github.com/labstack/gommon/log"
)

// ListAudioDevices returns the capture devices ffmpeg can record from on
// this platform. Detection failures yield an empty list and video-only
// recording.
func (t Toolchain) ListAudioDevices(ctx context.Context, p Platform) []string {
	switch p {
	case PlatformWindows:
		// ffmpeg exits non-zero for the dummy input; the list is on stderr
		cmd := exec.CommandContext(ctx, t.FFmpeg, "-hide_banner", "-list_devices", "true", "-f", "dshow", "-i", "dummy")
		var stderr strings.Builder
		cmd.Stderr = &stderr
		_ = cmd.Run()
		return parseDshowDevices(stderr.String())
	case PlatformLinux:
		out, err := exec.CommandContext(ctx, "pactl", "list", "short", "sources").Output()
		if err != nil {
			log.Warnf("cannot list pulse sources | error: %v", err)
			return nil
		}
		return parsePulseSources(string(out))
	default:
		return nil
	}
}

// parseDshowDevices picks the quoted names from lines such as
//
//	[dshow @ 000001] "Stereo Mix (Realtek Audio)" (audio)
func parseDshowDevices(output string) []string {
	var devices []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "dshow") || !strings.Contains(lower, "audio") {
			continue
		}
		// Skip "Alternative name" lines
		if strings.Contains(lower, "alternative name") {
			continue
		}
		parts := strings.Split(line, `"`)
		if len(parts) < 3 || parts[1] == "" {
			continue
		}
		devices = append(devices, parts[1])
	}
	return devices
}

// parsePulseSources reads `pactl list short sources`, where the second
// tab-separated column is the source name. Monitors come first since they
// carry the meeting audio.
func parsePulseSources(output string) []string {
	var monitors, inputs []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if strings.HasSuffix(fields[1], ".monitor") {
			monitors = append(monitors, fields[1])
		} else {
			inputs = append(inputs, fields[1])
		}
	}
	return append(monitors, inputs...)
}
