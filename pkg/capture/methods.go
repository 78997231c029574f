package capture

import (
	"fmt"
	"runtime"
	"strconv"
)

type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformLinux   Platform = "linux"
	PlatformDarwin  Platform = "darwin"
)

func CurrentPlatform() Platform {
	return Platform(runtime.GOOS)
}

// Method is one way of invoking ffmpeg. Methods are tried in order until one
// keeps running.
type Method struct {
	Name string
	Args []string
}

type GrabOptions struct {
	// Display is the screen input: "desktop" for gdigrab, ":99.0" for
	// x11grab, a device index for avfoundation.
	Display   string
	FrameRate int
	VideoSize string
}

func DefaultGrabOptions(p Platform) GrabOptions {
	opts := GrabOptions{FrameRate: 30, VideoSize: "1920x1080"}
	switch p {
	case PlatformWindows:
		opts.Display = "desktop"
	case PlatformDarwin:
		opts.Display = "1"
	default:
		opts.Display = ":0.0"
	}
	return opts
}

func videoInput(p Platform, opts GrabOptions) []string {
	rate := strconv.Itoa(opts.FrameRate)
	switch p {
	case PlatformWindows:
		return []string{"-f", "gdigrab", "-framerate", rate, "-video_size", opts.VideoSize, "-i", opts.Display}
	case PlatformDarwin:
		return []string{"-f", "avfoundation", "-framerate", rate, "-video_size", opts.VideoSize, "-i", opts.Display + ":none"}
	default:
		return []string{"-f", "x11grab", "-framerate", rate, "-video_size", opts.VideoSize, "-i", opts.Display}
	}
}

func audioInput(p Platform, device string) []string {
	switch p {
	case PlatformWindows:
		return []string{"-f", "dshow", "-i", "audio=" + device}
	case PlatformDarwin:
		return []string{"-f", "avfoundation", "-i", "none:" + device}
	default:
		return []string{"-f", "pulse", "-i", device}
	}
}

var (
	videoCodec = []string{"-c:v", "libx264", "-preset", "ultrafast", "-pix_fmt", "yuv420p"}
	audioCodec = []string{"-c:a", "aac", "-b:a", "192k"}
)

// BuildMethods lists recording commands in order of preference: two mixed
// audio devices, a single audio device, then video only.
func BuildMethods(p Platform, devices []string, output string, opts GrabOptions) []Method {
	var methods []Method
	video := videoInput(p, opts)
	tail := []string{"-movflags", "+faststart", "-y", output}

	if len(devices) >= 2 {
		args := append([]string{}, video...)
		args = append(args, audioInput(p, devices[0])...)
		args = append(args, audioInput(p, devices[1])...)
		args = append(args,
			"-filter_complex", "[1:a][2:a]amix=inputs=2[a]",
			"-map", "0:v", "-map", "[a]")
		args = append(args, videoCodec...)
		args = append(args, audioCodec...)
		args = append(args, tail...)
		methods = append(methods, Method{
			Name: fmt.Sprintf("mixed audio (%s + %s)", devices[0], devices[1]),
			Args: args,
		})
	}

	if len(devices) >= 1 {
		args := append([]string{}, video...)
		args = append(args, audioInput(p, devices[0])...)
		args = append(args, videoCodec...)
		args = append(args, audioCodec...)
		args = append(args, tail...)
		methods = append(methods, Method{
			Name: fmt.Sprintf("single audio (%s)", devices[0]),
			Args: args,
		})
	}

	args := append([]string{}, video...)
	args = append(args, videoCodec...)
	args = append(args, "-an")
	args = append(args, tail...)
	methods = append(methods, Method{Name: "video only", Args: args})

	return methods
}
