package cmd

import (
	"context"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/analyze"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/browser"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/capture"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/config"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/meet"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/session"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/transcript"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/upload"
	"github.com/labstack/gommon/log"
)

func loadConfig() (config.Config, error) {
	c, err := config.Load(envFile)
	if err != nil {
		return c, err
	}
	config.SetupLogging(c.LogLevel)
	return c, nil
}

func captureConfig(c config.Config) capture.Config {
	cc := capture.DefaultConfig()
	cc.Tools = capture.Toolchain{FFmpeg: c.FFmpegPath, FFprobe: c.FFprobePath}
	if c.CaptureDisplay != "" {
		cc.Grab.Display = c.CaptureDisplay
	}
	cc.AudioDevices = c.AudioDevices
	return cc
}

func sessionConfig(c config.Config) session.Config {
	sc := session.DefaultConfig()
	sc.Duration = c.MeetingDuration
	sc.Email = c.BotEmail
	sc.Password = c.BotPassword
	return sc
}

// sessionTools builds the collaborators every session shares.
func sessionTools(ctx context.Context, c config.Config) (session.Tools, error) {
	cc := captureConfig(c)

	// Check that ffmpeg is installed
	if err := cc.Tools.Check(); err != nil {
		return session.Tools{}, err
	}

	opts := browser.DefaultOptions()
	opts.Headless = c.Headless
	opts.ExecPath = c.ChromePath

	tools := session.Tools{
		Launch: session.ChromeLauncher(opts, meet.DefaultTimeouts()),
		NewRecorder: func(output string) capture.Recorder {
			return capture.NewRecorder(cc, output)
		},
		Media: cc.Tools,
		Analyzers: session.EmotionAnalyzers(analyze.EmotionConfig{
			Endpoint: c.EmotionURL,
			Interval: 5 * time.Second,
		}),
	}

	if c.TranscribeURL != "" {
		backend, err := transcript.NewWhisperBackend(transcript.WhisperConfig{
			BaseURL: c.TranscribeURL,
			APIKey:  c.TranscribeAPIKey,
			Model:   c.TranscribeModel,
		})
		if err != nil {
			return session.Tools{}, err
		}
		tools.Transcriber = transcript.NewService(cc.Tools, backend, transcript.DefaultSpeakerGap)
	}

	// Create S3 uploader only if the environment variables are not empty
	if c.UploadEnabled() {
		uploader, err := upload.NewS3Uploader(ctx, upload.S3Config{
			Region:    c.S3Region,
			Bucket:    c.S3Bucket,
			Directory: c.S3Directory,
		})
		if err != nil {
			return session.Tools{}, err
		}
		tools.Uploader = uploader
		log.Infof("uploads enabled | bucket: %s, directory: %s", c.S3Bucket, c.S3Directory)
	}
	return tools, nil
}
