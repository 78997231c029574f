package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/recording"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	LogLevel string
	Webhooks []string

	RecordingsDir   string
	MeetingDuration time.Duration

	// Bot account, optional
	BotEmail    string
	BotPassword string

	Headless   bool
	ChromePath string

	FFmpegPath     string
	FFprobePath    string
	CaptureDisplay string
	AudioDevices   []string

	S3Region    string
	S3Bucket    string
	S3Directory string

	TranscribeURL    string
	TranscribeAPIKey string
	TranscribeModel  string
	EmotionURL       string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleTokenFile    string
}

var (
	ErrEmptyPort       = errors.New("APP_PORT not set")
	ErrInvalidDuration = errors.New("invalid MEETING_DURATION")
)

// Load reads the configuration from the environment. The env file is loaded
// first when it exists, without overriding variables already set.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err = godotenv.Load(envFile); err != nil {
				return Config{}, err
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	v := viper.New()
	v.SetDefault("LOG_LEVEL", "error")
	v.SetDefault("RECORDINGS_DIR", "recordings")
	v.SetDefault("MEETING_DURATION", "60")
	v.SetDefault("BROWSER_HEADLESS", true)
	v.SetDefault("FFMPEG_PATH", "ffmpeg")
	v.SetDefault("FFPROBE_PATH", "ffprobe")
	v.SetDefault("TRANSCRIBE_MODEL", "whisper-1")
	v.SetDefault("GOOGLE_TOKEN_FILE", "token.json")
	v.AutomaticEnv()

	duration, err := parseMinutes(v.GetString("MEETING_DURATION"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		Port:               v.GetString("APP_PORT"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		Webhooks:           splitList(v.GetString("WEBHOOK_URLS")),
		RecordingsDir:      v.GetString("RECORDINGS_DIR"),
		MeetingDuration:    duration,
		BotEmail:           v.GetString("MEET_BOT_EMAIL"),
		BotPassword:        v.GetString("MEET_BOT_PASSWORD"),
		Headless:           v.GetBool("BROWSER_HEADLESS"),
		ChromePath:         v.GetString("CHROME_PATH"),
		FFmpegPath:         v.GetString("FFMPEG_PATH"),
		FFprobePath:        v.GetString("FFPROBE_PATH"),
		CaptureDisplay:     v.GetString("CAPTURE_DISPLAY"),
		AudioDevices:       splitList(v.GetString("AUDIO_DEVICES")),
		S3Region:           v.GetString("S3_REGION"),
		S3Bucket:           v.GetString("S3_BUCKET"),
		S3Directory:        v.GetString("S3_DIRECTORY"),
		TranscribeURL:      v.GetString("TRANSCRIBE_URL"),
		TranscribeAPIKey:   v.GetString("TRANSCRIBE_API_KEY"),
		TranscribeModel:    v.GetString("TRANSCRIBE_MODEL"),
		EmotionURL:         v.GetString("EMOTION_URL"),
		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleTokenFile:    v.GetString("GOOGLE_TOKEN_FILE"),
	}, nil
}

// parseMinutes reads a bare number as minutes and anything else as a Go
// duration. The result must fit a single recording.
func parseMinutes(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)

	var d time.Duration
	if minutes, err := strconv.ParseInt(value, 10, 64); err == nil {
		if minutes <= 0 || minutes > int64(recording.MaxDuration/time.Minute) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, value)
		}
		d = time.Duration(minutes) * time.Minute
	} else if d, err = time.ParseDuration(value); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDuration, err)
	}

	if d <= 0 || d > recording.MaxDuration {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDuration, d)
	}
	return d, nil
}

// Separate by comma
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c Config) UploadEnabled() bool {
	return c.S3Region != "" && c.S3Bucket != ""
}

func (c Config) CalendarEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func Verbosity(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "info":
		return log.INFO
	case "warn":
		return log.WARN
	case "error":
		fallthrough
	default:
		return log.ERROR
	}
}

func SetupLogging(level string) {
	log.SetLevel(Verbosity(level))
	log.SetHeader("(${short_file}:${line}) ${time_rfc3339} ${level}: ")
}

// EnsureDir creates the recordings directory with webserver permissions.
func EnsureDir(dir string) error {
	stat, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	if err != nil {
		return err
	}
	if stat.Mode().Perm() != 0755 {
		return os.Chmod(dir, 0755)
	}
	return nil
}
