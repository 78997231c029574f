package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/config"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/session"
	"github.com/lithammer/shortuuid/v4"
	"github.com/spf13/cobra"
)

func newRecordCmd() *cobra.Command {
	var (
		output   string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "record <meeting-link>",
		Short: "Record a single meeting and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd.Context(), args[0], output, duration)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: a generated name in RECORDINGS_DIR)")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Maximum recording duration (default: MEETING_DURATION)")
	return cmd
}

func runRecord(ctx context.Context, link, output string, duration time.Duration) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if output == "" {
		if err = config.EnsureDir(c.RecordingsDir); err != nil {
			return err
		}
		output = filepath.Join(c.RecordingsDir, "reco-"+shortuuid.New()+".mp4")
	}

	tools, err := sessionTools(ctx, c)
	if err != nil {
		return err
	}

	sc := sessionConfig(c)
	sc.ID = shortuuid.New()
	sc.Link = link
	sc.Output = output
	if duration > 0 {
		sc.Duration = duration
	}

	s, err := session.New(sc, tools)
	if err != nil {
		return err
	}

	// The first signal stops the session through its stop sequence; a second one exits.
	go func() {
		<-ctx.Done()
		stop()
		s.Stop()
	}()

	runErr := s.Run(context.WithoutCancel(ctx))
	<-s.Done()

	data, err := json.MarshalIndent(s.Data(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))

	if runErr != nil {
		return runErr
	}
	if s.Data().State == session.StateFailed {
		return errors.New(s.Data().Error)
	}
	return nil
}
