package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/moments/moments-agent/internal/config"
	"github.com/moments/moments-agent/internal/ffmpeg"
	"github.com/moments/moments-agent/internal/logging"
)

func newDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that ffmpeg and ffprobe can be found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := logging.NewLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel())
			doctor := ffmpeg.NewDoctor(cfg.FFmpegPath(), cfg.FFprobePath(), logger)

			ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
			defer cancel()
			caps := doctor.Refresh(ctx)

			writeDoctorReport(cmd.OutOrStdout(), caps)
			if !caps.Ready() {
				return fmt.Errorf("ffmpeg not found: compositions cannot be encoded")
			}
			return nil
		},
	}
}

func writeDoctorReport(w io.Writer, caps *ffmpeg.Capabilities) {
	rows := [][]string{
		{"ffmpeg", availability(caps.HasFFmpeg), caps.FFmpegPath, caps.FFmpegVersion},
		{"ffprobe", availability(caps.HasFFprobe), caps.FFprobePath, ""},
	}
	fmt.Fprintln(w, renderTable([]string{"Tool", "Status", "Path", "Version"}, rows, nil))
	if !caps.HasFFprobe {
		fmt.Fprintln(w, "Without ffprobe, gallery videos report no duration.")
	}
}

func availability(ok bool) string {
	if ok {
		return "OK"
	}
	return "MISSING"
}
