package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ivlev/replaydirector/internal/engine"
	"github.com/ivlev/replaydirector/internal/renderer"
	"github.com/ivlev/replaydirector/internal/system"
	"github.com/ivlev/replaydirector/internal/video"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Record the active sequence and assemble the video",
	Long:  `Enables sequencing, records the sequence bounds through the game client and, for PNG recordings, assembles an H.264 video with ffmpeg. Interrupting stops the recording.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if name, _ := cmd.Flags().GetString("sequence"); name != "" {
			if err := a.manager.Switch(ctx, name); err != nil {
				return err
			}
		}
		cfg := a.cfg.Export
		if codec, _ := cmd.Flags().GetString("codec"); codec != "" {
			cfg.Codec = codec
		}
		if out, _ := cmd.Flags().GetString("output"); out != "" {
			cfg.OutputDir = out
		}
		if cfg.VideoEncoder == "" {
			cfg.VideoEncoder = system.BestH264Encoder(ctx)
			a.logger.Info("video encoder", "name", cfg.VideoEncoder)
		}

		// the sync loop drives the host while it records
		sync := renderer.NewSync(a.manager, a.host, a.host,
			renderer.WithTimeout(a.cfg.SetTimeout),
			renderer.WithLogger(a.logger),
			renderer.WithMetrics(a.metrics),
		)
		scheduler := engine.NewScheduler(a.manager, sync, a.cfg.Ticks, engine.WithLogger(a.logger))
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- scheduler.Run(runCtx)
		}()

		report, err := video.NewExporter(a.manager, a.host, cfg, video.WithLogger(a.logger)).Export(ctx)
		cancel()
		if serr := <-done; serr != nil && !errors.Is(serr, context.Canceled) {
			a.logger.Warn("scheduler", "error", serr)
		}
		if err := a.manager.SetSequencing(context.Background(), false); err != nil {
			a.logger.Warn("disable sequencing", "error", err)
		}
		if err != nil {
			return err
		}

		if cfg.ShowStats {
			report.Write(os.Stdout, a.cfg.BuildVersion)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("sequence", "", "Sequence to export (default: most recent)")
	exportCmd.Flags().String("codec", "", "png or webm (overrides config)")
	exportCmd.Flags().StringP("output", "o", "", "Recording directory (overrides config)")
}
