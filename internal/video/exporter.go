package video

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/replaydirector/internal/config"
	"github.com/ivlev/replaydirector/internal/host"
	"github.com/ivlev/replaydirector/internal/logging"
	"github.com/ivlev/replaydirector/internal/system"
)

// Director is the part of the sequence manager an export needs.
type Director interface {
	SetSequencing(ctx context.Context, enabled bool) error
	Bounds() (start, end float64, err error)
}

// Report describes a finished export.
type Report struct {
	Recording string
	Video     string
	Thumbnail string
	Frames    int
	Recorded  time.Duration
	Assembled time.Duration
	Memory    system.MemoryStats
}

func (r *Report) Write(w io.Writer, build string) {
	fmt.Fprintf(w, "--- [EXPORT REPORT] ---\n"+
		"Build: %s\n"+
		"Recording: %s\n"+
		"Frames: %d\n"+
		"Recording time: %.2fs\n"+
		"Assembly time: %.2fs\n"+
		"Memory: %s\n"+
		"-----------------------\n",
		build, r.Recording, r.Frames, r.Recorded.Seconds(), r.Assembled.Seconds(), r.Memory)
	if r.Video != "" {
		fmt.Fprintf(w, "Video: %s\n", r.Video)
	}
}

type Exporter struct {
	director  Director
	host      host.Host
	assembler Assembler
	cfg       config.ExportConfig
	logger    *slog.Logger
}

type Option func(*Exporter)

func WithLogger(logger *slog.Logger) Option {
	return func(x *Exporter) {
		x.logger = logger
	}
}

// WithAssembler replaces the ffmpeg assembler built from the config.
func WithAssembler(a Assembler) Option {
	return func(x *Exporter) {
		x.assembler = a
	}
}

func NewExporter(d Director, h host.Host, cfg config.ExportConfig, opts ...Option) *Exporter {
	x := &Exporter{
		director: d,
		host:     h,
		cfg:      cfg,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.assembler == nil {
		x.assembler = &FFmpegEncoder{Encoder: cfg.VideoEncoder, Quality: cfg.Quality, FPS: cfg.FPS}
	}
	return x
}

// Export records the active sequence over its bounds and waits for the host
// to finish. Cancelling ctx stops the host recording. PNG recordings are
// assembled into a video with a poster thumbnail next to it.
func (x *Exporter) Export(ctx context.Context) (*Report, error) {
	start, end, err := x.director.Bounds()
	if err != nil {
		return nil, err
	}

	outDir, err := filepath.Abs(x.cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	x.checkDisk(ctx, outDir)

	if err := x.director.SetSequencing(ctx, true); err != nil {
		return nil, fmt.Errorf("enable sequencing: %w", err)
	}
	if err := x.host.Play(ctx); err != nil {
		return nil, fmt.Errorf("start playback: %w", err)
	}

	began := time.Now()
	err = x.host.StartRecording(ctx, host.Recording{
		Codec:            x.cfg.Codec,
		StartTime:        start,
		EndTime:          end,
		FramesPerSecond:  x.cfg.FPS,
		EnforceFrameRate: x.cfg.EnforceFrameRate,
		Lossless:         x.cfg.Lossless,
		Path:             outDir,
	})
	if err != nil {
		return nil, fmt.Errorf("start recording: %w", err)
	}
	x.logger.Info("recording started", "start", start, "end", end, "codec", x.cfg.Codec, "dir", outDir)

	rec, err := x.wait(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Recording: rec.Path, Recorded: time.Since(began)}
	if rec.Path == "" {
		report.Recording = outDir
	}
	x.logger.Info("recording finished", "path", report.Recording, "took", report.Recorded)

	if strings.EqualFold(x.cfg.Codec, "png") {
		if err := x.assemble(ctx, report); err != nil {
			return report, err
		}
	}

	if report.Memory, err = system.Memory(ctx); err != nil {
		x.logger.Warn("memory stats", "error", err)
	}
	return report, nil
}

func (x *Exporter) checkDisk(ctx context.Context, dir string) {
	if x.cfg.MinFreeDiskMB == 0 {
		return
	}
	free, err := system.FreeDiskMB(ctx, dir)
	if err != nil {
		x.logger.Warn("free disk check", "error", err)
		return
	}
	if free < x.cfg.MinFreeDiskMB {
		x.logger.Warn("low free disk space for recording", "dir", dir, "free_mb", free, "min_mb", x.cfg.MinFreeDiskMB)
	}
}

// wait polls the host until the recording ends.
func (x *Exporter) wait(ctx context.Context) (host.Recording, error) {
	interval := x.cfg.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last host.Recording
	for {
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := x.host.StopRecording(stopCtx); err != nil {
				x.logger.Warn("stop recording", "error", err)
			}
			x.logger.Info("recording cancelled")
			return last, ctx.Err()
		case <-ticker.C:
			rec, err := x.host.RecordingState(ctx)
			if err != nil {
				x.logger.Warn("recording state", "error", err)
				continue
			}
			if rec.Path != "" {
				last = rec
			}
			if !rec.Recording {
				if last.Path == "" {
					last = rec
				}
				return last, nil
			}
			x.logger.Debug("recording", "time", rec.CurrentTime, "end", rec.EndTime)
		}
	}
}

func (x *Exporter) assemble(ctx context.Context, report *Report) error {
	frames, err := Frames(report.Recording)
	if err != nil {
		return fmt.Errorf("list frames: %w", err)
	}
	report.Frames = len(frames)
	if len(frames) == 0 {
		return fmt.Errorf("no frames in %s", report.Recording)
	}

	base := strings.TrimSuffix(report.Recording, string(filepath.Separator))
	began := time.Now()
	video := base + ".mp4"
	if err := x.assembler.Assemble(ctx, frames, video); err != nil {
		return err
	}
	report.Video = video
	report.Assembled = time.Since(began)

	thumb := base + ".jpg"
	if err := Thumbnail(frames[0], thumb, x.cfg.ThumbnailWidth); err != nil {
		x.logger.Warn("thumbnail", "error", err)
	} else {
		report.Thumbnail = thumb
	}
	x.logger.Info("video assembled", "video", video, "frames", len(frames), "took", report.Assembled)
	return nil
}
