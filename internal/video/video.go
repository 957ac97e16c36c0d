// Package video records sequences through the render host and turns PNG frame
// recordings into H.264 videos.
package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Assembler turns an ordered list of still frames into one video file.
type Assembler interface {
	Assemble(ctx context.Context, frames []string, out string) error
}

// FFmpegEncoder assembles frames with the ffmpeg concat demuxer.
type FFmpegEncoder struct {
	Encoder string
	Quality int
	FPS     int
}

var _ Assembler = (*FFmpegEncoder)(nil)

func (e *FFmpegEncoder) Assemble(ctx context.Context, frames []string, out string) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to assemble")
	}

	tmpDir, err := os.MkdirTemp("", "replaydirector_")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	listPath := filepath.Join(tmpDir, "inputs.txt")
	if err := os.WriteFile(listPath, []byte(concatList(frames, e.FPS)), 0o644); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", e.buildArgs(listPath, out)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg assemble: %w, output: %s", err, string(output))
	}
	return nil
}

// concatList writes one entry per frame. The last frame is listed twice,
// the demuxer ignores the duration of the final entry otherwise.
func concatList(frames []string, fps int) string {
	var b strings.Builder
	duration := 1 / float64(fps)
	for _, f := range frames {
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = f
		}
		fmt.Fprintf(&b, "file '%s'\nduration %f\n", escapeQuote(abs), duration)
	}
	last, err := filepath.Abs(frames[len(frames)-1])
	if err != nil {
		last = frames[len(frames)-1]
	}
	fmt.Fprintf(&b, "file '%s'\n", escapeQuote(last))
	return b.String()
}

func escapeQuote(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}

func (e *FFmpegEncoder) buildArgs(listPath, out string) []string {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-r", fmt.Sprintf("%d", e.FPS),
		"-pix_fmt", "yuv420p",
		"-c:v", e.Encoder,
	}

	switch e.Encoder {
	case "h264_videotoolbox":
		// no -q:v on every version, use a bitrate
		args = append(args, "-b:v", fmt.Sprintf("%dk", e.Quality*100))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", e.Quality))
	default:
		args = append(args, "-crf", fmt.Sprintf("%d", e.Quality), "-preset", "medium")
	}

	return append(args, out)
}

// Frames lists the PNG files of a frame recording in name order.
func Frames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var frames []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		frames = append(frames, filepath.Join(dir, e.Name()))
	}
	sort.Strings(frames)
	return frames, nil
}
