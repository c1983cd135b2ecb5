package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrToolUnavailable marks a required external binary that could not be
// located. Fatal to the job; retrying in-process cannot help.
var ErrToolUnavailable = errors.New("required external tool not found")

// Tool output included in error messages is trimmed so persistence-store
// error fields stay readable.
const maxToolOutput = 2000

// FFmpeg wraps the external ffmpeg/ffprobe binaries for transcoding and
// frame extraction. Instances are stateless and safe for concurrent use.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// transcodeArgs is the fixed high-quality encoding profile: 1080p, libx264
// constant quality with multi-reference motion estimation.
func transcodeArgs(input, output string) []string {
	return []string{
		"-y",
		"-i", input,
		"-vf", "scale=1920:1080",
		"-c:v", "libx264",
		"-preset", "slow",
		"-crf", "18",
		"-profile:v", "high",
		"-level", "4.1",
		"-bf", "3",
		"-g", "60",
		"-keyint_min", "60",
		"-sc_threshold", "0",
		"-tune", "film",
		"-x264opts", "ref=6:me=umh:subme=9:merange=24:trellis=2:aq-mode=3",
		"-movflags", "+faststart",
		output,
	}
}

// Transcode converts the input video to the normalized output profile.
func (f *FFmpeg) Transcode(ctx context.Context, input, output string) error {
	if err := f.run(ctx, f.ffmpegPath, transcodeArgs(input, output)...); err != nil {
		return fmt.Errorf("transcode: %w", err)
	}
	return nil
}

// ExtractFrames samples the video at fps frames per second into numbered
// JPEG files under dir and returns the sorted file paths.
func (f *FFmpeg) ExtractFrames(ctx context.Context, video, dir string, fps int) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}

	pattern := filepath.Join(dir, "frame_%05d.jpg")
	args := []string{"-y", "-i", video, "-vf", fmt.Sprintf("fps=%d", fps), pattern}
	if err := f.run(ctx, f.ffmpegPath, args...); err != nil {
		return nil, fmt.Errorf("extract frames: %w", err)
	}

	frames, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	sort.Strings(frames)
	return frames, nil
}

// ProbeDuration returns the container duration in seconds. Used for logging
// only; a probe failure is not fatal to the job.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	bin, err := exec.LookPath(f.ffprobePath)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrToolUnavailable, f.ffprobePath)
	}

	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	if durationStr == "" {
		return 0, errors.New("ffprobe: empty duration")
	}
	return strconv.ParseFloat(durationStr, 64)
}

// run executes the tool and surfaces trimmed stderr on non-zero exit.
func (f *FFmpeg) run(ctx context.Context, path string, args ...string) error {
	bin, err := exec.LookPath(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrToolUnavailable, path)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w - %s", filepath.Base(bin), err, trimOutput(stderr.String()))
	}
	return nil
}

// trimOutput keeps the tail of tool output, where ffmpeg puts the actual
// error.
func trimOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxToolOutput {
		s = s[len(s)-maxToolOutput:]
	}
	return s
}
