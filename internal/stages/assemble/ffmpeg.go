// Package assemble stitches per-turn audio segments into a single episode
// track with ffmpeg's concat demuxer.
package assemble

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/castforge/podcast-be/internal/domain"
)

const maxStderrBytes = 480

// commandResult captures one external command invocation.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution so tests stub the ffmpeg binary.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// FFmpeg combines ordered mp3 segments into one file via the concat
// demuxer, stream-copied so nothing is re-encoded. It implements the
// worker's AudioAssembler contract.
type FFmpeg struct {
	ffmpegPath string
	runner     commandRunner
	mkdirTemp  func(dir, pattern string) (string, error)
	removeAll  func(path string) error
}

// NewFFmpeg constructs the production assembler using the ffmpeg binary
// on PATH.
func NewFFmpeg() *FFmpeg {
	return &FFmpeg{
		ffmpegPath: "ffmpeg",
		runner:     &execRunner{},
		mkdirTemp:  os.MkdirTemp,
		removeAll:  os.RemoveAll,
	}
}

// NewFFmpegForTests wires a custom binary name and runner.
func NewFFmpegForTests(ffmpegPath string, runner commandRunner) *FFmpeg {
	f := NewFFmpeg()
	f.ffmpegPath = ffmpegPath
	f.runner = runner
	return f
}

// AssembleAudio writes the segments to a temporary workspace, concatenates
// them, and returns the combined bytes with the summed duration. A single
// segment is returned as-is without invoking ffmpeg.
func (f *FFmpeg) AssembleAudio(ctx context.Context, segments []domain.AudioSegment) (domain.AudioSegment, error) {
	if len(segments) == 0 {
		return domain.AudioSegment{}, fmt.Errorf("no audio segments to assemble")
	}

	var total domain.AudioSegment
	for _, segment := range segments {
		total.Duration += segment.Duration
	}

	if len(segments) == 1 {
		total.Data = append([]byte(nil), segments[0].Data...)
		return total, nil
	}

	tempDir, err := f.mkdirTemp("", "podcast-assemble-*")
	if err != nil {
		return domain.AudioSegment{}, fmt.Errorf("create assembly workspace: %w", err)
	}
	defer func() {
		_ = f.removeAll(tempDir)
	}()

	var list strings.Builder
	for i, segment := range segments {
		segmentPath := filepath.Join(tempDir, fmt.Sprintf("segment-%03d.mp3", i))
		if err := os.WriteFile(segmentPath, segment.Data, 0o644); err != nil {
			return domain.AudioSegment{}, fmt.Errorf("write segment %d: %w", i, err)
		}
		fmt.Fprintf(&list, "file '%s'\n", segmentPath)
	}

	listPath := filepath.Join(tempDir, "list.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return domain.AudioSegment{}, fmt.Errorf("write concat list: %w", err)
	}

	outPath := filepath.Join(tempDir, "episode.mp3")
	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", outPath}

	result, err := f.runner.Run(ctx, f.ffmpegPath, args...)
	if err != nil {
		return domain.AudioSegment{}, fmt.Errorf("ffmpeg concat failed (exit %d): %w: %s",
			result.ExitCode, err, stderrTail(result.Stderr))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return domain.AudioSegment{}, fmt.Errorf("read assembled audio: %w", err)
	}
	if len(data) == 0 {
		return domain.AudioSegment{}, fmt.Errorf("assembled audio is empty")
	}

	total.Data = data
	return total, nil
}

// stderrTail keeps the end of ffmpeg's stderr, where the actual error
// lands after the banner and stream info.
func stderrTail(stderr string) string {
	trimmed := strings.TrimSpace(stderr)
	if trimmed == "" {
		return "no stderr output"
	}
	if len(trimmed) > maxStderrBytes {
		trimmed = "..." + trimmed[len(trimmed)-maxStderrBytes:]
	}
	return trimmed
}
