// package media probes downloaded artifacts: duration via ffprobe and
// loudness analysis via ffmpeg's loudnorm filter.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// NeutralFilter is the playback filter used when loudness analysis is
// disabled or fails.
const NeutralFilter = "-vn"

// Prober inspects a materialized media file.
type Prober interface {
	// Duration probes the artifact's duration directly from the file.
	Duration(ctx context.Context, path string) (time.Duration, error)
	// Loudness computes a per-entry loudnorm playback filter string.
	Loudness(ctx context.Context, path string) (string, error)
}

// Runner executes an external command and returns its combined output.
// Injectable for tests.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// FFmpeg implements Prober by shelling out to ffprobe and ffmpeg.
type FFmpeg struct {
	run    Runner
	logger *log.Logger
}

// NewFFmpeg creates an FFmpeg prober. A nil runner uses os/exec.
func NewFFmpeg(run Runner, logger *log.Logger) *FFmpeg {
	if run == nil {
		run = defaultRunner
	}
	return &FFmpeg{run: run, logger: logger}
}

// Duration probes the file's duration with ffprobe.
func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	out, err := f.run(ctx, "ffprobe",
		"-i", path,
		"-show_entries", "format=duration",
		"-v", "quiet",
		"-of", "csv=p=0")
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ffprobe duration output for %s: %w", path, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

const loudnormTarget = "I=-24.0:LRA=7.0:TP=-2.0:linear=true"

var loudnormFields = map[string]*regexp.Regexp{
	"I":      regexp.MustCompile(`"input_i"\s*:\s*"(-?[0-9]*\.?[0-9]+)"`),
	"LRA":    regexp.MustCompile(`"input_lra"\s*:\s*"(-?[0-9]*\.?[0-9]+)"`),
	"TP":     regexp.MustCompile(`"input_tp"\s*:\s*"(-?[0-9]*\.?[0-9]+)"`),
	"thresh": regexp.MustCompile(`"input_thresh"\s*:\s*"(-?[0-9]*\.?[0-9]+)"`),
	"offset": regexp.MustCompile(`"target_offset"\s*:\s*"(-?[0-9]*\.?[0-9]+)"`),
}

// Loudness runs a loudnorm analysis pass and returns the measured filter
// string. Fields that fail to parse fall back to 0.
func (f *FFmpeg) Loudness(ctx context.Context, path string) (string, error) {
	out, err := f.run(ctx, "ffmpeg",
		"-i", path,
		"-af", "loudnorm="+loudnormTarget+":print_format=json",
		"-f", "null", os.DevNull)
	if err != nil {
		return "", fmt.Errorf("loudness analysis failed for %s: %w", path, err)
	}

	text := string(out)
	measured := make(map[string]float64, len(loudnormFields))
	for name, re := range loudnormFields {
		m := re.FindStringSubmatch(text)
		if m == nil {
			if f.logger != nil {
				f.logger.Debugf("could not parse %s in loudnorm json for %s", name, path)
			}
			measured[name] = 0
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			v = 0
		}
		measured[name] = v
	}

	return fmt.Sprintf(
		"-af loudnorm=%s:measured_I=%v:measured_LRA=%v:measured_TP=%v:measured_thresh=%v:offset=%v",
		loudnormTarget,
		measured["I"], measured["LRA"], measured["TP"], measured["thresh"], measured["offset"],
	), nil
}
