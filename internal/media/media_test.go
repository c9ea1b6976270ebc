package media

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	t.Run("parses ffprobe csv output", func(t *testing.T) {
		var gotName string
		var gotArgs []string
		f := NewFFmpeg(func(_ context.Context, name string, args ...string) ([]byte, error) {
			gotName = name
			gotArgs = args
			return []byte("245.123456\n"), nil
		}, nil)

		d, err := f.Duration(context.Background(), "audio_cache/track.m4a")
		if err != nil {
			t.Fatal(err)
		}

		want := time.Duration(245.123456 * float64(time.Second))
		if d != want {
			t.Errorf("Duration() = %v, want %v", d, want)
		}
		if gotName != "ffprobe" {
			t.Errorf("command = %q", gotName)
		}
		if gotArgs[1] != "audio_cache/track.m4a" {
			t.Errorf("args = %v", gotArgs)
		}
	})

	t.Run("command failure propagates", func(t *testing.T) {
		f := NewFFmpeg(func(context.Context, string, ...string) ([]byte, error) {
			return nil, errors.New("exit status 1")
		}, nil)

		if _, err := f.Duration(context.Background(), "x"); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("garbage output is an error", func(t *testing.T) {
		f := NewFFmpeg(func(context.Context, string, ...string) ([]byte, error) {
			return []byte("N/A"), nil
		}, nil)

		if _, err := f.Duration(context.Background(), "x"); err == nil {
			t.Error("expected a parse error")
		}
	})
}

const loudnormJSON = `
[Parsed_loudnorm_0 @ 0x5555]
{
	"input_i" : "-17.62",
	"input_tp" : "-2.21",
	"input_lra" : "6.90",
	"input_thresh" : "-28.13",
	"output_i" : "-23.95",
	"output_tp" : "-2.00",
	"output_lra" : "6.30",
	"output_thresh" : "-34.41",
	"normalization_type" : "linear",
	"target_offset" : "-0.05"
}
`

func TestLoudness(t *testing.T) {
	t.Run("builds the measured filter string", func(t *testing.T) {
		f := NewFFmpeg(func(context.Context, string, ...string) ([]byte, error) {
			return []byte(loudnormJSON), nil
		}, nil)

		filter, err := f.Loudness(context.Background(), "audio_cache/track.m4a")
		if err != nil {
			t.Fatal(err)
		}

		for _, want := range []string{
			"-af loudnorm=I=-24.0:LRA=7.0:TP=-2.0:linear=true",
			"measured_I=-17.62",
			"measured_LRA=6.9",
			"measured_TP=-2.21",
			"measured_thresh=-28.13",
			"offset=-0.05",
		} {
			if !strings.Contains(filter, want) {
				t.Errorf("filter %q missing %q", filter, want)
			}
		}
	})

	t.Run("unparsable fields fall back to zero", func(t *testing.T) {
		f := NewFFmpeg(func(context.Context, string, ...string) ([]byte, error) {
			return []byte(`{"input_i" : "-17.62"}`), nil
		}, nil)

		filter, err := f.Loudness(context.Background(), "x")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(filter, "measured_LRA=0") {
			t.Errorf("filter %q should zero missing fields", filter)
		}
	})

	t.Run("analysis failure propagates", func(t *testing.T) {
		f := NewFFmpeg(func(context.Context, string, ...string) ([]byte, error) {
			return nil, errors.New("exit status 1")
		}, nil)

		if _, err := f.Loudness(context.Background(), "x"); err == nil {
			t.Error("expected an error")
		}
	})
}
