package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spool/internal/extract"
	"github.com/desertthunder/spool/internal/shared"
	tu "github.com/desertthunder/spool/internal/testing"
	"github.com/urfave/cli/v3"
)

func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	return &shared.Config{
		Cache:     shared.CacheConfig{Dir: t.TempDir()},
		Extractor: shared.ExtractorConfig{Workers: 2},
		Sessions:  shared.SessionsConfig{Dir: t.TempDir()},
	}
}

func testApp(t *testing.T, ext extract.Extractor, output *bytes.Buffer) *cli.Command {
	t.Helper()
	runner := NewRunner(RunnerOpts{
		Config:    testConfig(t),
		Extractor: ext,
		Output:    output,
	})
	return runner.app()
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := testConfig(t)
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Extractor:  &tu.MockExtractor{},
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.registry == nil || runner.dispatcher == nil || runner.bus == nil {
				t.Error("expected wiring to be constructed")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Extractor: &tu.MockExtractor{}})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Extractor: &tu.MockExtractor{}})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Extractor: &tu.MockExtractor{}})
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("verbose flag enables debug logging everywhere", func(t *testing.T) {
		output := &bytes.Buffer{}
		logger := shared.NewLogger(output)
		runner := NewRunner(RunnerOpts{
			Config:    testConfig(t),
			Extractor: &tu.MockExtractor{},
			Logger:    logger,
			Output:    output,
		})

		err := runner.app().Run(context.Background(), []string{"spool", "--verbose", "queue", "list"})
		if err != nil {
			t.Fatal(err)
		}

		for i, l := range runner.loggers {
			if l.GetLevel() != log.DebugLevel {
				t.Errorf("logger %d level = %v, want debug", i, l.GetLevel())
			}
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes compact JSON with trailing newline", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output, Extractor: &tu.MockExtractor{}})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatal(err)
			}
			if got := output.String(); got != `{"key":"value"}`+"\n" {
				t.Errorf("output = %q", got)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}, Extractor: &tu.MockExtractor{}})

			if err := runner.writeJSON(map[string]string{"k": "v"}, false); err == nil {
				t.Error("expected an error")
			}
		})
	})
}

func TestAddCommand(t *testing.T) {
	t.Run("queues a single item", func(t *testing.T) {
		ext := &tu.MockExtractor{ExtractFunc: func(_ context.Context, locator string, _ extract.Options) (*extract.Result, error) {
			return &extract.Result{
				Type:       "video",
				Title:      "a song",
				Extractor:  "youtube",
				WebpageURL: locator,
				Filename:   "youtube-id-a_song.m4a",
			}, nil
		}}
		output := &bytes.Buffer{}
		app := testApp(t, ext, output)

		err := app.Run(context.Background(), []string{"spool", "add", "https://example.com/v"})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(output.String(), `Queued "a song" at position 1`) {
			t.Errorf("output = %q", output.String())
		}
	})

	t.Run("playlist locator suggests import", func(t *testing.T) {
		ext := &tu.MockExtractor{ExtractFunc: func(context.Context, string, extract.Options) (*extract.Result, error) {
			return &extract.Result{
				Type:       "playlist",
				WebpageURL: "https://example.com/playlist?list=PL1",
				Entries:    []*extract.Result{{ID: "a"}},
			}, nil
		}}
		output := &bytes.Buffer{}
		app := testApp(t, ext, output)

		err := app.Run(context.Background(), []string{"spool", "add", "https://example.com/watch?v=a&list=PL1"})
		if err == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(output.String(), "spool import https://example.com/playlist?list=PL1") {
			t.Errorf("output = %q", output.String())
		}
	})

	t.Run("missing locator", func(t *testing.T) {
		output := &bytes.Buffer{}
		app := testApp(t, &tu.MockExtractor{}, output)

		if err := app.Run(context.Background(), []string{"spool", "add"}); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestQueueCommands(t *testing.T) {
	videoExt := func() *tu.MockExtractor {
		return &tu.MockExtractor{ExtractFunc: func(_ context.Context, locator string, _ extract.Options) (*extract.Result, error) {
			return &extract.Result{
				Type:       "video",
				Title:      "t-" + locator[len(locator)-1:],
				Extractor:  "youtube",
				WebpageURL: locator,
				Filename:   "youtube-id-t.m4a",
			}, nil
		}}
	}

	t.Run("list shows queued entries", func(t *testing.T) {
		output := &bytes.Buffer{}
		app := testApp(t, videoExt(), output)
		ctx := context.Background()

		if err := app.Run(ctx, []string{"spool", "add", "https://example.com/1"}); err != nil {
			t.Fatal(err)
		}
		if err := app.Run(ctx, []string{"spool", "add", "https://example.com/2"}); err != nil {
			t.Fatal(err)
		}

		output.Reset()
		if err := app.Run(ctx, []string{"spool", "queue", "list"}); err != nil {
			t.Fatal(err)
		}

		got := output.String()
		if !strings.Contains(got, "t-1") || !strings.Contains(got, "t-2") {
			t.Errorf("listing = %q", got)
		}
	})

	t.Run("count by author", func(t *testing.T) {
		output := &bytes.Buffer{}
		app := testApp(t, videoExt(), output)
		ctx := context.Background()

		if err := app.Run(ctx, []string{"spool", "add", "--author", "7", "https://example.com/1"}); err != nil {
			t.Fatal(err)
		}
		if err := app.Run(ctx, []string{"spool", "add", "--author", "8", "https://example.com/2"}); err != nil {
			t.Fatal(err)
		}

		output.Reset()
		if err := app.Run(ctx, []string{"spool", "queue", "count", "--author", "7", "--json"}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(output.String(), `"count":1`) {
			t.Errorf("output = %q", output.String())
		}
	})

	t.Run("cache show reports queued metadata", func(t *testing.T) {
		output := &bytes.Buffer{}
		config := testConfig(t)
		config.Cache.Metadata = true
		config.Cache.MetadataDB = "metadata.db"
		runner := NewRunner(RunnerOpts{
			Config:    config,
			Extractor: videoExt(),
			Output:    output,
		})
		app := runner.app()
		ctx := context.Background()

		if err := app.Run(ctx, []string{"spool", "cache", "show", "https://example.com/1"}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(output.String(), "No cached metadata") {
			t.Errorf("expected a miss, got %q", output.String())
		}

		if err := app.Run(ctx, []string{"spool", "add", "https://example.com/1"}); err != nil {
			t.Fatal(err)
		}

		output.Reset()
		if err := app.Run(ctx, []string{"spool", "cache", "show", "https://example.com/1"}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(output.String(), "Title: t-1") {
			t.Errorf("expected a hit, got %q", output.String())
		}
	})

	t.Run("cache info reports media cache size", func(t *testing.T) {
		output := &bytes.Buffer{}
		config := testConfig(t)
		config.Cache.Metadata = true
		config.Cache.MetadataDB = filepath.Join(t.TempDir(), "metadata.db")
		runner := NewRunner(RunnerOpts{
			Config:    config,
			Extractor: videoExt(),
			Output:    output,
		})

		cached := filepath.Join(config.Cache.Dir, "youtube-id-t.m4a")
		if err := os.WriteFile(cached, make([]byte, 2048), 0644); err != nil {
			t.Fatal(err)
		}

		err := runner.app().Run(context.Background(), []string{"spool", "cache", "info"})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(output.String(), "2.0 kB") {
			t.Errorf("expected a humanized size, got %q", output.String())
		}
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		output := &bytes.Buffer{}
		app := testApp(t, videoExt(), output)
		ctx := context.Background()

		if err := app.Run(ctx, []string{"spool", "add", "--session", "alpha", "https://example.com/1"}); err != nil {
			t.Fatal(err)
		}

		output.Reset()
		if err := app.Run(ctx, []string{"spool", "queue", "list", "--session", "beta"}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(output.String(), "(empty)") {
			t.Errorf("expected beta to be empty, got %q", output.String())
		}
	})
}
