package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lrstanley/go-ytdlp"
)

// YTDLPConfig configures the yt-dlp backed extractor.
type YTDLPConfig struct {
	// CacheDir is where downloaded artifacts land.
	CacheDir string
	// Format is the yt-dlp format selector, e.g. "bestaudio/best".
	Format string
	// DefaultSearch resolves bare search strings, e.g. "auto".
	DefaultSearch string
}

// YTDLP is the production Extractor, shelling out to yt-dlp and parsing its
// single-JSON dump into a Result.
type YTDLP struct {
	cfg    YTDLPConfig
	logger *log.Logger
}

// NewYTDLP creates a yt-dlp backed extractor.
func NewYTDLP(cfg YTDLPConfig, logger *log.Logger) *YTDLP {
	if cfg.Format == "" {
		cfg.Format = "bestaudio/best"
	}
	if cfg.DefaultSearch == "" {
		cfg.DefaultSearch = "auto"
	}
	return &YTDLP{cfg: cfg, logger: logger}
}

// outputTemplate matches PrepareFilename so cache lookups resolve the same
// names yt-dlp materializes.
const outputTemplate = "%(extractor)s-%(id)s-%(title)s.%(ext)s"

func (y *YTDLP) command(opts Options) *ytdlp.Command {
	cmd := ytdlp.New().
		Format(y.cfg.Format).
		Output(filepath.Join(y.cfg.CacheDir, outputTemplate)).
		RestrictFilenames().
		NoPlaylist().
		NoCheckCertificates().
		Quiet().
		NoWarnings().
		DefaultSearch(y.cfg.DefaultSearch).
		DumpSingleJSON()

	if opts.Tolerant {
		cmd = cmd.IgnoreErrors()
	}
	if opts.Download {
		// DumpSingleJSON implies simulation; downloads need it lifted.
		cmd = cmd.NoSimulate()
	}
	if !opts.Process {
		cmd = cmd.FlatPlaylist()
	}
	return cmd
}

// Extract runs yt-dlp for the locator and parses the JSON dump.
func (y *YTDLP) Extract(ctx context.Context, locator string, opts Options) (*Result, error) {
	out, err := y.command(opts).Run(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp failed for %s: %w", locator, err)
	}

	var res Result
	if err := json.Unmarshal([]byte(out.Stdout), &res); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output for %s: %w", locator, err)
	}

	if y.logger != nil {
		y.logger.Debugf("extracted %s via %s (playlist=%t)", locator, res.Extractor, res.IsPlaylist())
	}
	return &res, nil
}

// PrepareFilename computes the cache filename yt-dlp would write r to,
// mirroring the output template with restricted filenames.
func (y *YTDLP) PrepareFilename(r *Result) string {
	if r == nil {
		return ""
	}
	if r.Filename != "" {
		return r.Filename
	}

	ext := r.Ext
	if ext == "" {
		ext = "m4a"
	}
	name := fmt.Sprintf("%s-%s-%s.%s",
		restrict(r.Extractor), restrict(r.ID), restrict(r.Title), ext)
	return filepath.Join(y.cfg.CacheDir, name)
}

// restrict approximates yt-dlp's --restrict-filenames: ASCII alphanumerics,
// dash, underscore and dot survive, everything else becomes an underscore.
func restrict(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '.' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
