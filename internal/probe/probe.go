package probe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Result summarizes the native text layer of a PDF. The gating decider
// uses the density numbers; the rest of the pipeline uses FullText when
// OCR is skipped.
type Result struct {
	Pages           int
	TotalChars      int
	CharsPerPage    []int
	MinCharsPerPage int
	MaxCharsPerPage int
	AvgCharsPerPage float64
	Sample100       string
	FullText        string
	Duration        time.Duration
}

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
}

type Prober struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewProber(cfg Config, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	return &Prober{cfg: cfg, runner: execRunner{}, logger: logger}
}

// NewProberWithRunner is used by tests to substitute the exec runner.
func NewProberWithRunner(cfg Config, r Runner, logger *slog.Logger) *Prober {
	p := NewProber(cfg, logger)
	p.runner = r
	return p
}

var wsRe = regexp.MustCompile(`\s+`)

// Probe extracts the native text of pdfBytes and computes per-page
// character densities. It never runs OCR.
func (p *Prober) Probe(ctx context.Context, pdfBytes []byte) (Result, error) {
	start := time.Now()

	tmp, err := os.CreateTemp("", "probe-*.pdf")
	if err != nil {
		return Result{}, fmt.Errorf("probe temp file: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			p.logger.Warn("probe temp cleanup failed", "path", tmp.Name(), "error", rmErr)
		}
	}()
	if _, err := tmp.Write(pdfBytes); err != nil {
		_ = tmp.Close()
		return Result{}, fmt.Errorf("probe temp write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("probe temp close: %w", err)
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", tmp.Name(), "-")
	if err != nil {
		return Result{}, fmt.Errorf("pdftotext %s: %w (%s)", filepath.Base(tmp.Name()), err, strings.TrimSpace(string(errb)))
	}

	res := FromText(string(out))
	res.Duration = time.Since(start)

	p.logger.Debug("probe.ok",
		"pages", res.Pages,
		"total_chars", res.TotalChars,
		"max_page_chars", res.MaxCharsPerPage,
		"sample", res.Sample100,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// FromText builds a Result from already-extracted text. A form-feed \f is
// the page separator pdftotext emits by default.
func FromText(text string) Result {
	pages := strings.Split(text, "\f")
	// pdftotext terminates the last page with \f too; drop a trailing empty page
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}

	res := Result{
		Pages:        len(pages),
		CharsPerPage: make([]int, len(pages)),
		FullText:     text,
	}
	for i, pg := range pages {
		n := len(strings.TrimSpace(pg))
		res.CharsPerPage[i] = n
		res.TotalChars += n
		if n > res.MaxCharsPerPage {
			res.MaxCharsPerPage = n
		}
		if i == 0 || n < res.MinCharsPerPage {
			res.MinCharsPerPage = n
		}
	}
	if res.Pages > 0 {
		res.AvgCharsPerPage = float64(res.TotalChars) / float64(res.Pages)
	}

	sample := wsRe.ReplaceAllString(text, " ")
	sample = strings.TrimSpace(sample)
	if len(sample) > 100 {
		sample = sample[:100]
	}
	res.Sample100 = sample
	return res
}
