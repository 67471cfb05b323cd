package ytdlp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"trustmark/internal/domain"
	"trustmark/internal/infra/toolrunner"
)

// Downloader fetches media from platform URLs via the yt-dlp binary into a
// temp directory. The caller owns deleting the returned file.
type Downloader struct {
	Bin      string
	TempDir  string
	Timeout  time.Duration
	MaxBytes int64
	Runner   *toolrunner.Runner
	Logger   *slog.Logger
}

func NewDownloader(bin, tempDir string, timeout time.Duration, maxBytes int64, runner *toolrunner.Runner, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = toolrunner.New(logger)
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Downloader{
		Bin:      bin,
		TempDir:  tempDir,
		Timeout:  timeout,
		MaxBytes: maxBytes,
		Runner:   runner,
		Logger:   logger,
	}
}

func (d *Downloader) Download(ctx context.Context, url string) (string, error) {
	if err := os.MkdirAll(d.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	// Random basename so concurrent downloads never collide; yt-dlp picks
	// the extension via the output template.
	base := uuid.New().String()
	template := filepath.Join(d.TempDir, base+".%(ext)s")

	args := []string{
		"--no-playlist",
		"-f", "bv*+ba/b",
		"--merge-output-format", "mp4",
		"-o", template,
		url,
	}
	if _, err := d.Runner.Run(ctx, d.Timeout, d.Bin, args...); err != nil {
		return "", &domain.DownloadError{Reason: err.Error()}
	}

	matches, err := filepath.Glob(filepath.Join(d.TempDir, base+".*"))
	if err != nil {
		return "", fmt.Errorf("locate downloaded file: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: yt-dlp produced no output for %s", domain.ErrNotFound, url)
	}
	path := matches[0]

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat downloaded file: %w", err)
	}
	if d.MaxBytes > 0 && info.Size() > d.MaxBytes {
		if rmErr := os.Remove(path); rmErr != nil {
			d.Logger.Warn("failed to remove oversized download", "path", path, "error", rmErr)
		}
		return "", &domain.TooLargeError{SizeBytes: info.Size(), Limit: d.MaxBytes}
	}

	d.Logger.Info("media downloaded", "url", url, "path", path, "size_bytes", info.Size())
	return path, nil
}
