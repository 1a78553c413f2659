package factors

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"factorlens/internal/config"
	apperrors "factorlens/internal/errors"
)

// Client downloads and caches the factor archive
type Client struct {
	httpClient *http.Client
	cfg        config.FactorsConfig
	logger     *slog.Logger
}

// NewClient creates a factor source client
func NewClient(cfg config.FactorsConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.DownloadTimeout},
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "factor_client")),
	}
}

// Fetch returns the parsed factor set, downloading the archive unless a
// fresh cached copy exists under the cache directory.
func (c *Client) Fetch(ctx context.Context) (*FactorSet, error) {
	archivePath, err := c.download(ctx)
	if err != nil {
		return nil, apperrors.NewNetworkError("download factor archive", err).
			WithContext("url", c.cfg.URL)
	}

	member, err := openArchiveMember(archivePath)
	if err != nil {
		return nil, apperrors.NewParsingError("extract factor archive", err)
	}
	defer member.Close()

	fs, err := Parse(member, c.cfg.SkipRows)
	if err != nil {
		return nil, apperrors.NewParsingError("parse factor file", err).
			WithContext("archive", archivePath)
	}

	c.logger.InfoContext(ctx, "factor data loaded",
		slog.String("source", c.cfg.URL),
		slog.Any("factors", fs.Names),
		slog.Int("daily_rows", len(fs.RF)),
	)
	return fs, nil
}

// download fetches the archive to the cache directory, reusing a cached
// copy younger than the configured TTL.
func (c *Client) download(ctx context.Context) (string, error) {
	if err := os.MkdirAll(c.cfg.CacheDir, 0755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}

	cachePath := filepath.Join(c.cfg.CacheDir, archiveFileName(c.cfg.URL))
	if info, err := os.Stat(cachePath); err == nil {
		if c.cfg.CacheTTL > 0 && time.Since(info.ModTime()) < c.cfg.CacheTTL {
			c.logger.DebugContext(ctx, "using cached factor archive",
				slog.String("path", cachePath),
				slog.Time("downloaded_at", info.ModTime()),
			)
			return cachePath, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", c.cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("factor source returned status %d", resp.StatusCode)
	}

	// Write to a temp file first so a failed download never clobbers a
	// usable cached archive.
	tmp, err := os.CreateTemp(c.cfg.CacheDir, "factors-*.zip.partial")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}

	if err := os.Rename(tmp.Name(), cachePath); err != nil {
		return "", fmt.Errorf("move archive into cache: %w", err)
	}

	c.logger.InfoContext(ctx, "factor archive downloaded",
		slog.String("url", c.cfg.URL),
		slog.Int64("bytes", written),
		slog.String("path", cachePath),
	)
	return cachePath, nil
}

// openArchiveMember opens the delimited member of the zip archive. The
// archives hold exactly one data file; the first .csv or .txt member wins.
func openArchiveMember(archivePath string) (io.ReadCloser, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	for _, f := range r.File {
		name := strings.ToLower(f.Name)
		if strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".txt") {
			member, err := f.Open()
			if err != nil {
				r.Close()
				return nil, fmt.Errorf("open zip member %s: %w", f.Name, err)
			}
			return &archiveMember{ReadCloser: member, archive: r}, nil
		}
	}

	r.Close()
	return nil, fmt.Errorf("no delimited member in archive %s", filepath.Base(archivePath))
}

// archiveMember closes the backing archive together with the member reader
type archiveMember struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (m *archiveMember) Close() error {
	err := m.ReadCloser.Close()
	if archiveErr := m.archive.Close(); err == nil {
		err = archiveErr
	}
	return err
}

// archiveFileName derives the cache file name from the source URL
func archiveFileName(url string) string {
	name := filepath.Base(strings.TrimSuffix(url, "/"))
	if name == "" || name == "." || name == "/" {
		return "factors.zip"
	}
	return name
}
