package tripdata

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"taxi-duration-lab/internal/config"
	"taxi-duration-lab/internal/domain"
)

// DefaultDownloadPattern is the public TLC trip record CDN.
const DefaultDownloadPattern = "https://d37ci6vzurychx.cloudfront.net/trip-data/{taxi_type}_tripdata_{year:04d}-{month:02d}.parquet"

// Downloader streams monthly trip files into a local directory.
type Downloader struct {
	client  *http.Client
	pattern string
	dir     string
	logger  *log.Logger
}

// NewDownloader creates a Downloader. An empty pattern uses DefaultDownloadPattern.
func NewDownloader(pattern, dir string, logger *log.Logger) *Downloader {
	if pattern == "" {
		pattern = DefaultDownloadPattern
	}
	return &Downloader{
		client:  &http.Client{},
		pattern: pattern,
		dir:     dir,
		logger:  logger,
	}
}

// URL returns the source URL for one month.
func (d *Downloader) URL(taxiType domain.TaxiType, year, month int) string {
	return config.NewResolver(d.pattern, "", taxiType).InputPath(year, month)
}

// Fetch downloads every month in [startMonth, endMonth] of year.
// Files already present are skipped. It returns the local paths in month order.
func (d *Downloader) Fetch(ctx context.Context, taxiType domain.TaxiType, year, startMonth, endMonth int) ([]string, error) {
	if startMonth > endMonth {
		return nil, fmt.Errorf("%w: start month %d after end month %d", config.ErrInvalidPeriod, startMonth, endMonth)
	}
	for _, m := range []int{startMonth, endMonth} {
		if err := config.ValidatePeriod(year, m); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}

	paths := make([]string, 0, endMonth-startMonth+1)
	for m := startMonth; m <= endMonth; m++ {
		p, err := d.fetchOne(ctx, d.URL(taxiType, year, m))
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (d *Downloader) fetchOne(ctx context.Context, rawURL string) (string, error) {
	name := path.Base(rawURL)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	dest := filepath.Join(d.dir, name)

	if _, err := os.Stat(dest); err == nil {
		d.logger.Printf("already present: %s", dest)
		return dest, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	d.logger.Printf("downloading %s", rawURL)
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: GET %s: %v", ErrRead, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: GET %s: unexpected status %d", ErrRead, rawURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(d.dir, name+".*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: write %s: %v", ErrWrite, dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: close %s: %v", ErrWrite, dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: rename %s: %v", ErrWrite, dest, err)
	}

	d.logger.Printf("saved %s (%.1f MB)", dest, float64(written)/(1024*1024))
	return dest, nil
}
