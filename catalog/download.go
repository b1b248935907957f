package catalog

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/giygas/mfds-matcher/logging"
)

// downloadTimeout bounds one catalog download; full MFDS exports are tens of megabytes.
const downloadTimeout = 5 * time.Minute

// HTTPLoader downloads the catalog export to Path before every load. When a download fails
// the file from the last successful download is loaded instead, if there is one.
type HTTPLoader struct {
	URL    string
	Path   string
	Client *http.Client
}

// NewHTTPLoader returns a loader fetching url into path.
func NewHTTPLoader(url, path string) *HTTPLoader {
	return &HTTPLoader{
		URL:    url,
		Path:   path,
		Client: &http.Client{Timeout: downloadTimeout},
	}
}

// LoadCatalog downloads, then reads the catalog file.
func (l *HTTPLoader) LoadCatalog() ([]ReferenceRecord, error) {
	if err := l.download(); err != nil {
		if _, statErr := os.Stat(l.Path); statErr != nil {
			return nil, err
		}
		logging.Warn("Catalog download failed, loading the previous file", "url", l.URL, "path", l.Path, "error", err)
	}
	return NewFileLoader(l.Path).LoadCatalog()
}

// download writes the response body next to Path and renames it into place, so a failed
// download never leaves a truncated catalog behind.
func (l *HTTPLoader) download() error {
	start := time.Now()

	response, err := l.Client.Get(l.URL)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", l.URL, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: unexpected status %s", l.URL, response.Status)
	}

	cleanPath := filepath.Clean(l.Path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o750); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(cleanPath), ".catalog-*"+filepath.Ext(cleanPath))
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		// No-op once the rename succeeded
		_ = os.Remove(tmp.Name())
	}()

	written, err := io.Copy(tmp, response.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), cleanPath); err != nil {
		return fmt.Errorf("failed to replace %s: %w", cleanPath, err)
	}

	logging.Info("Catalog downloaded", "url", l.URL, "bytes", written, "duration", time.Since(start).String())
	return nil
}
