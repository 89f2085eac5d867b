package fetcher

import (
	"archive/zip"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ArchiveOptions configures boundary archive retrieval.
type ArchiveOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
}

// ForURL picks the fetcher matching the URL scheme.
func ForURL(rawURL string, opts ArchiveOptions) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "parse url")
	}
	switch u.Scheme {
	case "http", "https":
		return NewHTTPFetcher(HTTPOptions{
			UserAgent:  opts.UserAgent,
			Timeout:    opts.Timeout,
			MaxRetries: opts.MaxRetries,
		}), nil
	case "ftp":
		return NewFTPFetcher(FTPOptions{Timeout: opts.Timeout}), nil
	default:
		return nil, eris.Errorf("unsupported scheme %q", u.Scheme)
	}
}

// FetchBoundaryArchive downloads a zipped shapefile archive, extracts it
// under destDir, and returns the path to the contained .shp file.
func FetchBoundaryArchive(ctx context.Context, rawURL, destDir string, opts ArchiveOptions) (string, error) {
	f, err := ForURL(rawURL, opts)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "create dest dir")
	}

	zipPath := filepath.Join(destDir, filepath.Base(rawURL))
	n, err := f.DownloadToFile(ctx, rawURL, zipPath)
	if err != nil {
		return "", err
	}
	zap.L().Info("downloaded boundary archive",
		zap.String("url", rawURL),
		zap.Int64("bytes", n),
	)

	extracted, err := ExtractZIP(zipPath, destDir)
	if err != nil {
		return "", err
	}

	shpPath, err := FindShapefile(extracted)
	if err != nil {
		return "", err
	}

	return shpPath, nil
}

// FindShapefile returns the single .shp path among the given files.
func FindShapefile(paths []string) (string, error) {
	var shp []string
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ".shp") {
			shp = append(shp, p)
		}
	}
	switch len(shp) {
	case 0:
		return "", eris.New("no .shp file in archive")
	case 1:
		return shp[0], nil
	default:
		return "", eris.Errorf("expected one .shp file in archive, got %d", len(shp))
	}
}

// ExtractZIP extracts all files from a ZIP archive to the destination
// directory. Returns the list of extracted file paths.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		path, err := extractZIPEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if path != "" {
			extracted = append(extracted, path)
		}
	}

	return extracted, nil
}

// extractZIPEntry extracts a single zip.File to the destination directory.
// Returns the extracted file path, or empty string for directories.
func extractZIPEntry(f *zip.File, destDir string) (string, error) {
	// Sanitize against zip slip
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q (zip slip attempt)", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0o755); err != nil {
			return "", eris.Wrap(err, "zip: create directory")
		}
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "zip: write file")
	}

	return destPath, nil
}
