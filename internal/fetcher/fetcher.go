// Package fetcher downloads boundary archives from census servers over
// HTTP or FTP and unpacks them into a working directory.
package fetcher

import (
	"context"
	"io"
)

// Fetcher retrieves a remote file.
type Fetcher interface {
	// Download returns a reader over the remote file body. The caller
	// must close the returned ReadCloser.
	Download(ctx context.Context, rawURL string) (io.ReadCloser, error)

	// DownloadToFile writes the remote file to path and returns the
	// number of bytes written.
	DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error)
}
