package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mapworks/censusmap/internal/fetcher"
)

var fetchURL string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and unpack a boundary archive",
	Long:  "Downloads a zipped shapefile archive over HTTP or FTP, extracts it under the configured temp directory, and prints the shapefile path.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		url := cfg.Boundary.URL
		if fetchURL != "" {
			url = fetchURL
		}
		if url == "" {
			return fmt.Errorf("no archive URL: set boundary.url or pass --url")
		}

		shpPath, err := fetcher.FetchBoundaryArchive(cmd.Context(), url, cfg.Fetch.TempDir, fetcher.ArchiveOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.MaxRetries,
		})
		if err != nil {
			return err
		}

		fmt.Println(shpPath)
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "boundary archive URL (http, https, or ftp)")
	rootCmd.AddCommand(fetchCmd)
}
