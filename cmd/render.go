package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mapworks/censusmap/internal/geojson"
	"github.com/mapworks/censusmap/internal/render"
)

var (
	renderFlags   joinFlags
	renderFormat  string
	renderOut     string
	renderMeasure string
	renderStyle   string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the joined table as a choropleth",
	Long:  "Runs the join pipeline and writes the result as an interactive HTML chart, a static PNG/SVG map, or a GeoJSON feature collection.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		res, opts, err := renderFlags.execute(cmd.Context())
		if err != nil {
			return err
		}

		style, err := buildStyle()
		if err != nil {
			return err
		}

		out := renderOut
		if out == "" {
			if err := os.MkdirAll(cfg.Render.OutDir, 0o755); err != nil {
				return eris.Wrap(err, "create output dir")
			}
			name := fmt.Sprintf("%s_%d.%s", style.Measure, opts.Year, renderFormat)
			out = filepath.Join(cfg.Render.OutDir, name)
		}

		switch renderFormat {
		case "html":
			f, err := os.Create(out)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer f.Close() //nolint:errcheck
			if err := render.WriteChart(f, res.Regions, style); err != nil {
				return err
			}
		case "png", "svg":
			if err := render.SaveMap(out, res.Regions, style); err != nil {
				return err
			}
		case "geojson":
			data, err := geojson.Encode(res.Regions)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return eris.Wrap(err, "write geojson")
			}
		default:
			return eris.Errorf("unknown format %q (want html, png, svg, or geojson)", renderFormat)
		}

		zap.L().Info("render complete",
			zap.String("format", renderFormat),
			zap.String("out", out),
			zap.Int("regions", res.GeometryRows),
		)
		fmt.Println(out)
		return nil
	},
}

// buildStyle layers the style file, config, and flags over the default.
func buildStyle() (render.Style, error) {
	style := render.DefaultStyle()

	stylePath := cfg.Render.StylePath
	if renderStyle != "" {
		stylePath = renderStyle
	}
	if stylePath != "" {
		s, err := render.LoadStyle(stylePath)
		if err != nil {
			return render.Style{}, err
		}
		style = s
	} else {
		if cfg.Render.Measure != "" {
			style.Measure = cfg.Render.Measure
		}
		if cfg.Render.Classes > 0 {
			style.Classes = cfg.Render.Classes
		}
		if cfg.Render.Method != "" {
			style.Method = cfg.Render.Method
		}
		if cfg.Render.Palette != "" {
			style.Palette = cfg.Render.Palette
		}
	}

	if renderMeasure != "" {
		style.Measure = renderMeasure
	}

	if err := style.Validate(); err != nil {
		return render.Style{}, err
	}
	return style, nil
}

func init() {
	renderFlags.register(renderCmd)
	renderCmd.Flags().StringVar(&renderFormat, "format", "html", "output format: html, png, svg, or geojson")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "output file (default: <out_dir>/<measure>_<year>.<format>)")
	renderCmd.Flags().StringVar(&renderMeasure, "measure", "", "measure to map (default: configured render.measure)")
	renderCmd.Flags().StringVar(&renderStyle, "style", "", "YAML style file")
	renderCmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		renderFormat = strings.ToLower(renderFormat)
		return nil
	}
	rootCmd.AddCommand(renderCmd)
}
