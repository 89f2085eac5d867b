package render

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Style holds the map styling options, loadable from a YAML file.
type Style struct {
	Title   string `yaml:"title"`
	Measure string `yaml:"measure"`
	Classes int    `yaml:"classes"`
	Method  string `yaml:"method"`
	Palette string `yaml:"palette"`
	NoData  string `yaml:"no_data"` // fill for unmatched regions
}

// palettes are sampled evenly to produce one color per class.
var palettes = map[string][]string{
	"viridis": {
		"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
		"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
	},
	"blues": {
		"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6",
		"#4292c6", "#2171b5", "#08519c", "#08306b",
	},
	"oranges": {
		"#fff5eb", "#fee6ce", "#fdd0a2", "#fdae6b", "#fd8d3c",
		"#f16913", "#d94801", "#a63603", "#7f2704",
	},
}

// DefaultStyle is used when no style file is given.
func DefaultStyle() Style {
	return Style{
		Title:   "Choropleth",
		Measure: "persons",
		Classes: 5,
		Method:  string(MethodQuantile),
		Palette: "viridis",
		NoData:  "#d9d9d9",
	}
}

// LoadStyle reads a YAML style file, filling unset fields from the default.
func LoadStyle(path string) (Style, error) {
	s := DefaultStyle()

	data, err := os.ReadFile(path)
	if err != nil {
		return Style{}, eris.Wrapf(err, "render: read style %s", path)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Style{}, eris.Wrapf(err, "render: parse style %s", path)
	}

	if err := s.Validate(); err != nil {
		return Style{}, err
	}
	return s, nil
}

// Validate checks the style against the known palettes and methods.
func (s Style) Validate() error {
	if _, ok := palettes[s.Palette]; !ok {
		return eris.Errorf("render: unknown palette %q", s.Palette)
	}
	if _, err := ParseMethod(s.Method); err != nil {
		return err
	}
	if s.Classes < 1 {
		return eris.Errorf("render: class count %d must be positive", s.Classes)
	}
	if s.Measure == "" {
		return eris.New("render: style needs a measure")
	}
	return nil
}

// Colors returns one hex color per class, sampled evenly from the palette.
func (s Style) Colors() []string {
	ramp := palettes[s.Palette]
	if len(ramp) == 0 {
		ramp = palettes["viridis"]
	}
	if s.Classes >= len(ramp) {
		return append([]string(nil), ramp...)
	}

	out := make([]string, s.Classes)
	for i := range out {
		idx := i * (len(ramp) - 1) / max(s.Classes-1, 1)
		out[i] = ramp[idx]
	}
	return out
}
