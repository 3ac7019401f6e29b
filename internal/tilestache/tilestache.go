// Package tilestache builds a TileStache configuration that serves the
// downloaded coverages through the GDAL provider.
package tilestache

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mohammed-shakir/wcs-downloader/internal/core/model"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/observability"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/wcserr"
	"github.com/mohammed-shakir/wcs-downloader/internal/rename"
)

const (
	DefaultCacheName     = "Test"
	DefaultProviderClass = "TileStache.Goodies.Providers.GDAL:Provider"
	PreviewZoom          = 15

	command = "tilestache"
)

// PlaceholderBounds is written for every layer; it is not derived from
// the coverage extent.
var PlaceholderBounds = Bounds{Low: 10, High: 20}

type Config struct {
	Cache  Cache            `json:"cache"`
	Layers map[string]Layer `json:"layers"`
}

type Cache struct {
	Name string `json:"name"`
}

type Layer struct {
	Provider Provider `json:"provider"`
	Bounds   Bounds   `json:"bounds"`
	Preview  *Preview `json:"preview,omitempty"`
}

type Provider struct {
	Class  string `json:"class"`
	Kwargs Kwargs `json:"kwargs"`
}

type Kwargs struct {
	Filename string `json:"filename"`
	Maskband *int   `json:"maskband,omitempty"`
}

type Bounds struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

type Preview struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom int     `json:"zoom"`
}

type Options struct {
	OutputDir     string
	Rules         []rename.Rule
	Maskband      *int
	CacheName     string
	ProviderClass string
	Logger        *slog.Logger
}

// Build returns one layer per coverage, keyed by the substituted file name
// without its extension. A later coverage with the same key replaces the
// earlier one.
func Build(coverages []model.CoverageDescriptor, opts Options) (Config, error) {
	if opts.CacheName == "" {
		opts.CacheName = DefaultCacheName
	}
	if opts.ProviderClass == "" {
		opts.ProviderClass = DefaultProviderClass
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cfg := Config{
		Cache:  Cache{Name: opts.CacheName},
		Layers: make(map[string]Layer, len(coverages)),
	}
	for _, c := range coverages {
		name := rename.Apply(c.FileName(), opts.Rules)
		filename := filepath.Join(opts.OutputDir, name)
		key := rename.LayerName(filename)
		if key == "" || key == "." || key == string(filepath.Separator) {
			return Config{}, wcserr.Errorf(wcserr.ErrConfig, "coverage %q maps to an empty layer name", c.ID)
		}

		layer := Layer{
			Provider: Provider{
				Class: opts.ProviderClass,
				Kwargs: Kwargs{
					Filename: filename,
					Maskband: opts.Maskband,
				},
			},
			Bounds: PlaceholderBounds,
		}
		if b, ok := c.Bound(); ok {
			center := b.Center()
			layer.Preview = &Preview{Lat: center.Lat(), Lon: center.Lon(), Zoom: PreviewZoom}
		}

		if _, dup := cfg.Layers[key]; dup {
			logger.Warn("layer name collision, later coverage wins", "layer", key, "coverage_id", c.ID)
		}
		cfg.Layers[key] = layer
		observability.IncCoverage(command, observability.OutcomeEmitted)
	}
	return cfg, nil
}

// Write stores cfg as two-space indented JSON, replacing any existing file.
func Write(path string, cfg Config) error {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return wcserr.Wrapf(wcserr.ErrFilesystem, err, "encode tile config")
	}
	b = append(b, '\n')
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return wcserr.Wrapf(wcserr.ErrFilesystem, err, "write tile config")
	}
	return nil
}
