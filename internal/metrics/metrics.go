// Package metrics collects run metrics and exports them for the node
// exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type BuildInfo struct {
	Version  string
	Revision string
}

type Config struct {
	// File is the textfile target; empty disables the export.
	File  string
	Build BuildInfo
}

type Provider struct {
	reg  *prometheus.Registry
	file string
}

func Init(cfg Config) *Provider {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())

	build := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wcs_build_info",
			Help: "Build info for this binary (value is always 1).",
		},
		[]string{"version", "revision"},
	)
	reg.MustRegister(build)
	v := cfg.Build
	if v.Version == "" {
		v.Version = "dev"
	}
	build.WithLabelValues(v.Version, v.Revision).Set(1)

	return &Provider{reg: reg, file: cfg.File}
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }

// Flush writes the current metrics to the configured file. It is a no-op
// when no file is configured.
func (p *Provider) Flush() error {
	if p.file == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(p.file, p.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
