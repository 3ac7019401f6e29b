package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestProvider_FlushWritesTextfile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "wcs.prom")
	p := Init(Config{File: file, Build: BuildInfo{Version: "test", Revision: "r"}})

	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "smoke"})
	p.Registerer().MustRegister(g)
	g.Set(42)

	if n := testutil.CollectAndCount(g); n == 0 {
		t.Fatalf("expected at least 1 sample from test_gauge, got %d", n)
	}
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	body := string(b)
	if !strings.Contains(body, "test_gauge 42") {
		t.Fatalf("expected test_gauge in payload; got:\n%s", body)
	}
	if !strings.Contains(body, `wcs_build_info{revision="r",version="test"} 1`) {
		t.Fatalf("expected wcs_build_info in payload; got:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go_goroutines in payload")
	}
}

func TestProvider_FlushWithoutFileIsNoop(t *testing.T) {
	p := Init(Config{})
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestProvider_FlushReportsWriteError(t *testing.T) {
	p := Init(Config{File: filepath.Join(t.TempDir(), "missing", "dir", "wcs.prom")})
	if err := p.Flush(); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
