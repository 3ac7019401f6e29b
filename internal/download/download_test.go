package download

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/wcs-downloader/internal/core/executor"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/model"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/wcserr"
	"github.com/mohammed-shakir/wcs-downloader/internal/events"
	h3mapper "github.com/mohammed-shakir/wcs-downloader/internal/mapper/h3"
	"github.com/mohammed-shakir/wcs-downloader/internal/rename"
	"github.com/mohammed-shakir/wcs-downloader/internal/wcstest"
)

type recordingPublisher struct {
	mu  sync.Mutex
	evs []events.CoverageEvent
	err error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.CoverageEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evs = append(p.evs, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func newExecutor(t *testing.T, srv *wcstest.Server) *executor.Executor {
	t.Helper()
	ex, err := executor.New(nil, srv.Client(), srv.URL())
	if err != nil {
		t.Fatalf("executor.New: %v", err)
	}
	return ex
}

func glacierServer(t *testing.T) *wcstest.Server {
	return wcstest.New(t,
		wcstest.Coverage{ID: "glacier_2020", Lower: &[2]float64{10, 20}, Upper: &[2]float64{12, 22}},
		wcstest.Coverage{ID: "glacier_2021"},
	)
}

func glacierCoverages() []model.CoverageDescriptor {
	return []model.CoverageDescriptor{
		{ID: "glacier_2020", LowerCorner: &orb.Point{10, 20}, UpperCorner: &orb.Point{12, 22}},
		{ID: "glacier_2021"},
	}
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestRun_WritesRenamedFiles(t *testing.T) {
	srv := glacierServer(t)
	out := filepath.Join(t.TempDir(), "out")
	rules, err := rename.ParseRules([]string{"glacier_/ice_"})
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}

	d := New(newExecutor(t, srv), nil, Options{OutputDir: out, Rules: rules})
	d.sleep = noSleep

	sum, err := d.Run(context.Background(), glacierCoverages())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Total != 2 || sum.Downloaded != 2 || sum.Skipped != 0 {
		t.Fatalf("summary=%+v want 2 downloaded", sum)
	}

	for _, id := range []string{"2020", "2021"} {
		b, err := os.ReadFile(filepath.Join(out, "ice_"+id+".tif"))
		if err != nil {
			t.Fatalf("read ice_%s.tif: %v", id, err)
		}
		if want := "II*\x00glacier_" + id; string(b) != want {
			t.Fatalf("content=%q want %q", b, want)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "glacier_2020.tif")); !os.IsNotExist(err) {
		t.Fatalf("unrenamed file should not exist, stat err=%v", err)
	}
	if parts, _ := filepath.Glob(filepath.Join(out, "*"+partialSuffix)); len(parts) != 0 {
		t.Fatalf("leftover partial files: %v", parts)
	}
}

func TestRun_SecondRunSkipsExisting(t *testing.T) {
	srv := glacierServer(t)
	out := t.TempDir()

	d := New(newExecutor(t, srv), nil, Options{OutputDir: out})
	d.sleep = noSleep

	if _, err := d.Run(context.Background(), glacierCoverages()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := len(srv.CoverageRequests())

	sum, err := d.Run(context.Background(), glacierCoverages())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := len(srv.CoverageRequests()); got != first {
		t.Fatalf("coverage requests=%d want %d (no new requests)", got, first)
	}
	if sum.Skipped != 2 || sum.Downloaded != 0 {
		t.Fatalf("summary=%+v want 2 skipped", sum)
	}
}

func TestRun_AbortKeepsEarlierFiles(t *testing.T) {
	srv := glacierServer(t)
	srv.FailCoverage("glacier_2021", http.StatusInternalServerError)
	out := t.TempDir()

	d := New(newExecutor(t, srv), nil, Options{OutputDir: out})
	d.sleep = noSleep

	sum, err := d.Run(context.Background(), append(glacierCoverages(), model.CoverageDescriptor{ID: "glacier_2022"}))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, wcserr.ErrNetwork) {
		t.Fatalf("err=%v want network error", err)
	}
	if sum.Downloaded != 1 {
		t.Fatalf("downloaded=%d want 1", sum.Downloaded)
	}
	if _, err := os.Stat(filepath.Join(out, "glacier_2020.tif")); err != nil {
		t.Fatalf("earlier file missing: %v", err)
	}
	for _, name := range []string{"glacier_2021.tif", "glacier_2021.tif" + partialSuffix} {
		if _, err := os.Stat(filepath.Join(out, name)); !os.IsNotExist(err) {
			t.Fatalf("%s should not exist, stat err=%v", name, err)
		}
	}
	for _, id := range srv.CoverageRequests() {
		if id == "glacier_2022" {
			t.Fatalf("run continued past the failure")
		}
	}
}

func TestRun_OutputDirIsFile(t *testing.T) {
	srv := glacierServer(t)
	file := filepath.Join(t.TempDir(), "taken")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	d := New(newExecutor(t, srv), nil, Options{OutputDir: file})
	_, err := d.Run(context.Background(), glacierCoverages())
	if !errors.Is(err, wcserr.ErrFilesystem) {
		t.Fatalf("err=%v want filesystem error", err)
	}
	if n := len(srv.CoverageRequests()); n != 0 {
		t.Fatalf("coverage requests=%d want 0", n)
	}
}

func TestRun_DelayBetweenDownloadsOnly(t *testing.T) {
	srv := wcstest.New(t,
		wcstest.Coverage{ID: "a"},
		wcstest.Coverage{ID: "b"},
		wcstest.Coverage{ID: "c"},
	)
	out := t.TempDir()
	if err := os.WriteFile(filepath.Join(out, "b.tif"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	var waits []time.Duration
	d := New(newExecutor(t, srv), nil, Options{OutputDir: out, Delay: 250 * time.Millisecond})
	d.sleep = func(_ context.Context, dur time.Duration) error {
		waits = append(waits, dur)
		return nil
	}

	covs := []model.CoverageDescriptor{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	if _, err := d.Run(context.Background(), covs); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// a is followed by a wait; b is skipped; c is last.
	if len(waits) != 1 || waits[0] != 250*time.Millisecond {
		t.Fatalf("waits=%v want [250ms]", waits)
	}
}

func TestRun_DefaultDelay(t *testing.T) {
	d := New(nil, nil, Options{})
	if d.opts.Delay != DefaultDelay {
		t.Fatalf("delay=%v want %v", d.opts.Delay, DefaultDelay)
	}
}

func TestRun_CancelDuringDelay(t *testing.T) {
	srv := glacierServer(t)
	out := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := New(newExecutor(t, srv), nil, Options{OutputDir: out, Delay: time.Hour})
	d.sleep = func(ctx context.Context, dur time.Duration) error {
		cancel()
		return sleepCtx(ctx, dur)
	}

	done := make(chan error, 1)
	go func() {
		_, err := d.Run(ctx, glacierCoverages())
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err=%v want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop on cancel")
	}
	if got := srv.CoverageRequests(); len(got) != 1 {
		t.Fatalf("coverage requests=%v want only the first", got)
	}
}

func TestRun_PublishesEvents(t *testing.T) {
	srv := glacierServer(t)
	out := t.TempDir()
	pub := &recordingPublisher{}
	rules, _ := rename.ParseRules([]string{"glacier_/ice_"})

	d := New(newExecutor(t, srv), nil, Options{
		OutputDir: out,
		Rules:     rules,
		Publisher: pub,
		Mapper:    h3mapper.New(),
		H3Res:     7,
	})
	d.sleep = noSleep
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	if _, err := d.Run(context.Background(), glacierCoverages()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(pub.evs) != 2 {
		t.Fatalf("events=%d want 2", len(pub.evs))
	}

	first := pub.evs[0]
	if first.Layer != "ice_2020" || first.CoverageID != "glacier_2020" {
		t.Fatalf("layer=%q id=%q", first.Layer, first.CoverageID)
	}
	if !first.TS.Equal(fixed) {
		t.Fatalf("ts=%v want %v", first.TS, fixed)
	}
	if first.BBox == nil || first.BBox.X1 != 10 || first.BBox.Y2 != 22 {
		t.Fatalf("bbox=%+v", first.BBox)
	}
	wantCell, err := h3mapper.New().CenterCell(orb.Bound{Min: orb.Point{10, 20}, Max: orb.Point{12, 22}}, 7)
	if err != nil {
		t.Fatalf("CenterCell: %v", err)
	}
	if first.Cell != wantCell {
		t.Fatalf("cell=%q want %q", first.Cell, wantCell)
	}
	if err := first.Validate(); err != nil {
		t.Fatalf("event invalid: %v", err)
	}

	second := pub.evs[1]
	if second.BBox != nil || second.Cell != "" {
		t.Fatalf("event without corners has bbox=%+v cell=%q", second.BBox, second.Cell)
	}
}

func TestRun_PublishFailureIsNotFatal(t *testing.T) {
	srv := glacierServer(t)
	pub := &recordingPublisher{err: errors.New("broker down")}

	d := New(newExecutor(t, srv), nil, Options{OutputDir: t.TempDir(), Publisher: pub})
	d.sleep = noSleep

	sum, err := d.Run(context.Background(), glacierCoverages())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Downloaded != 2 || len(pub.evs) != 2 {
		t.Fatalf("downloaded=%d events=%d want 2/2", sum.Downloaded, len(pub.evs))
	}
}
