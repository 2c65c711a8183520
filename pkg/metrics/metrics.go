// Package metrics is a small Prometheus-text-format registry for the
// ingestion pipeline: counters, gauges and duration histograms with
// optional labels, served from a /metrics endpoint.
package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets suit ingestion-scale work: from sub-second page fetches up
// to multi-minute repository clones.
var DefaultBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// Counter only goes up.
type Counter struct{ v atomic.Int64 }

func (c *Counter) Inc()         { c.v.Add(1) }
func (c *Counter) Add(n int64)  { c.v.Add(n) }
func (c *Counter) Value() int64 { return c.v.Load() }

// Gauge goes both ways.
type Gauge struct{ v atomic.Int64 }

func (g *Gauge) Set(n int64)  { g.v.Store(n) }
func (g *Gauge) Inc()         { g.v.Add(1) }
func (g *Gauge) Dec()         { g.v.Add(-1) }
func (g *Gauge) Value() int64 { return g.v.Load() }

// Histogram records a distribution over fixed buckets.
type Histogram struct {
	mu     sync.Mutex
	bounds []float64
	counts []uint64
	sum    float64
	total  uint64
}

func newHistogram(bounds []float64) *Histogram {
	b := make([]float64, len(bounds))
	copy(b, bounds)
	sort.Float64s(b)
	return &Histogram{bounds: b, counts: make([]uint64, len(b))}
}

// Observe records one value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.total++
	for i, b := range h.bounds {
		if v <= b {
			h.counts[i]++
			return
		}
	}
}

// Since observes the seconds elapsed since t.
func (h *Histogram) Since(t time.Time) { h.Observe(time.Since(t).Seconds()) }

func (h *Histogram) snapshot() (bounds []float64, counts []uint64, sum float64, total uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	counts = make([]uint64, len(h.counts))
	copy(counts, h.counts)
	return h.bounds, counts, h.sum, h.total
}

type kind int

const (
	kindCounter kind = iota
	kindGauge
	kindHistogram
)

func (k kind) String() string {
	switch k {
	case kindCounter:
		return "counter"
	case kindGauge:
		return "gauge"
	default:
		return "histogram"
	}
}

// Registry holds named metrics. A name may carry a label set baked in via
// Labeled; every label combination is its own series under one family.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	families   map[string]kind
	help       map[string]string
	log        *slog.Logger
}

func New(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
		families:   make(map[string]kind),
		help:       make(map[string]string),
		log:        log,
	}
}

// Labeled appends a label set to a metric name: Labeled("f", "k", "v")
// yields `f{k="v"}`. Odd argument counts return the name unchanged.
func Labeled(name string, kvs ...string) string {
	if len(kvs) == 0 || len(kvs)%2 != 0 {
		return name
	}
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('{')
	for i := 0; i < len(kvs); i += 2 {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s=%q", kvs[i], kvs[i+1])
	}
	sb.WriteByte('}')
	return sb.String()
}

func family(name string) string {
	if i := strings.IndexByte(name, '{'); i != -1 {
		return name[:i]
	}
	return name
}

func labelPart(name string) string {
	if i := strings.IndexByte(name, '{'); i != -1 {
		return name[i+1 : len(name)-1]
	}
	return ""
}

func (r *Registry) register(name string, k kind, help string) {
	fam := family(name)
	if _, ok := r.families[fam]; !ok {
		r.families[fam] = k
		if help != "" {
			r.help[fam] = help
		}
	}
}

// Counter returns (creating if needed) the counter for name.
func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := &Counter{}
	r.counters[name] = c
	r.register(name, kindCounter, help)
	return c
}

// Gauge returns (creating if needed) the gauge for name.
func (r *Registry) Gauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[name]; ok {
		return g
	}
	g := &Gauge{}
	r.gauges[name] = g
	r.register(name, kindGauge, help)
	return g
}

// Histogram returns (creating if needed) the histogram for name. A nil
// bounds slice uses DefaultBuckets.
func (r *Registry) Histogram(name, help string, bounds []float64) *Histogram {
	if bounds == nil {
		bounds = DefaultBuckets
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[name]; ok {
		return h
	}
	h := newHistogram(bounds)
	r.histograms[name] = h
	r.register(name, kindHistogram, help)
	return h
}

// Render emits the Prometheus text exposition format, families in sorted
// order for stable scrapes.
func (r *Registry) Render() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fams := make([]string, 0, len(r.families))
	for f := range r.families {
		fams = append(fams, f)
	}
	sort.Strings(fams)

	var sb strings.Builder
	for _, fam := range fams {
		if help, ok := r.help[fam]; ok {
			fmt.Fprintf(&sb, "# HELP %s %s\n", fam, help)
		}
		fmt.Fprintf(&sb, "# TYPE %s %s\n", fam, r.families[fam])
		switch r.families[fam] {
		case kindCounter:
			for _, name := range r.seriesOf(fam, kindCounter) {
				fmt.Fprintf(&sb, "%s %d\n", name, r.counters[name].Value())
			}
		case kindGauge:
			for _, name := range r.seriesOf(fam, kindGauge) {
				fmt.Fprintf(&sb, "%s %d\n", name, r.gauges[name].Value())
			}
		case kindHistogram:
			for _, name := range r.seriesOf(fam, kindHistogram) {
				r.renderHistogram(&sb, fam, name)
			}
		}
	}
	return sb.String()
}

func (r *Registry) seriesOf(fam string, k kind) []string {
	var out []string
	add := func(name string) {
		if family(name) == fam {
			out = append(out, name)
		}
	}
	switch k {
	case kindCounter:
		for name := range r.counters {
			add(name)
		}
	case kindGauge:
		for name := range r.gauges {
			add(name)
		}
	case kindHistogram:
		for name := range r.histograms {
			add(name)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Registry) renderHistogram(sb *strings.Builder, fam, name string) {
	bounds, counts, sum, total := r.histograms[name].snapshot()
	labels := labelPart(name)
	extra := ""
	wrapped := ""
	if labels != "" {
		extra = "," + labels
		wrapped = "{" + labels + "}"
	}
	cumulative := uint64(0)
	for i, b := range bounds {
		cumulative += counts[i]
		fmt.Fprintf(sb, "%s_bucket{le=\"%g\"%s} %d\n", fam, b, extra, cumulative)
	}
	fmt.Fprintf(sb, "%s_bucket{le=\"+Inf\"%s} %d\n", fam, extra, total)
	fmt.Fprintf(sb, "%s_sum%s %g\n", fam, wrapped, sum)
	fmt.Fprintf(sb, "%s_count%s %d\n", fam, wrapped, total)
}

// Handler serves the rendered registry.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(r.Render()))
	})
}

// ServeAsync serves /metrics (plus a trivial health root) on the port in a
// background goroutine.
func (r *Registry) ServeAsync(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			r.log.Error("metrics server stopped", "port", port, "error", err)
		}
	}()
}
