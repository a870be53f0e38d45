package app

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// smoothing is the weight of the newest sample in the running average.
const smoothing = 0.1

// Profiler keeps CPU timings of the named frame stages and a few counters.
type Profiler struct {
	Last    map[string]time.Duration
	Average map[string]time.Duration
	Counts  map[string]int
	Order   []string

	started map[string]time.Time
	now     func() time.Time
}

func NewProfiler() *Profiler {
	return &Profiler{
		Last:    make(map[string]time.Duration),
		Average: make(map[string]time.Duration),
		Counts:  make(map[string]int),
		started: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (p *Profiler) BeginScope(name string) {
	if _, seen := p.Last[name]; !seen {
		p.Order = append(p.Order, name)
		p.Last[name] = 0
	}
	p.started[name] = p.now()
}

func (p *Profiler) EndScope(name string) {
	start, ok := p.started[name]
	if !ok {
		return
	}
	delete(p.started, name)
	d := p.now().Sub(start)
	p.Last[name] = d
	if avg, ok := p.Average[name]; ok && avg > 0 {
		p.Average[name] = avg + time.Duration(smoothing*float64(d-avg))
	} else {
		p.Average[name] = d
	}
}

// Scope times fn under name.
func (p *Profiler) Scope(name string, fn func() error) error {
	p.BeginScope(name)
	defer p.EndScope(name)
	return fn()
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

func (p *Profiler) Reset() {
	for k := range p.Last {
		p.Last[k] = 0
	}
	for k := range p.Average {
		delete(p.Average, k)
	}
}

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU, last / avg):\n")
	for _, name := range p.Order {
		fmt.Fprintf(&sb, "  %-15s: %.2f / %.2f ms\n", name, ms(p.Last[name]), ms(p.Average[name]))
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %-15s: %d\n", k, p.Counts[k])
	}
	return sb.String()
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
