package main

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"text/template"
	"time"
)

type Report struct {
	// Configuration
	Duration time.Duration
	Worlds   int
	Entities int
	LowHP    int

	// Results
	TotalUpdates   int64
	TotalTime      time.Duration
	UpdateTime     Stats
	WorldResults   []WorldResult
	GCPauseMetrics bool
	MemStatsStart  runtime.MemStats
	MemStatsEnd    runtime.MemStats
}

type WorldResult struct {
	Id         int
	Updates    int
	Entities   int
	Archetypes int
	LowHealth  int
	Spawned    int64
	Killed     int64
	Indexed    int
}

// Stats summarizes frame durations.
type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	P50     time.Duration
	P99     time.Duration
	Samples []time.Duration
}

// Finalize sorts the samples and computes the summary.
func (s *Stats) Finalize() {
	n := len(s.Samples)
	if n == 0 {
		return
	}
	slices.Sort(s.Samples)

	var total time.Duration
	for _, d := range s.Samples {
		total += d
	}
	s.Min = s.Samples[0]
	s.Max = s.Samples[n-1]
	s.Avg = total / time.Duration(n)
	s.P50 = s.Samples[n/2]
	s.P99 = s.Samples[min(n-1, n*99/100)]
}

type memRow struct {
	Name       string
	Start, End int64
}

func (m memRow) Delta() int64 { return m.End - m.Start }

func (r *Report) memRows() []memRow {
	a, b := &r.MemStatsStart, &r.MemStatsEnd
	return []memRow{
		{"Heap Alloc", int64(a.HeapAlloc), int64(b.HeapAlloc)},
		{"Total Alloc", int64(a.TotalAlloc), int64(b.TotalAlloc)},
		{"Sys", int64(a.Sys), int64(b.Sys)},
		{"Heap Objects", int64(a.HeapObjects), int64(b.HeapObjects)},
		{"Num GC", int64(a.NumGC), int64(b.NumGC)},
	}
}

// AddWorld merges the results of a finished simulation.
func (r *Report) AddWorld(s *simulation) {
	stats := s.world.CollectStats()
	r.WorldResults = append(r.WorldResults, WorldResult{
		Id:         s.id,
		Updates:    len(s.samples),
		Entities:   stats.TotalEntityCount,
		Archetypes: stats.ArchetypeCount,
		LowHealth:  s.low.Len(),
		Spawned:    s.spawned,
		Killed:     s.killed,
		Indexed:    s.hp.Len(),
	})
	r.TotalUpdates += int64(len(s.samples))
	r.UpdateTime.Samples = append(r.UpdateTime.Samples, s.samples...)
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# ECS Stress Test Report

## Test Configuration
- **Run Duration:** {{.Duration}}
- **Worlds:** {{.Worlds}}
- **Initial Entities per World:** {{.Entities}}
- **Low Health Threshold:** {{.LowHP}}

## Frame Time
- **Total Updates:** {{.TotalUpdates}}
- **Wall Time:** {{.TotalTime}}
- **Avg / P50 / P99:** {{.UpdateTime.Avg}} / {{.UpdateTime.P50}} / {{.UpdateTime.P99}}
- **Min / Max:** {{.UpdateTime.Min}} / {{.UpdateTime.Max}}

## Worlds
| World | Updates | Entities | Archetypes | Indexed | Low Health | Killed | Spawned |
|---|---|---|---|---|---|---|---|
{{- range .WorldResults}}
| {{.Id}} | {{.Updates}} | {{.Entities}} | {{.Archetypes}} | {{.Indexed}} | {{.LowHealth}} | {{.Killed}} | {{.Spawned}} |
{{- end}}

## Memory
| Metric | Start | End | Delta |
|---|---|---|---|
{{- range .Memory}}
| {{.Name}} | {{.Start}} | {{.End}} | {{.Delta}} |
{{- end}}
- **Heap In Use (end):** {{mib .MemStatsEnd.HeapInuse}} MiB
{{if .GCPauseMetrics}}
## GC Pauses
- **Total Pause:** {{pause .MemStatsEnd.PauseTotalNs}}
- **Pause per Cycle:** {{pausePerCycle}}
{{end}}`

	cycles := r.MemStatsEnd.NumGC - r.MemStatsStart.NumGC
	fm := template.FuncMap{
		"mib": func(v uint64) string {
			return fmt.Sprintf("%.2f", float64(v)/(1<<20))
		},
		"pause": func(ns uint64) time.Duration {
			return time.Duration(ns)
		},
		"pausePerCycle": func() time.Duration {
			if cycles == 0 {
				return 0
			}
			return time.Duration((r.MemStatsEnd.PauseTotalNs - r.MemStatsStart.PauseTotalNs) / uint64(cycles))
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}
	return tmpl.Execute(w, struct {
		*Report
		Memory []memRow
	}{r, r.memRows()})
}
