package ingest

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/sanadlabs/sanad/source"
	"github.com/sanadlabs/sanad/storage"
)

// StatusReport renders the operational state of the ingestion pipeline as
// a plain-text block: run rollup, per-source health, armed schedules,
// process resource usage, and a fixed metadata footer (coverage ranges,
// cadence policy, storage backend). Intended for the CLI and for pasting
// into incident notes.
func StatusReport(registry *source.Registry, schedules *ScheduleStore, runs *storage.RunStore, dbPath string, now time.Time) (string, error) {
	var b strings.Builder
	b.WriteString("SANAD INGESTION STATUS\n")
	b.WriteString("======================\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.UTC().Format(time.RFC3339))

	rollup, err := runs.Rollup()
	if err != nil {
		return "", err
	}
	stats := registry.Stats()
	fmt.Fprintf(&b, "Sources registered:  %d\n", stats.TotalSources)
	fmt.Fprintf(&b, "Total runs:          %d\n", rollup.TotalRuns)
	fmt.Fprintf(&b, "Success rate:        %.1f%%\n", rollup.SuccessRate()*100)
	fmt.Fprintf(&b, "Records ingested:    %d\n", rollup.RecordsIngested)
	if rollup.LastRun != nil {
		fmt.Fprintf(&b, "Last run:            %s (%s ago)\n",
			rollup.LastRun.Format(time.RFC3339), now.Sub(*rollup.LastRun).Round(time.Second))
	} else {
		b.WriteString("Last run:            never\n")
	}

	b.WriteString("\nPER-SOURCE HEALTH\n")
	b.WriteString("-----------------\n")
	for _, conn := range registry.All() {
		cfg := conn.Config()
		health, err := runs.SourceHealth(cfg.SourceID, 20)
		if err != nil {
			return "", err
		}
		if health.Runs == 0 {
			fmt.Fprintf(&b, "%-24s tier %d  no runs yet\n", cfg.SourceID, cfg.Tier)
			continue
		}
		fmt.Fprintf(&b, "%-24s tier %d  %d/%d ok (%.0f%%)  last: %s\n",
			cfg.SourceID, cfg.Tier, health.Successes, health.Runs,
			health.SuccessRate*100, health.LastStatus)
	}

	b.WriteString("\nSCHEDULES\n")
	b.WriteString("---------\n")
	all, err := schedules.All()
	if err != nil {
		return "", err
	}
	if len(all) == 0 {
		b.WriteString("none armed\n")
	}
	for _, sched := range all {
		overdue := ""
		if sched.Status != StatusRunning && sched.NextRunAt.Before(now) {
			overdue = "  OVERDUE"
		}
		fmt.Fprintf(&b, "%-24s %-12s %-10s next: %s%s\n",
			sched.SourceID, sched.Cadence, sched.Status,
			sched.NextRunAt.Format(time.RFC3339), overdue)
	}

	b.WriteString("\nPROCESS\n")
	b.WriteString("-------\n")
	writeProcessStats(&b)

	b.WriteString("\nMETADATA\n")
	b.WriteString("--------\n")
	fmt.Fprintf(&b, "Storage:             sqlite %s (snapshots, data points, runs, corrections, validation results)\n", dbPath)
	b.WriteString("Cadence policy:      per-source cron expression or alias; unknown cadences fall back to next midnight UTC\n")
	b.WriteString("Coverage:\n")
	for _, conn := range registry.All() {
		cfg := conn.Config()
		if cfg.Coverage.Start.IsZero() {
			fmt.Fprintf(&b, "  %-22s %-12s undeclared\n", cfg.SourceID, cfg.UpdateFrequency)
			continue
		}
		fmt.Fprintf(&b, "  %-22s %-12s %s .. %s\n",
			cfg.SourceID, cfg.UpdateFrequency,
			cfg.Coverage.Start.Format("2006-01-02"), cfg.Coverage.End.Format("2006-01-02"))
	}
	return b.String(), nil
}

// writeProcessStats is best-effort: resource probes failing never fails
// the report.
func writeProcessStats(b *strings.Builder) {
	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Fprintf(b, "System memory:       %.1f%% of %.1f GB\n",
			vm.UsedPercent, float64(vm.Total)/(1<<30))
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if rss, err := proc.MemoryInfo(); err == nil && rss != nil {
			fmt.Fprintf(b, "Process RSS:         %.1f MB\n", float64(rss.RSS)/(1<<20))
		}
		if cpu, err := proc.CPUPercent(); err == nil {
			fmt.Fprintf(b, "Process CPU:         %.1f%%\n", cpu)
		}
	}
}
