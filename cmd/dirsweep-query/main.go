package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"dirsweep/internal/database"
	"dirsweep/internal/exitcodes"
)

func main() {
	dbPath := flag.String("db", "/var/lib/dirsweep/history.db", "Path to sweep history database")
	recent := flag.Int("recent", 0, "Show N most recent sweep entries")
	runs := flag.Int("runs", 0, "Show N most recent sweep runs")
	stats := flag.Bool("stats", false, "Show sweep statistics")
	action := flag.String("action", "", "Filter by action (PRUNE, PURGE, SKIP, ERROR, DRY_RUN)")
	pathPattern := flag.String("path", "", "Filter by path pattern (SQL LIKE syntax)")
	target := flag.String("target", "", "Filter by configured sweep target")
	largest := flag.Int("largest", 0, "Show N largest removals")
	days := flag.Int("days", 30, "Number of days for statistics (default: 30)")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	flag.Parse()

	db, err := database.NewSweepDB(*dbPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open database %s: %v", *dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	switch {
	case *stats:
		showStats(db, *days, *jsonOutput)
	case *recent > 0:
		showRecent(db, *recent, *jsonOutput)
	case *runs > 0:
		showRuns(db, *runs, *jsonOutput)
	case *action != "":
		showByAction(db, *action, *jsonOutput)
	case *pathPattern != "":
		showByPath(db, *pathPattern, *jsonOutput)
	case *target != "":
		showByTarget(db, *target, *jsonOutput)
	case *largest > 0:
		showLargest(db, *largest, *jsonOutput)
	default:
		flag.Usage()
		fmt.Println("\nExamples:")
		fmt.Println("  dirsweep-query --recent 10            # Show 10 most recent sweep entries")
		fmt.Println("  dirsweep-query --runs 5               # Show 5 most recent sweep runs")
		fmt.Println("  dirsweep-query --stats                # Show sweep statistics")
		fmt.Println("  dirsweep-query --action PRUNE         # Show pruned empty directories")
		fmt.Println("  dirsweep-query --path '/srv/%'        # Show entries under /srv")
		fmt.Println("  dirsweep-query --target /srv/uploads  # Show entries for one target")
		fmt.Println("  dirsweep-query --largest 10           # Show 10 largest removals")
		os.Exit(exitcodes.InvalidConfig)
	}
}

func showStats(db *database.SweepDB, days int, jsonOutput bool) {
	stats, err := db.GetSweepStats(days)
	if err != nil {
		log.Fatalf("ERROR: Failed to get statistics: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Sweep Statistics (Last %d days)\n", days)
	fmt.Printf("Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Printf("Total Runs:       %d\n", stats.TotalRuns)
	fmt.Printf("Total Removed:    %d\n", stats.TotalRemoved)
	fmt.Printf("Total Skipped:    %d\n", stats.TotalSkipped)
	fmt.Printf("Total Errors:     %d\n", stats.TotalErrors)
	fmt.Printf("Bytes Freed:      %d (%.2f MB)\n\n", stats.TotalBytesFreed, float64(stats.TotalBytesFreed)/1024/1024)

	if len(stats.ByAction) > 0 {
		fmt.Println("By Action:")
		for action, count := range stats.ByAction {
			fmt.Printf("  %-10s %d\n", action, count)
		}
	}
}

func showRecent(db *database.SweepDB, limit int, jsonOutput bool) {
	entries, err := db.GetRecentEntries(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to get recent entries: %v", err)
	}
	printEntries(entries, jsonOutput)
}

func showByAction(db *database.SweepDB, action string, jsonOutput bool) {
	entries, err := db.GetEntriesByAction(action)
	if err != nil {
		log.Fatalf("ERROR: Failed to get entries by action: %v", err)
	}
	printEntries(entries, jsonOutput)
}

func showByPath(db *database.SweepDB, pattern string, jsonOutput bool) {
	entries, err := db.GetEntriesByPath(pattern)
	if err != nil {
		log.Fatalf("ERROR: Failed to get entries by path: %v", err)
	}
	printEntries(entries, jsonOutput)
}

func showByTarget(db *database.SweepDB, target string, jsonOutput bool) {
	entries, err := db.GetEntriesByTarget(target)
	if err != nil {
		log.Fatalf("ERROR: Failed to get entries by target: %v", err)
	}
	printEntries(entries, jsonOutput)
}

func showLargest(db *database.SweepDB, limit int, jsonOutput bool) {
	entries, err := db.GetLargestEntries(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to get largest entries: %v", err)
	}
	printEntries(entries, jsonOutput)
}

func showRuns(db *database.SweepDB, limit int, jsonOutput bool) {
	runs, err := db.GetRecentRuns(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to get recent runs: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(runs, "", "  ")
		fmt.Println(string(data))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tTARGETS\tDIRS\tENTRIES\tBYTES\tERRORS\tDRY RUN")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%v\n",
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Targets, r.DirsRemoved, r.EntriesRemoved, r.BytesFreed, r.Errors, r.DryRun)
	}
	w.Flush()
}

func printEntries(entries []database.EntryRecord, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(entries) == 0 {
		fmt.Println("No matching entries")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tACTION\tMODE\tOBJECT\tSIZE\tPATH")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Action, e.Mode, e.ObjectType, e.Size, e.Path)
	}
	w.Flush()
}
