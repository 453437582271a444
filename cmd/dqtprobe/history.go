package main

import (
	"fmt"
	"io"

	"github.com/loykin/dqtprobe/internal/store"
)

// printRuns writes the most recent runs in a fixed-width listing.
func printRuns(w io.Writer, s *store.Store, limit int) error {
	runs, err := s.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "no recorded runs")
		return nil
	}
	_, _ = fmt.Fprintf(w, "%-6s %-30s %-8s %-8s %-30s\n", "ID", "SCENARIO", "PASSED", "ABORTED", "STARTED")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%-6d %-30s %-8t %-8t %-30s\n",
			r.ID, r.Scenario, r.Passed, r.Aborted, r.StartedAt)
	}
	return nil
}

// printSteps writes the step results of one run in execution order.
func printSteps(w io.Writer, s *store.Store, runID int64) error {
	steps, err := s.LoadSteps(runID)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		_, _ = fmt.Fprintf(w, "no steps recorded for run %d\n", runID)
		return nil
	}
	for _, st := range steps {
		mark := "PASS"
		if !st.Pass {
			mark = "FAIL"
		}
		if st.Tolerated {
			mark += " (tolerated)"
		}
		_, _ = fmt.Fprintf(w, "%3d. [%s/%s] %-45s %s", st.Seq, st.Kind, st.Status, st.Name, mark)
		if st.Code != 0 {
			_, _ = fmt.Fprintf(w, " code=%d", st.Code)
		}
		_, _ = fmt.Fprintln(w)
		if st.Detail != "" {
			_, _ = fmt.Fprintf(w, "     %s\n", st.Detail)
		}
	}
	return nil
}
