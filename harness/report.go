package harness

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sarchlab/segsim/mmu"
)

// Version of the simulator written into reports.
const Version = "0.3.0"

// Report is the complete output format for harness results.
type Report struct {
	Metadata ReportMetadata `json:"metadata"`
	Results  []Result       `json:"results"`
	Summary  ReportSummary  `json:"summary"`
}

// ReportMetadata contains information about the harness run.
type ReportMetadata struct {
	RunID     string `json:"run_id"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`

	// Config is the base unit configuration.
	Config *mmu.Config `json:"config"`
}

// ReportSummary contains aggregate statistics across all suites.
type ReportSummary struct {
	TotalSuites     int           `json:"total_suites"`
	Passed          int           `json:"passed"`
	Failed          int           `json:"failed"`
	TotalSteps      int           `json:"total_steps"`
	TotalChecked    int           `json:"total_checked"`
	TotalMismatches int           `json:"total_mismatches"`
	TotalWallTime   time.Duration `json:"total_wall_time_ns"`
}

// NewReport assembles a report from results.
func (h *Harness) NewReport(results []Result) Report {
	var summary ReportSummary
	summary.TotalSuites = len(results)
	for _, r := range results {
		if r.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.TotalSteps += r.Steps
		summary.TotalChecked += r.Checked
		summary.TotalMismatches += len(r.Mismatches)
		summary.TotalWallTime += r.WallTime
	}

	return Report{
		Metadata: ReportMetadata{
			RunID:     h.runID.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Config:    h.config.Unit,
		},
		Results: results,
		Summary: summary,
	}
}

// PrintJSON writes the report as indented JSON to the configured output.
func (h *Harness) PrintJSON(results []Result) error {
	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(h.NewReport(results))
}

// WriteReport writes the JSON report to path.
func (h *Harness) WriteReport(path string, results []Result) error {
	data, err := json.MarshalIndent(h.NewReport(results), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// PrintResults outputs results in a human-readable format.
func (h *Harness) PrintResults(results []Result) {
	w := h.config.Output
	_, _ = fmt.Fprintf(w, "Run %s\n", h.runID)

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}

		_, _ = fmt.Fprintf(w, "%s %s\n", status, r.Name)
		_, _ = fmt.Fprintf(w, "  Steps:        %d (%d checked)\n", r.Steps, r.Checked)
		_, _ = fmt.Fprintf(w, "  Translations: %d\n", r.Stats.Translations)
		_, _ = fmt.Fprintf(w, "  Reg Reads:    %d\n", r.Stats.RegisterReads)
		_, _ = fmt.Fprintf(w, "  Reg Writes:   %d\n", r.Stats.RegisterWrites)
		_, _ = fmt.Fprintf(w, "  Seg Faults:   %d\n", r.Stats.SegFaults)
		_, _ = fmt.Fprintf(w, "  Prot Faults:  %d\n", r.Stats.ProtFaults)

		for _, m := range r.Mismatches {
			_, _ = fmt.Fprintf(w, "  step %d (%s) mismatch", m.Step, m.Op)
			if m.Comment != "" {
				_, _ = fmt.Fprintf(w, ": %s", m.Comment)
			}
			_, _ = fmt.Fprintln(w)
			if h.config.Verbose {
				_, _ = fmt.Fprintf(w, "%s\n", m.Diff)
			}
		}
	}
}
