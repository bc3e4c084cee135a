package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Reward Simulation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Scenario: %s | Users: %d\n\n", r.ScenarioName, r.Users))
	if r.ScenarioID != "" {
		sb.WriteString(fmt.Sprintf("Scenario ID: `%s`\n\n", r.ScenarioID))
	}

	// Schedule
	sb.WriteString("## Schedule\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Start Time | %d |\n", r.Params.StartTime))
	sb.WriteString(fmt.Sprintf("| Epoch Duration (s) | %d |\n", r.Params.EpochDuration))
	sb.WriteString(fmt.Sprintf("| Number of Epochs | %d |\n", r.Params.NumberOfEpochs))
	sb.WriteString(fmt.Sprintf("| Vesting Epochs | %d |\n", r.Params.VestingEpochs))
	sb.WriteString(fmt.Sprintf("| Rewards per Epoch | %s |\n", r.Params.RewardsPerEpoch))
	sb.WriteString(fmt.Sprintf("| Allocation Divisor | %d |\n", r.Params.AllocationDiv))
	sb.WriteString("\n")

	// Ledgers
	sb.WriteString("## Expected Rewards\n\n")
	if len(r.Runs) == 0 {
		sb.WriteString("No runs available.\n\n")
	}
	for _, run := range r.Runs {
		sb.WriteString(fmt.Sprintf("### Eval Epoch %d\n\n", run.EvalEpoch))
		if run.RunID != "" {
			sb.WriteString(fmt.Sprintf("Run ID: `%s`\n\n", run.RunID))
		}
		sb.WriteString(fmt.Sprintf("Claimable now: %s | Total: %s\n\n", run.Claimable, run.Total))

		if len(run.Rows) == 0 {
			sb.WriteString("No users.\n\n")
			continue
		}
		buckets := len(run.Rows[0].Buckets)
		sb.WriteString("| User |")
		for k := 0; k < buckets; k++ {
			sb.WriteString(fmt.Sprintf(" +%d |", k))
		}
		sb.WriteString(" Total |\n")
		sb.WriteString("|------|")
		sb.WriteString(strings.Repeat("-----|", buckets))
		sb.WriteString("-------|\n")
		for _, row := range run.Rows {
			sb.WriteString(fmt.Sprintf("| %d |", row.UserID))
			for _, v := range row.Buckets {
				sb.WriteString(fmt.Sprintf(" %s |", v))
			}
			sb.WriteString(fmt.Sprintf(" %s |\n", row.Total))
		}
		sb.WriteString("\n")
	}

	// Epoch accounting
	sb.WriteString("## Epoch Accounting\n\n")
	if len(r.Epochs) > 0 {
		sb.WriteString("| Epoch | Total Stake-Seconds | Status |\n")
		sb.WriteString("|-------|---------------------|--------|\n")
		for _, e := range r.Epochs {
			status := "ALLOCATED"
			if e.Skipped {
				status = "SKIPPED"
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %s |\n", e.Epoch, e.TotalStakeSeconds, status))
		}
	} else {
		sb.WriteString("No epochs simulated.\n")
	}
	sb.WriteString("\n")

	// Verification
	if v := r.Verification; v != nil {
		sb.WriteString("## Claim Verification\n\n")
		sb.WriteString(fmt.Sprintf("Tolerance: %s | Claims checked: %d | Matched epochs: %d | Divergent epochs: %d\n\n",
			v.Tolerance, v.TotalChecks, v.MatchedEpochs, v.DivergentEpochs))
		if len(v.Divergences) == 0 {
			sb.WriteString("**All claims matched.**\n\n")
		} else {
			sb.WriteString("| Epoch | User | Source | Bucket | Expected | Actual | Reason |\n")
			sb.WriteString("|-------|------|--------|--------|----------|--------|--------|\n")
			for _, d := range v.Divergences {
				sb.WriteString(fmt.Sprintf("| %d | %d | %s | %d | %s | %s | %s |\n",
					d.EvalEpoch, d.UserID, d.Source, d.Bucket, d.Expected, d.Actual, d.Reason))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
