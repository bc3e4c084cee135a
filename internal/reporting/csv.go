package reporting

import (
	"fmt"
	"strings"
)

// RenderLedgerCSV renders every run's ledger as CSV, one row per user and bucket.
func RenderLedgerCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("scenario_id,run_id,eval_epoch,user_id,bucket,amount\n")
	for _, run := range r.Runs {
		for _, row := range run.Rows {
			for k, v := range row.Buckets {
				sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%d,%s\n",
					r.ScenarioID, run.RunID, run.EvalEpoch, row.UserID, k, v))
			}
		}
	}

	return sb.String()
}

// RenderEpochsCSV renders the epoch accounting as CSV, one row per user and epoch.
func RenderEpochsCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("epoch,total_stake_seconds,skipped,user_id,stake_seconds,per_vesting_epoch\n")
	for _, e := range r.Epochs {
		for _, u := range e.Users {
			sb.WriteString(fmt.Sprintf("%d,%s,%t,%d,%s,%s\n",
				e.Epoch, e.TotalStakeSeconds, e.Skipped, u.UserID, u.StakeSeconds, u.PerVestingEpoch))
		}
	}

	return sb.String()
}
