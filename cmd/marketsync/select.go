package main

import (
	"github.com/spf13/cobra"

	"marketsync/internal/output"
	"marketsync/internal/selection"
	"marketsync/internal/service"
)

func (a *app) selectCmd() *cobra.Command {
	var (
		dryRun        bool
		twoPhase      bool
		topN          int
		minReward     float64
		maxVolatility float64
		maxSpread     float64
		maxMinSize    float64
	)
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Rank the candidate pool and replace the Selected Markets worksheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.ParseFormat(a.format)
			if err != nil {
				return err
			}
			criteria := selection.FromConfig(a.cfg.Selection)
			flags := cmd.Flags()
			if flags.Changed("top-n") {
				criteria.TopN = topN
			}
			if flags.Changed("min-reward") {
				criteria.MinReward = minReward
			}
			if flags.Changed("max-volatility") {
				criteria.MaxVolatility = maxVolatility
			}
			if flags.Changed("max-spread") {
				criteria.MaxSpread = maxSpread
			}
			if flags.Changed("max-min-size") {
				criteria.MaxMinSize = maxMinSize
			}

			svc := &service.SelectionService{
				Opener:       a.opener(),
				Sheets:       a.cfg.Sheets,
				Criteria:     criteria,
				Logger:       a.logger,
				TwoPhaseSync: twoPhase,
			}
			res, err := svc.Run(a.context(cmd), service.RunOptions{DryRun: dryRun})
			if err != nil {
				if res != nil && len(res.Selected) > 0 && format == output.FormatText {
					_ = selection.WriteSummary(a.stdout, "Selected (not synced)", res.Selected)
				}
				return err
			}
			return output.Write(a.stdout, format, res)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&dryRun, "dry-run", false, "rank and print without writing the destination")
	f.BoolVar(&twoPhase, "two-phase", false, "clear then append instead of an atomic replace")
	f.IntVar(&topN, "top-n", 0, "override selection.top_n")
	f.Float64Var(&minReward, "min-reward", 0, "override selection.min_reward")
	f.Float64Var(&maxVolatility, "max-volatility", 0, "override selection.max_volatility")
	f.Float64Var(&maxSpread, "max-spread", 0, "override selection.max_spread")
	f.Float64Var(&maxMinSize, "max-min-size", 0, "override selection.max_min_size")
	return cmd
}
