package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"marketsync/internal/output"
	"marketsync/internal/service"
)

func (a *app) consolidation() *service.ConsolidationService {
	return &service.ConsolidationService{
		Opener: a.opener(),
		Sheets: a.cfg.Sheets,
		Logger: a.logger,
	}
}

func (a *app) paramsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "params [section]",
		Short: "Print the consolidated hyperparameter map",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.consolidation().Build(a.context(cmd))
			if err != nil {
				return err
			}
			if len(args) == 1 {
				params, ok := snap.Hyperparameters[args[0]]
				if !ok {
					return errUnknownSection(args[0], snap.Hyperparameters.Sections())
				}
				return output.Write(a.stdout, output.FormatJSON, params)
			}
			return output.Write(a.stdout, output.FormatJSON, snap.Hyperparameters)
		},
	}
}

func (a *app) marketsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "markets",
		Short: "Print the merged Selected Markets x All Markets records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.consolidation().Build(a.context(cmd))
			if err != nil {
				return err
			}
			return output.Write(a.stdout, output.FormatJSON, snap.Markets)
		},
	}
}

func errUnknownSection(name string, known []string) error {
	return fmt.Errorf("unknown hyperparameter section %q (have: %s)", name, strings.Join(known, ", "))
}
