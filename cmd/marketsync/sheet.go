package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"marketsync/internal/output"
	"marketsync/internal/repository"
	"marketsync/internal/service"
)

// sheetCmd moves worksheets in and out of the store as CSV.
func (a *app) sheetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "Import, export and list worksheets",
	}
	cmd.AddCommand(a.sheetListCmd(), a.sheetImportCmd(), a.sheetExportCmd())
	return cmd
}

func (a *app) sheetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List worksheet names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			handle, err := a.opener().OpenForRead(ctx)
			if err != nil {
				return &service.StageError{Stage: service.StageConnect, Err: err}
			}
			defer handle.Close()
			admin, err := adminOf(handle.Repo)
			if err != nil {
				return err
			}
			names, err := admin.ListWorksheets(ctx)
			if err != nil {
				return err
			}
			return output.Write(a.stdout, output.FormatJSON, names)
		},
	}
}

func (a *app) sheetImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <worksheet> <file.csv|->",
		Short: "Replace a worksheet with the rows of a CSV file (first row is the header)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			rows, err := readCSV(args[1], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("%s: no header row", args[1])
			}
			handle, err := a.opener().Open(ctx, false)
			if err != nil {
				return &service.StageError{Stage: service.StageConnect, Err: err}
			}
			defer handle.Close()
			admin, err := adminOf(handle.Repo)
			if err != nil {
				return err
			}
			if err := admin.EnsureWorksheet(ctx, args[0], rows[0]); err != nil {
				return err
			}
			if err := replaceData(ctx, handle.Repo, args[0], rows[1:]); err != nil {
				return &service.StageError{Stage: service.StageSync, Err: err}
			}
			fmt.Fprintf(a.stdout, "imported %d rows into %s\n", len(rows)-1, args[0])
			return nil
		},
	}
}

func (a *app) sheetExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <worksheet>",
		Short: "Write a worksheet to stdout as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			handle, err := a.opener().OpenForRead(ctx)
			if err != nil {
				return &service.StageError{Stage: service.StageConnect, Err: err}
			}
			defer handle.Close()
			values, err := handle.Repo.Values(ctx, args[0])
			if err != nil {
				return &service.StageError{Stage: service.StageLoad, Err: err}
			}
			w := csv.NewWriter(a.stdout)
			if err := w.WriteAll(values); err != nil {
				return err
			}
			return w.Error()
		},
	}
}

func adminOf(repo repository.WorksheetRepository) (repository.WorksheetAdmin, error) {
	admin, ok := repo.(repository.WorksheetAdmin)
	if !ok {
		return nil, fmt.Errorf("worksheet store does not support administration (read-only?)")
	}
	return admin, nil
}

func replaceData(ctx context.Context, repo repository.WorksheetRepository, worksheet string, rows [][]string) error {
	if r, ok := repo.(repository.AtomicReplacer); ok {
		return r.ReplaceRows(ctx, worksheet, rows)
	}
	values, err := repo.Values(ctx, worksheet)
	if err != nil {
		return err
	}
	if len(values) > 1 {
		if err := repo.DeleteRows(ctx, worksheet, 2, len(values)); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := repo.AppendRow(ctx, worksheet, row); err != nil {
			return err
		}
	}
	return nil
}

func readCSV(path string, stdin io.Reader) ([][]string, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}
