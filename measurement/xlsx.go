package measurement

import (
	"fmt"
	"io"
	"strconv"

	"scan-analysis/models"

	"github.com/xuri/excelize/v2"
)

const (
	flowsSheet = "tld_flows"
	smallSheet = "small_providers"
)

// WriteBucketWorkbook writes the TLD flow edges and the small-provider table
// as two sheets of one xlsx workbook.
func WriteBucketWorkbook(w io.Writer, edges []models.Edge, small []models.SmallProvider) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", flowsSheet); err != nil {
		return err
	}
	rows := [][]interface{}{{"source", "target", "value"}}
	for _, e := range edges {
		rows = append(rows, []interface{}{e.Source, e.Target, e.Value})
	}
	if err := setRows(f, flowsSheet, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(smallSheet); err != nil {
		return err
	}
	rows = [][]interface{}{{"Provider", "CustomerCount", "ContainsSelf"}}
	for _, p := range small {
		rows = append(rows, []interface{}{p.Provider, p.CustomerCount, strconv.FormatBool(p.ContainsSelf)})
	}
	if err := setRows(f, smallSheet, rows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
