package gsheet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadFile 读取本地导出的表格，支持 .csv 和 .xlsx
// xlsx 读取 sheet 指定的工作表，为空时读取第一个
func ReadFile(path, sheet string) (Grid, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ParseCSV(f)
	case ".xlsx":
		return readXLSX(path, sheet)
	}
	return nil, fmt.Errorf("gsheet: unsupported file %s", path)
}

func readXLSX(path, sheet string) (Grid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	grid := make(Grid, 0, len(rows))
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		row := make([]string, len(r))
		for i, v := range r {
			row[i] = strings.TrimSpace(v)
		}
		grid = append(grid, row)
	}
	return grid, nil
}
