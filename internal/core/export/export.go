package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iztrace/leaderboard/internal/core/leaderboard"
	"github.com/xuri/excelize/v2"
)

// Headers 导出列
var Headers = []string{"Rank", "NO BIB", "Nama Lengkap", "Gender", "Kategori", "Finish Time", "Total Time"}

// maxSheetName excel 工作表名称长度上限
const maxSheetName = 31

// Record 单行导出内容，完赛时间为 HH:MM:SS.mmm，无名次显示为 -
func Record(r leaderboard.ResultRow) []string {
	rank := "-"
	if r.Rank != nil {
		rank = strconv.Itoa(*r.Rank)
	}
	return []string{rank, r.Bib, r.Name, r.Gender, r.Category, r.FinishTime, r.Display}
}

// WriteCSV 写出 CSV，含引号、逗号或换行的字段加引号
func WriteCSV(w io.Writer, rows []leaderboard.ResultRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(Record(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Sheet 一个工作表
type Sheet struct {
	Name string
	Rows []leaderboard.ResultRow
}

// Sheets 总榜和各分组榜
func Sheets(snap *leaderboard.Snapshot) []Sheet {
	out := make([]Sheet, 0, len(snap.Categories)+1)
	out = append(out, Sheet{Name: "Overall", Rows: snap.Overall})
	for _, key := range snap.Categories {
		out = append(out, Sheet{Name: key, Rows: snap.ByCategory[key]})
	}
	return out
}

// WriteXLSX 每个视图一个工作表
func WriteXLSX(w io.Writer, sheets ...Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	used := make(map[string]int)
	for i, s := range sheets {
		name := sheetName(s.Name, used)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := writeSheet(f, name, s.Rows, bold); err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}
	}
	_, err = f.WriteTo(w)
	return err
}

func writeSheet(f *excelize.File, name string, rows []leaderboard.ResultRow, style int) error {
	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
	if err := f.SetCellStyle(name, "A1", last, style); err != nil {
		return err
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		record := Record(r)
		values := make([]any, len(record))
		for j, v := range record {
			values[j] = v
		}
		if r.Rank != nil {
			values[0] = *r.Rank
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return err
		}
	}
	return f.SetColWidth(name, "B", "C", 24)
}

// sheetName 去除非法字符并截断，重名时追加序号
func sheetName(name string, used map[string]int) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "Sheet"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	used[name]++
	if n := used[name]; n > 1 {
		suffix := fmt.Sprintf(" (%d)", n)
		r := []rune(name)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		name = string(r) + suffix
	}
	return name
}
