package gsheet

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Grid 二维表，第一行为表头
type Grid [][]string

// Headers 表头
func (g Grid) Headers() []string {
	if len(g) == 0 {
		return nil
	}
	return g[0]
}

// Rows 数据行
func (g Grid) Rows() [][]string {
	if len(g) <= 1 {
		return nil
	}
	return g[1:]
}

// Col 按别名查找列，表头与别名相等或包含别名即匹配，返回第一个匹配列，找不到返回 -1
func (g Grid) Col(aliases ...string) int {
	norms := make([]string, len(aliases))
	for i, a := range aliases {
		norms[i] = Normalize(a)
	}
	for i, h := range g.Headers() {
		h = Normalize(h)
		for _, a := range norms {
			if a != "" && (h == a || strings.Contains(h, a)) {
				return i
			}
		}
	}
	return -1
}

// Cell 读取单元格，列不存在或越界返回空字符串
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Normalize 小写并合并空白
func Normalize(s string) string {
	return strings.Join(strings.Fields(cases.Lower(language.Und).String(s)), " ")
}
