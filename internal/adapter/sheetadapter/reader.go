package sheetadapter

import (
	"context"
	"path/filepath"

	"github.com/iztrace/leaderboard/pkg/gsheet"
)

// Tab 一张工作表，在线读取使用 GID，本地读取使用 File
type Tab struct {
	Name string
	GID  int64
	File string
}

// IsSet 是否配置了该工作表
func (t Tab) IsSet() bool {
	return t.GID != 0 || t.File != ""
}

// Reader 读取工作表为二维表
type Reader interface {
	Read(ctx context.Context, tab Tab) (gsheet.Grid, error)
}

// SheetReader 读取已发布的 Google 表格
type SheetReader struct {
	engine gsheet.Engine
}

func NewSheetReader(engine gsheet.Engine) SheetReader {
	return SheetReader{engine: engine}
}

func (r SheetReader) Read(ctx context.Context, tab Tab) (gsheet.Grid, error) {
	return r.engine.Fetch(ctx, tab.GID)
}

// FileReader 读取目录下导出的 csv/xlsx 文件
type FileReader struct {
	dir string
}

func NewFileReader(dir string) FileReader {
	return FileReader{dir: dir}
}

func (r FileReader) Read(ctx context.Context, tab Tab) (gsheet.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := tab.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.dir, path)
	}
	return gsheet.ReadFile(path, "")
}
