package gsheet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var (
	ErrGVizParse = errors.New("gviz parse failed (sheet not published / no access)")

	setResponseRe = regexp.MustCompile(`google\.visualization\.Query\.setResponse\(([\s\S]*)\);`)
	dateLiteralRe = regexp.MustCompile(`^Date\(([\d,\s-]+)\)$`)
)

// emptyHeaderRatio 表头空值比例超过该值时改用第一行数据作为表头
const emptyHeaderRatio = 0.6

type Config struct {
	// BaseURL 已发布表格的地址，形如 https://docs.google.com/spreadsheets/d/e/<id>
	BaseURL string
	Timeout time.Duration
}

// Engine 已发布 Google 表格的读取客户端
type Engine struct {
	cfg Config
	cli *http.Client
}

func NewEngine() Engine {
	return Engine{
		cli: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        30,
				MaxIdleConnsPerHost: 30,
				MaxConnsPerHost:     100,
			},
		},
	}
}

func (e Engine) SetConfig(cfg Config) Engine {
	e.cfg = cfg
	if cfg.Timeout > 0 {
		cli := *e.cli
		cli.Timeout = cfg.Timeout
		e.cli = &cli
	}
	return e
}

// Fetch 优先读取 gviz 接口，失败或为空时回退到 CSV 导出
func (e Engine) Fetch(ctx context.Context, gid int64) (Grid, error) {
	grid, err := e.FetchGViz(ctx, gid)
	if err == nil && len(grid) > 0 && len(grid[0]) > 0 {
		return grid, nil
	}
	if err != nil {
		slog.DebugContext(ctx, "gviz failed, fallback to csv", "gid", gid, "err", err)
	}
	return e.FetchCSV(ctx, gid)
}

// FetchGViz 读取 gviz json 接口
func (e Engine) FetchGViz(ctx context.Context, gid int64) (Grid, error) {
	body, err := e.get(ctx, "/gviz/tq?gid="+strconv.FormatInt(gid, 10)+"&tqx=out:json")
	if err != nil {
		return nil, err
	}
	return ParseGViz(body)
}

// FetchCSV 读取 CSV 导出
func (e Engine) FetchCSV(ctx context.Context, gid int64) (Grid, error) {
	body, err := e.get(ctx, "/pub?gid="+strconv.FormatInt(gid, 10)+"&single=true&output=csv")
	if err != nil {
		return nil, err
	}
	return ParseCSV(strings.NewReader(body))
}

func (e Engine) get(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(e.cfg.BaseURL, "/")+path, nil)
	if err != nil {
		return "", err
	}
	resp, err := e.cli.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gsheet: GET %s status %d", path, resp.StatusCode)
	}
	return string(b), nil
}

// ParseGViz 解析 gviz 响应
// 表头取 label，没有 label 时取 id；表头缺失或大部分为空时改用第一行数据
func ParseGViz(body string) (Grid, error) {
	m := setResponseRe.FindStringSubmatch(body)
	if m == nil || !gjson.Valid(m[1]) {
		return nil, ErrGVizParse
	}
	table := gjson.Get(m[1], "table")

	cols := table.Get("cols").Array()
	headers := make([]string, 0, len(cols))
	for _, c := range cols {
		h := c.Get("label").String()
		if h == "" {
			h = c.Get("id").String()
		}
		headers = append(headers, h)
	}

	rows := table.Get("rows").Array()
	values := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells := r.Get("c").Array()
		row := make([]string, 0, len(cells))
		for _, cell := range cells {
			row = append(row, cellValue(cell))
		}
		values = append(values, row)
	}

	if len(values) > 0 && mostlyEmpty(headers) {
		return append(Grid{values[0]}, values[1:]...), nil
	}
	return append(Grid{headers}, values...), nil
}

// cellValue 日期类型的 v 为 Date(...) 形式，转换为带毫秒的完整时间
// 无法识别时退回格式化后的 f
func cellValue(cell gjson.Result) string {
	if !cell.Exists() || cell.Type == gjson.Null {
		return ""
	}
	v := cell.Get("v")
	if v.Type == gjson.Null || !v.Exists() {
		return ""
	}
	if v.Type == gjson.String && strings.HasPrefix(v.Str, "Date(") {
		if s, ok := DateLiteral(v.Str); ok {
			return s
		}
		if f := cell.Get("f").String(); f != "" {
			return f
		}
	}
	return v.String()
}

// DateLiteral 将 Date(y,m,d[,h,mi,s[,ms]]) 转换为 YYYY-MM-DD HH:mm:ss.fff
// 月份从 0 开始；只有日期时返回 YYYY-MM-DD
func DateLiteral(s string) (string, bool) {
	m := dateLiteralRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	parts := strings.Split(m[1], ",")
	if len(parts) != 3 && len(parts) != 6 && len(parts) != 7 {
		return "", false
	}
	n := make([]int, 7)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return "", false
		}
		n[i] = v
	}
	year, month, day := n[0], n[1]+1, n[2]
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	if len(parts) == 3 {
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
	}
	h, mi, sec, ms := n[3], n[4], n[5], n[6]
	if h > 23 || mi > 59 || sec > 59 || ms > 999 || h < 0 || mi < 0 || sec < 0 || ms < 0 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%03d", year, month, day, h, mi, sec, ms), true
}

func mostlyEmpty(headers []string) bool {
	if len(headers) == 0 {
		return true
	}
	var empty int
	for _, h := range headers {
		if Normalize(h) == "" {
			empty++
		}
	}
	return float64(empty)/float64(len(headers)) > emptyHeaderRatio
}

// ParseCSV 解析 CSV，忽略空行，字段去除首尾空白
func ParseCSV(r io.Reader) (Grid, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var grid Grid
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]string, len(record))
		for i, v := range record {
			row[i] = strings.TrimSpace(v)
		}
		grid = append(grid, row)
	}
	return grid, nil
}
