package racetime

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateTimeRe  = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})[ T](\d{2}):(\d{2}):(\d{2})(?:\.(\d{1,3}))?`)
	clockRe     = regexp.MustCompile(`(\d{1,2}):(\d{2}):(\d{2})(?:\.(\d{1,3}))?`)
	hourMinRe   = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	hourRe      = regexp.MustCompile(`^\d{1,2}$`)
	dateRe      = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	timeOfDayRe = regexp.MustCompile(`(\d{1,2}):(\d{2})(?::(\d{2}))?(?:\.(\d{1,3}))?`)
	extractRe   = regexp.MustCompile(`(\d{2}:\d{2}:\d{2}(?:\.\d{1,3})?)`)
)

// fallbackLayouts 兜底解析格式，按顺序尝试
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	time.RFC1123Z,
	time.RFC1123,
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
}

// Instant 解析后的绝对时刻
// OK=false 表示无法解析，Ms 无意义
type Instant struct {
	Ms  int64  `json:"ms"`
	OK  bool   `json:"ok"`
	Raw string `json:"raw"`
}

// At 构造一个有效时刻
func At(t time.Time, raw string) Instant {
	return Instant{Ms: t.UnixMilli(), OK: true, Raw: raw}
}

// Time 转换为指定时区的 time.Time
func (i Instant) Time(loc *time.Location) time.Time {
	return time.UnixMilli(i.Ms).In(loc)
}

// Parser 时间字符串解析器
// 只有日期的格式（时:分:秒、时:分、小时）锚定到 ref 的日历日期，不读取系统时钟
type Parser struct {
	loc *time.Location
	ref time.Time
}

// NewParser 创建解析器，refDate 只取年月日
func NewParser(loc *time.Location, refDate time.Time) Parser {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := refDate.In(loc).Date()
	return Parser{loc: loc, ref: time.Date(y, m, d, 0, 0, 0, 0, loc)}
}

// Location 解析使用的时区
func (p Parser) Location() *time.Location {
	return p.loc
}

// RefDate 参考日期（当天 00:00）
func (p Parser) RefDate() time.Time {
	return p.ref
}

// Parse 按以下顺序解析，首个匹配生效：
// 完整日期时间 -> 时:分:秒[.毫秒] -> 时:分 -> 小时 -> 通用日期格式
// 全部失败时返回 OK=false，从不报错
func (p Parser) Parse(raw string) Instant {
	str := strings.TrimSpace(raw)
	if str == "" {
		return Instant{Raw: raw}
	}

	if m := dateTimeRe.FindStringSubmatch(str); m != nil {
		t := time.Date(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]),
			atoi(m[4]), atoi(m[5]), atoi(m[6]), fraction(m[7])*int(time.Millisecond), p.loc)
		return At(t, raw)
	}
	if m := clockRe.FindStringSubmatch(str); m != nil {
		return At(p.onRef(atoi(m[1]), atoi(m[2]), atoi(m[3]), fraction(m[4])), raw)
	}
	if m := hourMinRe.FindStringSubmatch(str); m != nil {
		return At(p.onRef(atoi(m[1]), atoi(m[2]), 0, 0), raw)
	}
	if hourRe.MatchString(str) {
		return At(p.onRef(atoi(str), 0, 0, 0), raw)
	}

	iso := strings.Replace(str, " ", "T", 1)
	for _, layout := range fallbackLayouts {
		for _, s := range []string{iso, str} {
			if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
				return At(t, raw)
			}
		}
	}
	return Instant{Raw: raw}
}

func (p Parser) onRef(h, mi, s, ms int) time.Time {
	y, m, d := p.ref.Date()
	return time.Date(y, m, d, h, mi, s, ms*int(time.Millisecond), p.loc)
}

// HasDate 字符串是否包含 YYYY-MM-DD 日期
func HasDate(s string) bool {
	return dateRe.MatchString(s)
}

// FindDate 提取字符串中的 YYYY-MM-DD 日期
func FindDate(s string) (string, bool) {
	m := dateRe.FindString(s)
	return m, m != ""
}

// ParseDate 严格解析 YYYY-MM-DD
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), loc)
	return t, err == nil
}

// OnDate 将仅含时间的字符串（H:mm[:ss[.fff]]）拼接到 day 所在的日历日期
func OnDate(timeOfDay string, day time.Time, loc *time.Location) (Instant, bool) {
	m := timeOfDayRe.FindStringSubmatch(timeOfDay)
	if m == nil {
		return Instant{Raw: timeOfDay}, false
	}
	y, mo, d := day.In(loc).Date()
	t := time.Date(y, mo, d, atoi(m[1]), atoi(m[2]), atoi(m[3]), fraction(m[4])*int(time.Millisecond), loc)
	return At(t, timeOfDay), true
}

// ExtractTimeOfDay 提取 HH:MM:SS.mmm
// "2025-11-23 08:28:28.915" -> "08:28:28.915"
func ExtractTimeOfDay(raw string) string {
	if raw == "" {
		return "-"
	}
	m := extractRe.FindString(raw)
	if m == "" {
		return raw
	}
	hms, frac, ok := strings.Cut(m, ".")
	if !ok {
		return m + ".000"
	}
	return hms + "." + padFraction(frac)
}

// FormatDuration 毫秒 -> HH:MM:SS，秒向下取整，无效值返回 "-"
func FormatDuration(ms int64) string {
	if ms < 0 {
		return "-"
	}
	return clock(ms)
}

// FormatCountdown 倒计时显示，负数按 0 处理
func FormatCountdown(ms int64) string {
	return clock(max(ms, 0))
}

func clock(ms int64) string {
	total := ms / 1000
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return pad2(h) + ":" + pad2(m) + ":" + pad2(s)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// fraction 毫秒部分补齐或截断为 3 位
func fraction(s string) int {
	if s == "" {
		return 0
	}
	return atoi(padFraction(s))
}

func padFraction(s string) string {
	for len(s) < 3 {
		s += "0"
	}
	return s[:3]
}
