package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// PreviewGalleryID 是目标月份前一天（预告日）的图集标识。
const PreviewGalleryID = 0

// DateLayout 是 URL 与统计中使用的日期格式。
const DateLayout = "2006-01-02"

// ErrDateOutOfRange 表示日期既不在目标月份内，也不是预告日。
var ErrDateOutOfRange = errors.New("date is outside the navigable range")

// Direction 表示 Step 的移动方向。
type Direction int

const (
	Backward Direction = iota
	Forward
)

// ParseDirection 接受 "prev"/"next" 及其完整写法。
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prev", "previous", "back", "backward":
		return Backward, nil
	case "next", "forward":
		return Forward, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", raw)
	}
}

func (d Direction) String() string {
	if d == Forward {
		return "next"
	}
	return "prev"
}

// TargetRange 是日历服务的目标月份，外加一个预告日。
type TargetRange struct {
	Year     int
	Month    time.Month
	Location *time.Location
}

func (r TargetRange) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// FirstDay 返回目标月份的 1 日。
func (r TargetRange) FirstDay() time.Time {
	return time.Date(r.Year, r.Month, 1, 0, 0, 0, 0, r.location())
}

// PreviewDate 返回目标月份 1 日的前一天。
func (r TargetRange) PreviewDate() time.Time {
	return r.FirstDay().AddDate(0, 0, -1)
}

// DaysInMonth 返回目标月份的天数。
func (r TargetRange) DaysInMonth() int {
	return r.FirstDay().AddDate(0, 1, -1).Day()
}

// DateGate 判断哪些日期可以到达；它不读取时钟，范围由外部注入。
type DateGate struct {
	rng TargetRange
}

// NewDateGate 根据 rng 创建 DateGate。
func NewDateGate(rng TargetRange) *DateGate {
	return &DateGate{rng: rng}
}

// Range 返回配置的目标范围。
func (g *DateGate) Range() TargetRange {
	return g.rng
}

// GalleryIDFor 把日期映射为图集标识。
func (g *DateGate) GalleryIDFor(date time.Time) int {
	if g.isPreview(date) {
		return PreviewGalleryID
	}
	return date.Day()
}

// CanStepBackward 判断能否从 cur 移动到前一天。
func (g *DateGate) CanStepBackward(cur time.Time) bool {
	prev := cur.AddDate(0, 0, -1)
	if g.inMonth(prev) {
		return true
	}
	return g.isFirst(cur) && g.isPreview(prev)
}

// CanStepForward 判断能否从 cur 移动到后一天。
// 月末没有对应的后置预告日。
func (g *DateGate) CanStepForward(cur time.Time) bool {
	next := cur.AddDate(0, 0, 1)
	if g.inMonth(next) {
		return true
	}
	return g.isPreview(cur) && g.isFirst(next)
}

// Step 返回相邻日期和 true；不允许移动时返回 cur 和 false。
func (g *DateGate) Step(cur time.Time, dir Direction) (time.Time, bool) {
	switch dir {
	case Backward:
		if !g.CanStepBackward(cur) {
			return cur, false
		}
		return cur.AddDate(0, 0, -1), true
	case Forward:
		if !g.CanStepForward(cur) {
			return cur, false
		}
		return cur.AddDate(0, 0, 1), true
	default:
		return cur, false
	}
}

// Contains 判断 date 是否在目标月份内或为预告日。
func (g *DateGate) Contains(date time.Time) bool {
	return g.inMonth(date) || g.isPreview(date)
}

// Days 依次列出预告日和目标月份的每一天。
func (g *DateGate) Days() []time.Time {
	count := g.rng.DaysInMonth()
	days := make([]time.Time, 0, count+1)
	days = append(days, g.rng.PreviewDate())
	first := g.rng.FirstDay()
	for i := 0; i < count; i++ {
		days = append(days, first.AddDate(0, 0, i))
	}
	return days
}

// DateForGalleryID 是 GalleryIDFor 的逆运算。
func (g *DateGate) DateForGalleryID(id int) (time.Time, error) {
	if id == PreviewGalleryID {
		return g.rng.PreviewDate(), nil
	}
	if id < 1 || id > g.rng.DaysInMonth() {
		return time.Time{}, fmt.Errorf("%w: gallery %d", ErrDateOutOfRange, id)
	}
	return g.rng.FirstDay().AddDate(0, 0, id-1), nil
}

// ParseDate 按 gate 的时区解析 YYYY-MM-DD，并检查日期是否可导航。
func (g *DateGate) ParseDate(raw string) (time.Time, error) {
	date, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), g.rng.location())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	if !g.Contains(date) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrDateOutOfRange, date.Format(DateLayout))
	}
	return date, nil
}

// DefaultDate 在今天可导航时返回今天，否则返回目标月份 1 日。
func (g *DateGate) DefaultDate(now time.Time) time.Time {
	today := normalizeToDate(now.In(g.rng.location()))
	if g.Contains(today) {
		return today
	}
	return g.rng.FirstDay()
}

func (g *DateGate) inMonth(date time.Time) bool {
	return date.Year() == g.rng.Year && date.Month() == g.rng.Month
}

func (g *DateGate) isFirst(date time.Time) bool {
	return g.inMonth(date) && date.Day() == 1
}

func (g *DateGate) isPreview(date time.Time) bool {
	return sameDay(date, g.rng.PreviewDate())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func normalizeToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
