package service

import (
	"context"
	"sync"
	"time"
)

// DayView 保存当前选中的日期及其展示的图集。
// 多次解析可能重叠，以最后完成的一次为准。
type DayView struct {
	gate   *DateGate
	loader GalleryLoader

	mu      sync.Mutex
	current time.Time
	gallery Resolution
	loaded  bool
}

// NewDayView 以 date 为初始日期，date 必须在可导航范围内。
func NewDayView(gate *DateGate, loader GalleryLoader, date time.Time) (*DayView, error) {
	if !gate.Contains(date) {
		return nil, ErrDateOutOfRange
	}
	return &DayView{gate: gate, loader: loader, current: normalizeToDate(date)}, nil
}

// Current 返回当前日期。
func (v *DayView) Current() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// GalleryID 返回当前日期对应的图集标识。
func (v *DayView) GalleryID() int {
	return v.gate.GalleryIDFor(v.Current())
}

// CanStep 判断当前日期能否向 dir 方向移动。
func (v *DayView) CanStep(dir Direction) bool {
	cur := v.Current()
	if dir == Forward {
		return v.gate.CanStepForward(cur)
	}
	return v.gate.CanStepBackward(cur)
}

// Gallery 返回最后完成的解析结果，以及是否已有结果。
func (v *DayView) Gallery() (Resolution, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gallery, v.loaded
}

// Load 解析当前日期的图集并保存。
func (v *DayView) Load(ctx context.Context) Resolution {
	res := v.loader.Resolve(ctx, v.GalleryID())

	v.mu.Lock()
	v.gallery = res
	v.loaded = true
	v.mu.Unlock()
	return res
}

// Step 把当前日期向 dir 移动一天，但不解析图集。gate 拒绝时保持原状并返回 false。
func (v *DayView) Step(dir Direction) (time.Time, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	next, ok := v.gate.Step(v.current, dir)
	if ok {
		v.current = next
	}
	return v.current, ok
}

// Navigate 先 Step 再 Load；移动被拒绝时返回已有的图集。
func (v *DayView) Navigate(ctx context.Context, dir Direction) (Resolution, bool) {
	if _, ok := v.Step(dir); !ok {
		res, _ := v.Gallery()
		return res, false
	}
	return v.Load(ctx), true
}
