package handler

import (
	"time"

	"github.com/memecal/internal/db"
	"github.com/memecal/internal/service"
)

type analyticsProvider interface {
	Overview(limit int) (service.SiteOverview, error)
	DayStatsMap(dayKeys []string) (map[string]*db.DayStatistic, error)
	RecordDayView(dayKey string, galleryID int, visitorID string, now time.Time) (*db.DayStatistic, error)
}

// SetAnalytics 替换统计服务，主要面向测试场景。
func (a *API) SetAnalytics(provider analyticsProvider) {
	a.analytics = provider
}
