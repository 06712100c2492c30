package service

import (
	"errors"
	"strings"
	"time"

	"github.com/memecal/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultViewDedupWindow = 30 * time.Minute

// ErrInvalidDayView 表示缺少访客或日期标识。
var ErrInvalidDayView = errors.New("invalid visitor or day key")

// AnalyticsService 负责记录每日图集页面的浏览统计。
type AnalyticsService struct {
	db          *gorm.DB
	dedupWindow time.Duration
}

// NewAnalyticsService 创建 AnalyticsService，默认去重窗口为 30 分钟。
func NewAnalyticsService(gdb *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: gdb, dedupWindow: defaultViewDedupWindow}
}

// WithDedupWindow 允许在测试或特定场景下调整去重窗口。
func (s *AnalyticsService) WithDedupWindow(d time.Duration) *AnalyticsService {
	if d <= 0 {
		return s
	}
	s.dedupWindow = d
	return s
}

// RecordDayView 记录访客对某一天的浏览。同一访客在去重窗口内的重复浏览不计入 PV。
func (s *AnalyticsService) RecordDayView(dayKey string, galleryID int, visitorID string, now time.Time) (*db.DayStatistic, error) {
	dayKey = strings.TrimSpace(dayKey)
	if visitorID == "" || dayKey == "" {
		return nil, ErrInvalidDayView
	}

	var stats db.DayStatistic

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		visit := db.DayVisit{
			DayKey:        dayKey,
			VisitorID:     visitorID,
			LastViewedAt:  now,
			LastCountedAt: now,
		}
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day_key"}, {Name: "visitor_id"}},
			DoNothing: true,
		}).Create(&visit)
		if insert.Error != nil {
			return insert.Error
		}

		isNewVisitor := insert.RowsAffected == 1
		countView := true
		if !isNewVisitor {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("day_key = ? AND visitor_id = ?", dayKey, visitorID).
				First(&visit).Error; err != nil {
				return err
			}
			countView = now.Sub(visit.LastCountedAt) >= s.dedupWindow
			visit.LastViewedAt = now
			if countView {
				visit.LastCountedAt = now
			}
			if err := tx.Save(&visit).Error; err != nil {
				return err
			}
		}

		statsResult := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("day_key = ?", dayKey).
			First(&stats)

		switch {
		case errors.Is(statsResult.Error, gorm.ErrRecordNotFound):
			stats = db.DayStatistic{DayKey: dayKey, GalleryID: galleryID}
			if err := tx.Create(&stats).Error; err != nil {
				return err
			}
		case statsResult.Error != nil:
			return statsResult.Error
		}

		if countView {
			stats.PageViews++
		}
		if isNewVisitor {
			stats.UniqueVisitors++
		}
		stats.GalleryID = galleryID
		stats.LastViewedAt = now

		return tx.Save(&stats).Error
	}); err != nil {
		return nil, err
	}

	return &stats, nil
}

// DayStatsMap 返回指定日期的统计数据，没有浏览记录的日期不会出现在结果中。
func (s *AnalyticsService) DayStatsMap(dayKeys []string) (map[string]*db.DayStatistic, error) {
	result := make(map[string]*db.DayStatistic, len(dayKeys))
	if len(dayKeys) == 0 {
		return result, nil
	}

	var stats []db.DayStatistic
	if err := s.db.Where("day_key IN ?", dayKeys).Find(&stats).Error; err != nil {
		return nil, err
	}

	for i := range stats {
		stat := stats[i]
		result[stat.DayKey] = &stat
	}

	return result, nil
}

// SiteOverview 汇总全站 UV/PV 及热门日期。
type SiteOverview struct {
	TotalPageViews      uint64            `json:"totalPageViews"`
	TotalUniqueVisitors uint64            `json:"totalUniqueVisitors"`
	TopDays             []db.DayStatistic `json:"topDays"`
}

// Overview 返回全站汇总，limit 控制热门日期数量。
func (s *AnalyticsService) Overview(limit int) (SiteOverview, error) {
	if limit <= 0 {
		limit = 5
	}

	var overview SiteOverview

	var totals struct {
		PageViews uint64
	}
	if err := s.db.Model(&db.DayStatistic{}).
		Select("COALESCE(SUM(page_views), 0) AS page_views").
		Scan(&totals).Error; err != nil {
		return overview, err
	}
	overview.TotalPageViews = totals.PageViews

	var uniqueVisitors int64
	if err := s.db.Model(&db.DayVisit{}).Distinct("visitor_id").Count(&uniqueVisitors).Error; err != nil {
		return overview, err
	}
	overview.TotalUniqueVisitors = uint64(uniqueVisitors)

	if err := s.db.Order("page_views DESC").Order("day_key ASC").Limit(limit).Find(&overview.TopDays).Error; err != nil {
		return overview, err
	}

	return overview, nil
}
