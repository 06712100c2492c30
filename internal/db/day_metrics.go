package db

import "time"

// DayStatistic 汇总某一天图集页面的浏览数据，DayKey 形如 2025-07-04。
type DayStatistic struct {
	ID             uint   `gorm:"primaryKey"`
	DayKey         string `gorm:"size:10;uniqueIndex"`
	GalleryID      int
	PageViews      uint64 `gorm:"default:0"`
	UniqueVisitors uint64 `gorm:"default:0"`
	LastViewedAt   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName 指定自定义表名，避免自动复数化导致的歧义。
func (DayStatistic) TableName() string {
	return "day_statistics"
}

// DayVisit 记录访客层面的浏览历史，用于 UV/PV 去重。
type DayVisit struct {
	ID            uint   `gorm:"primaryKey"`
	DayKey        string `gorm:"size:10;uniqueIndex:idx_day_visitor"`
	VisitorID     string `gorm:"size:64;uniqueIndex:idx_day_visitor"`
	LastViewedAt  time.Time
	LastCountedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName 指定自定义表名。
func (DayVisit) TableName() string {
	return "day_visits"
}
