package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memecal/internal/service"
)

// EmptyGalleryMessage 是当天没有任何 meme 时展示的提示。
const EmptyGalleryMessage = "¡No hay memes para este día aún!"

type calendarDay struct {
	Date      string
	Label     string
	GalleryID int
	Preview   bool
	Today     bool
	PageViews uint64
}

type dayNavigation struct {
	CanPrev bool    `json:"canPrev"`
	CanNext bool    `json:"canNext"`
	Prev    *string `json:"prev"`
	Next    *string `json:"next"`
}

type dayPayload struct {
	Date       string                 `json:"date"`
	GalleryID  int                    `json:"galleryId"`
	Title      string                 `json:"title"`
	Kind       service.ResolutionKind `json:"kind"`
	Items      []service.GalleryItem  `json:"items"`
	Navigation dayNavigation          `json:"navigation"`
}

// ShowIndex 渲染目标月份的日期列表，包括预告日。
func (a *API) ShowIndex(c *gin.Context) {
	rng := a.gate.Range()
	today := a.now().In(rng.FirstDay().Location())

	days := a.gate.Days()
	keys := make([]string, 0, len(days))
	for _, d := range days {
		keys = append(keys, d.Format(service.DateLayout))
	}

	stats, err := a.analytics.DayStatsMap(keys)
	if err != nil {
		c.Error(err)
	}

	entries := make([]calendarDay, 0, len(days))
	for i, d := range days {
		id := a.gate.GalleryIDFor(d)
		entry := calendarDay{
			Date:      keys[i],
			Label:     service.DayLabel(a.month, id),
			GalleryID: id,
			Preview:   id == service.PreviewGalleryID,
			Today:     keys[i] == today.Format(service.DateLayout),
		}
		if stat := stats[keys[i]]; stat != nil {
			entry.PageViews = stat.PageViews
		}
		entries = append(entries, entry)
	}

	month := service.MonthName(rng.Month)
	a.renderHTML(c, http.StatusOK, "index.html", gin.H{
		"title":      "Calendario",
		"monthTitle": fmt.Sprintf("%s%s %d", strings.ToUpper(month[:1]), month[1:], rng.Year),
		"days":       entries,
	})
}

// ShowDay 渲染某一天的图集。
func (a *API) ShowDay(c *gin.Context) {
	date, ok := a.dayParam(c)
	if !ok {
		return
	}

	view, err := service.NewDayView(a.gate, a.galleries, date)
	if err != nil {
		a.renderError(c, http.StatusNotFound, "Día no encontrado", "Este día no forma parte del calendario.")
		return
	}
	res := view.Load(c.Request.Context())

	a.recordView(c, date, res.GalleryID)

	heading := service.DayHeading(a.month, res.GalleryID)
	a.renderHTML(c, http.StatusOK, "day.html", gin.H{
		"title":        heading,
		"heading":      heading,
		"date":         date.Format(service.DateLayout),
		"items":        res.Items,
		"emptyMessage": EmptyGalleryMessage,
		"canPrev":      view.CanStep(service.Backward),
		"canNext":      view.CanStep(service.Forward),
	})
}

// StepDay 按方向跳转到相邻日期；不允许的跳转停留在当前日期。
func (a *API) StepDay(c *gin.Context) {
	date, ok := a.dayParam(c)
	if !ok {
		return
	}

	dir, err := service.ParseDirection(c.Param("direction"))
	if err != nil {
		a.renderError(c, http.StatusBadRequest, "Dirección inválida", "Usa prev o next.")
		return
	}

	view, err := service.NewDayView(a.gate, a.galleries, date)
	if err != nil {
		a.renderError(c, http.StatusNotFound, "Día no encontrado", "Este día no forma parte del calendario.")
		return
	}
	next, _ := view.Step(dir)
	c.Redirect(http.StatusFound, "/days/"+next.Format(service.DateLayout))
}

// GetDay 以 JSON 形式返回某一天的图集与导航状态。
func (a *API) GetDay(c *gin.Context) {
	date, err := a.gate.ParseDate(c.Param("date"))
	if err != nil {
		respondError(c, http.StatusNotFound, "date is outside the calendar")
		return
	}

	view, err := service.NewDayView(a.gate, a.galleries, date)
	if err != nil {
		respondError(c, http.StatusNotFound, "date is outside the calendar")
		return
	}
	res := view.Load(c.Request.Context())

	nav := dayNavigation{
		CanPrev: view.CanStep(service.Backward),
		CanNext: view.CanStep(service.Forward),
	}
	if prev, ok := a.gate.Step(date, service.Backward); ok {
		key := prev.Format(service.DateLayout)
		nav.Prev = &key
	}
	if next, ok := a.gate.Step(date, service.Forward); ok {
		key := next.Format(service.DateLayout)
		nav.Next = &key
	}

	c.JSON(http.StatusOK, dayPayload{
		Date:       date.Format(service.DateLayout),
		GalleryID:  res.GalleryID,
		Title:      service.DayHeading(a.month, res.GalleryID),
		Kind:       res.Kind,
		Items:      res.Items,
		Navigation: nav,
	})
}

func (a *API) dayParam(c *gin.Context) (time.Time, bool) {
	date, err := a.gate.ParseDate(c.Param("date"))
	if err != nil {
		a.renderError(c, http.StatusNotFound, "Día no encontrado", "Este día no forma parte del calendario.")
		return time.Time{}, false
	}
	return date, true
}

func (a *API) recordView(c *gin.Context, date time.Time, galleryID int) {
	if a.analytics == nil {
		return
	}
	visitorID := a.ensureVisitorID(c)
	if _, err := a.analytics.RecordDayView(date.Format(service.DateLayout), galleryID, visitorID, a.now().UTC()); err != nil {
		c.Error(err) // 不中断渲染，但记录错误
	}
}
