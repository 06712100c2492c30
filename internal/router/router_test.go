package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memecal/internal/db"
	"github.com/memecal/internal/handler"
	"github.com/memecal/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testContributeURL = "https://github.com/example/memes#contribuir"

func writeMeme(t *testing.T, root string, galleryID int, name, content string) {
	t.Helper()
	dir := filepath.Join(root, fmt.Sprint(galleryID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	return setupTestRouterWithPrefix(t, "/memes")
}

func setupTestRouterWithPrefix(t *testing.T, memesURLPath string) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	memes := t.TempDir()
	writeMeme(t, memes, 4, "1.jpg", "jpeg-one")
	writeMeme(t, memes, 4, "meme.png", "png")
	writeMeme(t, memes, 0, service.ManifestFilename, `{"memes":[{"filename":"teaser.jpg","title":"Ya casi","submittedBy":"Ana"}]}`)
	writeMeme(t, memes, 0, "teaser.jpg", "teaser")
	writeMeme(t, memes, 5, service.ManifestFilename, `{"memes":[{"filename":"ghost.jpg"}]}`)

	gate := service.NewDateGate(service.TargetRange{Year: 2025, Month: time.July, Location: time.UTC})
	resolver := service.NewGalleryResolver(service.NewLocalSource(memes, memesURLPath), time.July, 4)
	api := handler.NewAPI(gdb, gate, resolver, testContributeURL)
	api.SetClock(func() time.Time { return time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC) })

	r := SetupRouter(Options{
		API:           api,
		SessionSecret: "test-secret",
		MemesDir:      memes,
		MemesURLPath:  memesURLPath,
	})
	return r, gdb
}

func doRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestSetupRouterServesLocalMemes(t *testing.T) {
	r, _ := setupTestRouter(t)

	rr := doRequest(r, httptest.NewRequest(http.MethodGet, "/memes/4/1.jpg", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != "jpeg-one" {
		t.Fatalf("unexpected body, got %q", rr.Body.String())
	}
}

func TestRootMemesURLPathKeepsRefsAndStaticInSync(t *testing.T) {
	r, _ := setupTestRouterWithPrefix(t, "/")

	rr := doRequest(r, httptest.NewRequest(http.MethodGet, "/days/2025-07-04", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `src="/memes/4/1.jpg"`) {
		t.Fatalf("expected media refs under /memes, got %s", rr.Body.String())
	}

	rr = doRequest(r, httptest.NewRequest(http.MethodGet, "/memes/4/1.jpg", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected static file under /memes, got %d", rr.Code)
	}
}

func TestIndexListsPreviewAndMonth(t *testing.T) {
	r, _ := setupTestRouter(t)

	rr := doRequest(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Julio 2025", `href="/days/2025-06-30"`, "Julio se acerca", `href="/days/2025-07-31"`, "31 de julio"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected index to contain %q", want)
		}
	}
	if strings.Contains(body, `href="/days/2025-08-01"`) {
		t.Fatal("index must not link past the end of the month")
	}
}

func TestShowDayRendersGalleryAndRecordsVisit(t *testing.T) {
	r, gdb := setupTestRouter(t)

	rr := doRequest(r, httptest.NewRequest(http.MethodGet, "/days/2025-07-04", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Memes del 4 de julio") {
		t.Fatalf("missing heading in %q", body)
	}
	if !strings.Contains(body, `src="/memes/4/1.jpg"`) || !strings.Contains(body, `src="/memes/4/meme.png"`) {
		t.Fatalf("expected both probed memes in body")
	}
	if strings.Index(body, "/memes/4/1.jpg") > strings.Index(body, "/memes/4/meme.png") {
		t.Fatal("expected candidate order 1.jpg before meme.png")
	}
	if !strings.Contains(rr.Header().Get("Set-Cookie"), "mc_visitor_id=") {
		t.Fatalf("expected visitor cookie, got %q", rr.Header().Get("Set-Cookie"))
	}

	var stat db.DayStatistic
	if err := gdb.Where("day_key = ?", "2025-07-04").First(&stat).Error; err != nil {
		t.Fatalf("expected day statistic: %v", err)
	}
	if stat.PageViews != 1 || stat.GalleryID != 4 {
		t.Fatalf("unexpected statistic: %+v", stat)
	}
}

func TestShowDayEmptyState(t *testing.T) {
	r, _ := setupTestRouter(t)

	rr := doRequest(r, httptest.NewRequest(http.MethodGet, "/days/2025-07-10", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), handler.EmptyGalleryMessage) {
		t.Fatalf("expected empty state message")
	}
}

func TestShowDayOutOfRange(t *testing.T) {
	r, _ := setupTestRouter(t)

	for _, path := range []string{"/days/2025-08-01", "/days/2025-06-29", "/days/2024-07-04", "/days/not-a-date"} {
		rr := doRequest(r, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rr.Code)
		}
	}
}

func TestStepDay(t *testing.T) {
	r, _ := setupTestRouter(t)

	tests := []struct {
		path     string
		location string
	}{
		{"/days/2025-07-04/step/next", "/days/2025-07-05"},
		{"/days/2025-07-04/step/prev", "/days/2025-07-03"},
		{"/days/2025-07-01/step/prev", "/days/2025-06-30"},
		{"/days/2025-06-30/step/next", "/days/2025-07-01"},
		{"/days/2025-06-30/step/prev", "/days/2025-06-30"},
		{"/days/2025-07-31/step/next", "/days/2025-07-31"},
	}

	for _, tt := range tests {
		rr := doRequest(r, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rr.Code != http.StatusFound {
			t.Fatalf("%s: expected 302, got %d", tt.path, rr.Code)
		}
		if got := rr.Header().Get("Location"); got != tt.location {
			t.Fatalf("%s: expected redirect to %s, got %s", tt.path, tt.location, got)
		}
	}

	rr := doRequest(r, httptest.NewRequest(http.MethodGet, "/days/2025-07-04/step/sideways", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown direction, got %d", rr.Code)
	}
}

func TestGetDayJSON(t *testing.T) {
	r, _ := setupTestRouter(t)

	rr := doRequest(r, httptest.NewRequest(http.MethodGet, "/api/days/2025-06-30", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var payload struct {
		Date      string `json:"date"`
		GalleryID int    `json:"galleryId"`
		Title     string `json:"title"`
		Kind      string `json:"kind"`
		Items     []struct {
			ID          int    `json:"id"`
			Title       string `json:"title"`
			ImageURL    string `json:"imageUrl"`
			SubmittedBy string `json:"submittedBy"`
			Verified    bool   `json:"verified"`
		} `json:"items"`
		Navigation struct {
			CanPrev bool    `json:"canPrev"`
			CanNext bool    `json:"canNext"`
			Prev    *string `json:"prev"`
			Next    *string `json:"next"`
		} `json:"navigation"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if payload.GalleryID != service.PreviewGalleryID || payload.Kind != "manifest" || payload.Title != "Julio se acerca" {
		t.Fatalf("unexpected payload header: %+v", payload)
	}
	if len(payload.Items) != 1 || payload.Items[0].Title != "Ya casi" || payload.Items[0].SubmittedBy != "Ana" || payload.Items[0].ImageURL != "/memes/0/teaser.jpg" {
		t.Fatalf("unexpected items: %+v", payload.Items)
	}
	if payload.Navigation.CanPrev || !payload.Navigation.CanNext || payload.Navigation.Prev != nil || payload.Navigation.Next == nil || *payload.Navigation.Next != "2025-07-01" {
		t.Fatalf("unexpected navigation: %+v", payload.Navigation)
	}

	rr = doRequest(r, httptest.NewRequest(http.MethodGet, "/api/days/2025-08-01", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestShowMemeClampsZoom(t *testing.T) {
	r, _ := setupTestRouter(t)

	rr := doRequest(r, httptest.NewRequest(http.MethodGet, "/days/2025-07-04/memes/1?zoom=9", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "300%") || !strings.Contains(body, "?zoom=3.0") {
		t.Fatalf("expected zoom clamped to 3.0")
	}

	rr = doRequest(r, httptest.NewRequest(http.MethodGet, "/days/2025-07-04/memes/3", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown meme, got %d", rr.Code)
	}
}

func TestDownloadMeme(t *testing.T) {
	r, _ := setupTestRouter(t)

	rr := doRequest(r, httptest.NewRequest(http.MethodGet, "/days/2025-07-04/memes/1/download", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="meme_del_4_de_julio.jpg"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if rr.Body.String() != "jpeg-one" {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}

	// the manifest lists a file that does not exist: fall back to the media ref
	rr = doRequest(r, httptest.NewRequest(http.MethodGet, "/days/2025-07-05/memes/1/download", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect fallback, got %d", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/memes/5/ghost.jpg" {
		t.Fatalf("unexpected fallback location %q", got)
	}
}

func TestContribute(t *testing.T) {
	r, _ := setupTestRouter(t)

	rr := doRequest(r, httptest.NewRequest(http.MethodGet, "/contribute?date=2025-07-04", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "4 de julio") || !strings.Contains(rr.Body.String(), "<h2") {
		t.Fatalf("expected rendered guide with target day")
	}

	rr = doRequest(r, httptest.NewRequest(http.MethodGet, "/contribute/redirect", nil))
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != testContributeURL {
		t.Fatalf("unexpected redirect %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestHealthCheck(t *testing.T) {
	r, _ := setupTestRouter(t)

	rr := doRequest(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestAdminRequiresLogin(t *testing.T) {
	r, gdb := setupTestRouter(t)

	rr := doRequest(r, httptest.NewRequest(http.MethodGet, "/admin/api/settings", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	rr = doRequest(r, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/admin/login" {
		t.Fatalf("expected redirect to login, got %d", rr.Code)
	}

	if err := db.EnsureUser(gdb, "admin", "s3cret"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	bad := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(url.Values{"username": {"admin"}, "password": {"nope"}}.Encode()))
	bad.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if rr := doRequest(r, bad); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rr.Code)
	}

	login := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(url.Values{"username": {"admin"}, "password": {"s3cret"}}.Encode()))
	login.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = doRequest(r, login)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected login redirect, got %d", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected session cookie")
	}

	update := httptest.NewRequest(http.MethodPut, "/admin/api/settings", strings.NewReader(`{"siteName":"Memes","contributeUrl":"https://example.com/c"}`))
	update.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		update.AddCookie(c)
	}
	rr = doRequest(r, update)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected settings update to succeed, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(r, httptest.NewRequest(http.MethodGet, "/contribute/redirect", nil))
	if rr.Header().Get("Location") != "https://example.com/c" {
		t.Fatalf("expected updated contribute url, got %q", rr.Header().Get("Location"))
	}

	stats := httptest.NewRequest(http.MethodGet, "/admin/api/stats", nil)
	for _, c := range cookies {
		stats.AddCookie(c)
	}
	if rr := doRequest(r, stats); rr.Code != http.StatusOK {
		t.Fatalf("expected stats 200, got %d", rr.Code)
	}
}
