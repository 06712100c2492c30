package router

import (
	"html/template"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/memecal/internal/handler"
	"github.com/memecal/internal/logging"
	"github.com/memecal/internal/service"
	"github.com/memecal/web"
)

const sessionName = "memecal_session"

// Options 描述构建路由所需的依赖。
type Options struct {
	API           *handler.API
	SessionSecret string
	// MemesDir 非空时在 MemesURLPath 下直接提供本地图集文件。
	MemesDir     string
	MemesURLPath string
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger())

	// 配置会话中间件
	secret := strings.TrimSpace(opts.SessionSecret)
	if secret == "" {
		secret = "memecal-dev-secret"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: 7 * 24 * 60 * 60})
	r.Use(sessions.Sessions(sessionName, store))

	// 加载模板并添加自定义函数
	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
	}).ParseFS(web.Templates, "template/*.html"))
	r.SetHTMLTemplate(tmpl)

	// 本地图集静态文件
	if dir := strings.TrimSpace(opts.MemesDir); dir != "" {
		r.Static(service.MediaPrefix(opts.MemesURLPath), dir)
	}

	api := opts.API

	r.GET("/healthz", api.HealthCheck)

	r.GET("/", api.ShowIndex)
	r.GET("/days/:date", api.ShowDay)
	r.GET("/days/:date/step/:direction", api.StepDay)
	r.GET("/days/:date/memes/:id", api.ShowMeme)
	r.GET("/days/:date/memes/:id/download", api.DownloadMeme)
	r.GET("/api/days/:date", api.GetDay)

	r.GET("/contribute", api.ShowContribute)
	r.GET("/contribute/redirect", api.RedirectContribute)

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.GET("/login", api.ShowLoginPage)
		admin.POST("/login", api.Login)
		admin.GET("/logout", handler.Logout)

		// 需要认证的后台路由
		auth := admin.Group("")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("", api.ShowDashboard)
			auth.GET("/dashboard", api.ShowDashboard)

			adminAPI := auth.Group("/api")
			{
				adminAPI.GET("/settings", api.GetSystemSettings)
				adminAPI.PUT("/settings", api.UpdateSystemSettings)
				adminAPI.GET("/stats", api.GetStats)
			}
		}
	}

	return r
}
