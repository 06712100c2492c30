package web

import "embed"

// Templates 包含前台与后台的全部 HTML 模板。
//
//go:embed template/*.html
var Templates embed.FS
