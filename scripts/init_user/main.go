package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/memecal/internal/config"
	"github.com/memecal/internal/db"
)

// 创建后台管理员账号；账号已存在时不做任何修改。
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	var dbPath, username, password string
	flag.StringVar(&dbPath, "db", cfg.DatabasePath, "sqlite db path")
	flag.StringVar(&username, "username", "admin", "admin username")
	flag.StringVar(&password, "password", os.Getenv("ADMIN_PASSWORD"), "admin password (or ADMIN_PASSWORD)")
	flag.Parse()

	if strings.TrimSpace(password) == "" {
		fmt.Fprintln(os.Stderr, "a password is required: pass -password or set ADMIN_PASSWORD")
		os.Exit(2)
	}

	// 初始化数据库
	if err := db.Init(dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "init db: %v\n", err)
		os.Exit(1)
	}

	if err := db.EnsureUser(db.DB, username, password); err != nil {
		fmt.Fprintf(os.Stderr, "create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("admin user %q is ready\n", strings.TrimSpace(username))
}
