// Package main 初始化数据库表结构
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"domain-copilot-api/internal/config"
	"domain-copilot-api/internal/infrastructure/persistence/postgres"
	"domain-copilot-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting schema bootstrap...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Store.Driver != "postgres" {
		fmt.Printf("Store driver is %q, nothing to bootstrap.\n", cfg.Store.Driver)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// 1. 执行 DDL：多语句脚本走 lib/pq 的简单查询协议
	db, err := sql.Open("postgres", cfg.Database.Postgres.DSN())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, postgres.Schema); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}
	fmt.Println("Schema applied.")

	// 2. 通过应用自身的连接池确认表可读
	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	names, err := postgres.NewProjectRepository(dataLayer.PgClient).ListNames(ctx)
	if err != nil {
		log.Fatalf("failed to read projects: %v", err)
	}
	fmt.Printf("Bootstrap completed successfully, %d project(s) present.\n", len(names))
}
