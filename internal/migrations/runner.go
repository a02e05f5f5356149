// 文件路径: internal/migrations/runner.go
// 模块说明: 这是 internal 模块里的 runner 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

var setupOnce sync.Once

func setup() {
	setupOnce.Do(func() {
		goose.SetBaseFS(SQLite)
		if err := goose.SetDialect("sqlite3"); err != nil {
			panic(fmt.Sprintf("goose dialect: %v", err))
		}
	})
}

// Up migrates the SQLite schema to the latest version.
func Up(db *sql.DB) error {
	return UpContext(context.Background(), db)
}

// UpContext is Up with a caller supplied context.
func UpContext(ctx context.Context, db *sql.DB) error {
	setup()
	return goose.UpContext(ctx, db, "sqlite")
}

// Down rolls back a single migration.
func Down(db *sql.DB) error {
	setup()
	return goose.DownContext(context.Background(), db, "sqlite")
}

// Status prints migration status.
func Status(db *sql.DB) error {
	setup()
	return goose.StatusContext(context.Background(), db, "sqlite")
}

// Version 返回当前数据库的迁移版本。
func Version(db *sql.DB) (int64, error) {
	setup()
	return goose.GetDBVersionContext(context.Background(), db)
}
