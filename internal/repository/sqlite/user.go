// 文件路径: internal/repository/sqlite/user.go
// 模块说明: 这是 internal 模块里的 user 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creamcroissant/inboundpanel/internal/repository"
)

type userRepo struct {
	db *sql.DB
}

// Create 在同一个事务里插入用户和分组成员关系，任何一步失败都不留下用户行。
func (r *userRepo) Create(ctx context.Context, user *repository.User, groupIDs ...int64) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().Unix()
	}
	groupIDs = uniqueIDs(groupIDs)
	return withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck

		res, err := tx.ExecContext(ctx, `INSERT INTO users (email, created_at) VALUES (?, ?)`, user.Email, user.CreatedAt)
		if err != nil {
			return mapWriteError(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for _, groupID := range groupIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO user_group_members (group_id, user_id) VALUES (?, ?)`, groupID, id); err != nil {
				return fmt.Errorf("add user to group %d: %w", groupID, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		user.ID = id
		return nil
	})
}

func (r *userRepo) FindByID(ctx context.Context, id int64) (*repository.User, error) {
	var user repository.User
	err := r.db.QueryRowContext(ctx, `SELECT id, email, created_at FROM users WHERE id = ?`, id).
		Scan(&user.ID, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return existingIDs(ctx, r.db, "users", ids)
}

// existingIDs 返回 table 中真实存在的 id。
func existingIDs(ctx context.Context, db *sql.DB, table string, ids []int64) ([]int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []int64{}, nil
	}
	query := `SELECT id FROM ` + table + ` WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]int64, 0, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
