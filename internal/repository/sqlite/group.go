package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/creamcroissant/inboundpanel/internal/repository"
)

type groupRepo struct {
	db *sql.DB
}

func (r *groupRepo) Create(ctx context.Context, group *repository.UserGroup) error {
	group.Name = strings.TrimSpace(group.Name)
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	return withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, `INSERT INTO user_groups (name, created_at) VALUES (?, ?)`, group.Name, group.CreatedAt)
		if err != nil {
			return mapWriteError(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		group.ID = id
		return nil
	})
}

func (r *groupRepo) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return existingIDs(ctx, r.db, "user_groups", ids)
}
