// 文件路径: internal/repository/sqlite/membership.go
// 模块说明: 这是 internal 模块里的 membership 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/creamcroissant/inboundpanel/internal/repository"
)

type membershipRepo struct {
	db *sql.DB
}

func (r *membershipRepo) AssignToUsers(ctx context.Context, inboundIDs, userIDs []int64) ([]int64, error) {
	return r.assign(ctx, "users", "user_inbounds", "user_id", inboundIDs, userIDs)
}

func (r *membershipRepo) AssignToGroups(ctx context.Context, inboundIDs, groupIDs []int64) ([]int64, error) {
	return r.assign(ctx, "user_groups", "group_inbounds", "group_id", inboundIDs, groupIDs)
}

// assign 先过滤掉不存在的目标，再在一个事务里写入授权关系。
func (r *membershipRepo) assign(ctx context.Context, targetTable, linkTable, column string, inboundIDs, targetIDs []int64) ([]int64, error) {
	inboundIDs = uniqueIDs(inboundIDs)
	if len(inboundIDs) == 0 || len(targetIDs) == 0 {
		return []int64{}, nil
	}
	existing, err := existingIDs(ctx, r.db, targetTable, targetIDs)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", targetTable, err)
	}
	if len(existing) == 0 {
		return existing, nil
	}

	query := `INSERT OR IGNORE INTO ` + linkTable + ` (` + column + `, inbound_id, created_at) VALUES (?, ?, ?)`
	now := time.Now().Unix()
	err = withRetry(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, target := range existing {
			for _, inboundID := range inboundIDs {
				if _, err := stmt.ExecContext(ctx, target, inboundID, now); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func (r *membershipRepo) InboundIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	const query = `SELECT inbound_id FROM user_inbounds WHERE user_id = ?
		UNION
		SELECT gi.inbound_id FROM group_inbounds gi
		JOIN user_group_members m ON m.group_id = gi.group_id
		WHERE m.user_id = ?
		ORDER BY 1 ASC`
	rows, err := r.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

var _ repository.MembershipRepository = (*membershipRepo)(nil)
