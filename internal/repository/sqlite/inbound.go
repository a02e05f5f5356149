// 文件路径: internal/repository/sqlite/inbound.go
// 模块说明: 这是 internal 模块里的 inbound 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/creamcroissant/inboundpanel/internal/repository"
)

type inboundRepo struct {
	db *sql.DB
}

const inboundColumns = `id, protocol, network, security, port, tag, remark, server_address, settings, created_at, updated_at`

func (r *inboundRepo) ListAll(ctx context.Context) ([]*repository.Inbound, error) {
	return r.List(ctx, repository.InboundFilter{})
}

// inboundWhere 把过滤条件翻译成 WHERE 子句，Limit/Offset 不在这里处理。
func inboundWhere(filter repository.InboundFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if p := strings.TrimSpace(filter.Protocol); p != "" {
		where = append(where, "protocol = ?")
		args = append(args, strings.ToUpper(p))
	}
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		where = append(where, "(tag LIKE ? OR remark LIKE ?)")
		like := "%" + kw + "%"
		args = append(args, like, like)
	}
	if len(where) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(where, " AND "), args
}

func (r *inboundRepo) List(ctx context.Context, filter repository.InboundFilter) ([]*repository.Inbound, error) {
	clause, args := inboundWhere(filter)
	query := `SELECT ` + inboundColumns + ` FROM inbounds` + clause + ` ORDER BY id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*repository.Inbound
	for rows.Next() {
		inbound, err := scanInbound(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inbound)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *inboundRepo) FindByID(ctx context.Context, id int64) (*repository.Inbound, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+inboundColumns+` FROM inbounds WHERE id = ?`, id)
	inbound, err := scanInbound(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return inbound, nil
}

func (r *inboundRepo) Create(ctx context.Context, inbound *repository.Inbound) error {
	const query = `INSERT INTO inbounds (
		protocol, network, security, port, tag, remark, server_address, settings, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().Unix()
	inbound.CreatedAt = now
	inbound.UpdatedAt = now

	return withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, query,
			inbound.Protocol,
			inbound.Network,
			inbound.Security,
			inbound.Port,
			inbound.Tag,
			inbound.Remark,
			inbound.ServerAddress,
			settingsText(inbound.Settings),
			inbound.CreatedAt,
			inbound.UpdatedAt,
		)
		if err != nil {
			return mapWriteError(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		inbound.ID = id
		return nil
	})
}

func (r *inboundRepo) Update(ctx context.Context, inbound *repository.Inbound) error {
	const query = `UPDATE inbounds SET
		protocol = ?, network = ?, security = ?, port = ?, tag = ?, remark = ?, server_address = ?,
		settings = ?, updated_at = ?
		WHERE id = ?`

	inbound.UpdatedAt = time.Now().Unix()
	return withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, query,
			inbound.Protocol,
			inbound.Network,
			inbound.Security,
			inbound.Port,
			inbound.Tag,
			inbound.Remark,
			inbound.ServerAddress,
			settingsText(inbound.Settings),
			inbound.UpdatedAt,
			inbound.ID,
		)
		if err != nil {
			return mapWriteError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (r *inboundRepo) Delete(ctx context.Context, id int64) error {
	return withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, `DELETE FROM inbounds WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

// Count returns how many rows match filter, ignoring Limit and Offset.
func (r *inboundRepo) Count(ctx context.Context, filter repository.InboundFilter) (int64, error) {
	clause, args := inboundWhere(filter)
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM inbounds`+clause, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

type inboundScanner interface {
	Scan(dest ...any) error
}

func scanInbound(scanner inboundScanner) (*repository.Inbound, error) {
	var (
		inbound  repository.Inbound
		remark   sql.NullString
		address  sql.NullString
		settings sql.NullString
	)
	if err := scanner.Scan(
		&inbound.ID,
		&inbound.Protocol,
		&inbound.Network,
		&inbound.Security,
		&inbound.Port,
		&inbound.Tag,
		&remark,
		&address,
		&settings,
		&inbound.CreatedAt,
		&inbound.UpdatedAt,
	); err != nil {
		return nil, err
	}
	inbound.Remark = remark.String
	inbound.ServerAddress = address.String
	if settings.Valid && settings.String != "" {
		inbound.Settings = []byte(settings.String)
	}
	return &inbound, nil
}

func settingsText(raw []byte) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}
