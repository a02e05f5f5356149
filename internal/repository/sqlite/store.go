// 文件路径: internal/repository/sqlite/store.go
// 模块说明: 这是 internal 模块里的 store 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package sqlite

import (
	"database/sql"

	"github.com/creamcroissant/inboundpanel/internal/repository"
)

// Store wires SQLite-backed repository implementations.
type Store struct {
	db          *sql.DB
	inbounds    repository.InboundRepository
	users       repository.UserRepository
	groups      repository.GroupRepository
	memberships repository.MembershipRepository
}

// NewStore constructs a SQLite-backed repository store.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:          db,
		inbounds:    &inboundRepo{db: db},
		users:       &userRepo{db: db},
		groups:      &groupRepo{db: db},
		memberships: &membershipRepo{db: db},
	}
}

func (s *Store) Inbounds() repository.InboundRepository {
	return s.inbounds
}

func (s *Store) Users() repository.UserRepository {
	return s.users
}

func (s *Store) Groups() repository.GroupRepository {
	return s.groups
}

func (s *Store) Memberships() repository.MembershipRepository {
	return s.memberships
}

var _ repository.Store = (*Store)(nil)
