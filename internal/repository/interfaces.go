// 文件路径: internal/repository/interfaces.go
// 模块说明: 这是 internal 模块里的 interfaces 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package repository

import "context"

// Store 暴露每个聚合根对应的仓储接口。
type Store interface {
	Inbounds() InboundRepository
	Users() UserRepository
	Groups() GroupRepository
	Memberships() MembershipRepository
}

// InboundRepository 定义入站配置的数据访问方法。
type InboundRepository interface {
	ListAll(ctx context.Context) ([]*Inbound, error)
	List(ctx context.Context, filter InboundFilter) ([]*Inbound, error)
	FindByID(ctx context.Context, id int64) (*Inbound, error)
	Create(ctx context.Context, inbound *Inbound) error
	Update(ctx context.Context, inbound *Inbound) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context, filter InboundFilter) (int64, error)
}

// UserRepository 定义用户相关数据访问方法。
type UserRepository interface {
	// Create inserts the user and its group memberships atomically.
	Create(ctx context.Context, user *User, groupIDs ...int64) error
	FindByID(ctx context.Context, id int64) (*User, error)
	// ExistingIDs returns the subset of ids that exist, in ascending order.
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)
}

// GroupRepository 管理用户分组。
type GroupRepository interface {
	Create(ctx context.Context, group *UserGroup) error
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)
}

// MembershipRepository 负责把入站分配给用户和分组。
type MembershipRepository interface {
	// AssignToUsers grants every inbound to every existing user and returns the ids of
	// users that received the grant. Unknown user ids are skipped.
	AssignToUsers(ctx context.Context, inboundIDs, userIDs []int64) ([]int64, error)
	AssignToGroups(ctx context.Context, inboundIDs, groupIDs []int64) ([]int64, error)
	// InboundIDsForUser lists inbounds granted directly or through a group.
	InboundIDsForUser(ctx context.Context, userID int64) ([]int64, error)
}
