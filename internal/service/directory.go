package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/creamcroissant/inboundpanel/internal/repository"
)

// DirectoryService 管理可被分配入站的用户与分组。
type DirectoryService interface {
	AddUser(ctx context.Context, email string, groupIDs []int64) (*repository.User, error)
	AddGroup(ctx context.Context, name string) (*repository.UserGroup, error)
	UserInbounds(ctx context.Context, userID int64) ([]int64, error)
}

type directoryService struct {
	users       repository.UserRepository
	groups      repository.GroupRepository
	memberships repository.MembershipRepository
}

// NewDirectoryService 组装用户/分组服务。
func NewDirectoryService(store repository.Store) DirectoryService {
	if store == nil {
		return &directoryService{}
	}
	return &directoryService{users: store.Users(), groups: store.Groups(), memberships: store.Memberships()}
}

func (s *directoryService) AddUser(ctx context.Context, email string, groupIDs []int64) (*repository.User, error) {
	if s == nil || s.users == nil || s.groups == nil {
		return nil, fmt.Errorf("directory service not configured / 用户服务未配置")
	}
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email %q / 邮箱无效", ErrInvalidInput, email)
	}
	if len(groupIDs) > 0 {
		found, err := s.groups.ExistingIDs(ctx, groupIDs)
		if err != nil {
			return nil, err
		}
		if len(found) != len(uniqueInt64(groupIDs)) {
			return nil, fmt.Errorf("%w: unknown group in %v", ErrNotFound, groupIDs)
		}
	}
	user := &repository.User{Email: email}
	if err := s.users.Create(ctx, user, groupIDs...); err != nil {
		return nil, fmt.Errorf("create user: %w", mapDirectoryError(err))
	}
	return user, nil
}

func (s *directoryService) AddGroup(ctx context.Context, name string) (*repository.UserGroup, error) {
	if s == nil || s.groups == nil {
		return nil, fmt.Errorf("directory service not configured / 用户服务未配置")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required / 分组名称不能为空", ErrInvalidInput)
	}
	group := &repository.UserGroup{Name: name}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("create group: %w", mapDirectoryError(err))
	}
	return group, nil
}

func (s *directoryService) UserInbounds(ctx context.Context, userID int64) ([]int64, error) {
	if s == nil || s.users == nil || s.memberships == nil {
		return nil, fmt.Errorf("directory service not configured / 用户服务未配置")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, mapRepoError(err)
	}
	return s.memberships.InboundIDsForUser(ctx, userID)
}

func mapDirectoryError(err error) error {
	var conflict *repository.ConflictError
	if errors.As(err, &conflict) {
		return fmt.Errorf("%w: %s already exists / 已存在", ErrInvalidInput, conflict.Field)
	}
	return err
}

func uniqueInt64(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
