package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecolink-dev/ecolink/internal/auth"
	"github.com/ecolink-dev/ecolink/internal/model"
	"github.com/ecolink-dev/ecolink/internal/repository"
)

var (
	ErrRoleNotAllowed = errors.New("role not allowed")
	ErrSelfDemotion   = errors.New("cannot demote yourself")
)

var allowedRoles = map[string]bool{
	model.RoleCitizen:      true,
	model.RoleOrganization: true,
	model.RoleAdmin:        true,
}

// AdminService 特权用户管理：改角色（带吊销）、改档案，全部落审计
type AdminService interface {
	SetRole(ctx context.Context, adminUID, targetUID, role string) error
	UpdateUser(ctx context.Context, adminUID, targetUID, name, city, phone string) error
	SetAccountState(ctx context.Context, adminUID, targetUID, state string) error
	ListUsers(ctx context.Context, page, pageSize int) ([]*model.User, error)
}

type adminService struct {
	users       repository.UserRepository
	audit       repository.AuditRepository
	revocations *auth.RevocationStore
}

func NewAdminService(users repository.UserRepository, audit repository.AuditRepository, revocations *auth.RevocationStore) AdminService {
	return &adminService{users: users, audit: audit, revocations: revocations}
}

func (s *adminService) SetRole(ctx context.Context, adminUID, targetUID, role string) error {
	if !allowedRoles[role] {
		return ErrRoleNotAllowed
	}
	// 不允许把自己降出 admin
	if targetUID == adminUID && role != model.RoleAdmin {
		return ErrSelfDemotion
	}
	if err := s.users.SetRole(ctx, targetUID, role); err != nil {
		return err
	}
	// 旧令牌仍带旧角色，强制重新登录
	if err := s.revocations.Revoke(ctx, targetUID); err != nil {
		return err
	}
	return s.audit.Add(ctx, "setRole", targetUID, adminUID, role, "")
}

func (s *adminService) UpdateUser(ctx context.Context, adminUID, targetUID, name, city, phone string) error {
	if err := s.users.UpdateProfile(ctx, targetUID, name, city, phone); err != nil {
		return err
	}
	detail := fmt.Sprintf("name=%v city=%v phone=%v", name != "", city != "", phone != "")
	return s.audit.Add(ctx, "updateUser", targetUID, adminUID, "", detail)
}

func (s *adminService) SetAccountState(ctx context.Context, adminUID, targetUID, state string) error {
	if state != model.AccountActive && state != model.AccountSuspended {
		return fmt.Errorf("invalid account state %q", state)
	}
	if err := s.users.SetAccountState(ctx, targetUID, state); err != nil {
		return err
	}
	return s.audit.Add(ctx, "setAccountState", targetUID, adminUID, "", state)
}

func (s *adminService) ListUsers(ctx context.Context, page, pageSize int) ([]*model.User, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return s.users.List(ctx, (page-1)*pageSize, pageSize)
}
