package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecolink-dev/ecolink/internal/auth"
	"github.com/ecolink-dev/ecolink/internal/model"
	"github.com/ecolink-dev/ecolink/internal/repository"
)

type adminFixture struct {
	svc         AdminService
	users       repository.UserRepository
	audit       repository.AuditRepository
	revocations *auth.RevocationStore
}

func setupAdmin(t *testing.T) *adminFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	users, err := repository.NewUserRepository(db)
	require.NoError(t, err)
	audit, err := repository.NewAuditRepository(db)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	revocations := auth.NewRevocationStore(rdb, time.Hour)

	return &adminFixture{
		svc:         NewAdminService(users, audit, revocations),
		users:       users,
		audit:       audit,
		revocations: revocations,
	}
}

func (f *adminFixture) mustCreate(t *testing.T, email, role string) *model.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), email, "password123", "Test", role)
	require.NoError(t, err)
	return u
}

func TestSetRole(t *testing.T) {
	f := setupAdmin(t)
	ctx := context.Background()
	admin := f.mustCreate(t, "admin@example.com", model.RoleAdmin)
	target := f.mustCreate(t, "user@example.com", model.RoleCitizen)

	issuedAt := time.Now()
	require.NoError(t, f.svc.SetRole(ctx, admin.ID, target.ID, model.RoleOrganization))

	got, err := f.users.GetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOrganization, got.Role)

	// 改角色必须吊销旧令牌
	revoked, err := f.revocations.IsRevoked(ctx, target.ID, issuedAt)
	require.NoError(t, err)
	assert.True(t, revoked)

	entries, err := f.audit.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "setRole", entries[0].Type)
	assert.Equal(t, target.ID, entries[0].TargetUID)
	assert.Equal(t, admin.ID, entries[0].AdminUID)
	assert.Equal(t, model.RoleOrganization, entries[0].NewRole)
}

func TestSetRoleRejections(t *testing.T) {
	f := setupAdmin(t)
	ctx := context.Background()
	admin := f.mustCreate(t, "admin@example.com", model.RoleAdmin)
	target := f.mustCreate(t, "user@example.com", model.RoleCitizen)

	assert.ErrorIs(t, f.svc.SetRole(ctx, admin.ID, target.ID, "superuser"), ErrRoleNotAllowed)
	assert.ErrorIs(t, f.svc.SetRole(ctx, admin.ID, admin.ID, model.RoleCitizen), ErrSelfDemotion)
	// 自己设自己为 admin 是幂等允许的
	assert.NoError(t, f.svc.SetRole(ctx, admin.ID, admin.ID, model.RoleAdmin))

	err := f.svc.SetRole(ctx, admin.ID, "no-such-uid", model.RoleOrganization)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// 被拒的操作不留审计
	entries, err := f.audit.List(ctx, 10)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, "superuser", e.NewRole)
	}
}

func TestUpdateUserAndAccountState(t *testing.T) {
	f := setupAdmin(t)
	ctx := context.Background()
	admin := f.mustCreate(t, "admin@example.com", model.RoleAdmin)
	target := f.mustCreate(t, "user@example.com", model.RoleCitizen)

	require.NoError(t, f.svc.UpdateUser(ctx, admin.ID, target.ID, "Ana", "Quito", "099111222"))
	got, err := f.users.GetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, "Quito", got.City)

	require.NoError(t, f.svc.SetAccountState(ctx, admin.ID, target.ID, model.AccountSuspended))
	got, err = f.users.GetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AccountSuspended, got.AccountState)

	assert.Error(t, f.svc.SetAccountState(ctx, admin.ID, target.ID, "banned"))

	entries, err := f.audit.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestListUsersPagination(t *testing.T) {
	f := setupAdmin(t)
	ctx := context.Background()
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		f.mustCreate(t, email, model.RoleCitizen)
		time.Sleep(5 * time.Millisecond)
	}

	page1, err := f.svc.ListUsers(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := f.svc.ListUsers(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 1)

	// 非法分页参数落回默认值
	all, err := f.svc.ListUsers(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
