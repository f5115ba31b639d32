package repository

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecolink-dev/ecolink/internal/model"
)

// UserRepository 用户档案（角色镜像 + 管理面板字段）
type UserRepository interface {
	Create(ctx context.Context, email, password, name, role string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, offset, limit int) ([]*model.User, error)
	// SetRole 更新角色（merge 语义，用户不存在时报错）
	SetRole(ctx context.Context, id, role string) error
	// UpdateProfile 管理面板的名字/城市/电话修改
	UpdateProfile(ctx context.Context, id, name, city, phone string) error
	SetAccountState(ctx context.Context, id, state string) error
	// VerifyPassword 校验明文密码
	VerifyPassword(u *model.User, password string) bool
}

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) (UserRepository, error) {
	if err := db.AutoMigrate(&model.User{}); err != nil {
		return nil, err
	}
	return &userRepository{db: db}, nil
}

func (r *userRepository) Create(ctx context.Context, email, password, name, role string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if role == "" {
		role = model.RoleCitizen
	}
	u := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		AccountState: model.AccountActive,
	}
	// 重复邮箱幂等返回已有账号
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(u).Error; err != nil {
		return nil, err
	}
	return r.GetByEmail(ctx, email)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) List(ctx context.Context, offset, limit int) ([]*model.User, error) {
	var users []*model.User
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *userRepository) SetRole(ctx context.Context, id, role string) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id, name, city, phone string) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "city": city, "phone": phone})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) SetAccountState(ctx context.Context, id, state string) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("account_state", state).Error
}

func (r *userRepository) VerifyPassword(u *model.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
