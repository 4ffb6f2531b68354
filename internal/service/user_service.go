package service

import (
	"context"
	"encoding/json"

	"buildpos/internal/client"
	"buildpos/internal/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// CreateUserInput is the admin's new-user form.
type CreateUserInput struct {
	Username string `validate:"required,min=3,max=64"`
	Password string `validate:"required,min=6"`
	Name     string `validate:"required"`
	Role     string `validate:"required,oneof=admin cashier"`
}

// UpdateUserInput carries only the fields being changed. A nil field keeps
// the current value; Password set rehashes.
type UpdateUserInput struct {
	Name        *string
	Role        *string
	Password    *string
	Permissions []string
}

// UserService is the admin-only account manager. Every operation requires
// the admin role; password hashes never leave this package.
type UserService struct {
	co    *client.Coordinator
	store *client.Store
}

func NewUserService(co *client.Coordinator, store *client.Store) *UserService {
	return &UserService{co: co, store: store}
}

func (s *UserService) List(ctx context.Context, actor *model.User) ([]model.User, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrPermissionDenied
	}
	env, err := s.store.Get(ctx, model.TableUsers)
	if err != nil {
		return nil, err
	}
	var users []model.User
	if err := json.Unmarshal(env.Items, &users); err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, nil
}

func (s *UserService) Create(ctx context.Context, actor *model.User, in CreateUserInput) (*model.User, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrPermissionDenied
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	user := model.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: string(hash),
		Name:         in.Name,
		Role:         in.Role,
	}
	_, err = client.Mutate(ctx, s.co, model.TableUsers, func(users []model.User) ([]model.User, error) {
		for i := range users {
			if users[i].Username == user.Username {
				return nil, validationf("username %q already exists", user.Username)
			}
		}
		return append(users, user), nil
	})
	if err != nil {
		return nil, err
	}
	sanitized := user.Sanitized()
	return &sanitized, nil
}

func (s *UserService) Update(ctx context.Context, actor *model.User, id string, in UpdateUserInput) (*model.User, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrPermissionDenied
	}
	if in.Role != nil && *in.Role != model.RoleAdmin && *in.Role != model.RoleCashier {
		return nil, validationf("unknown role %q", *in.Role)
	}
	if in.Permissions != nil {
		for _, p := range in.Permissions {
			if !model.KnownPermission(p) {
				return nil, validationf("unknown permission %q", p)
			}
		}
	}
	var hash string
	if in.Password != nil {
		if len(*in.Password) < 6 {
			return nil, validationf("password must be at least 6 characters")
		}
		h, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcryptCost)
		if err != nil {
			return nil, err
		}
		hash = string(h)
	}

	var updated model.User
	_, err := client.Mutate(ctx, s.co, model.TableUsers, func(users []model.User) ([]model.User, error) {
		idx := -1
		for i := range users {
			if users[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, validationf("user %s not found", id)
		}
		u := &users[idx]
		if in.Name != nil {
			u.Name = *in.Name
		}
		if in.Role != nil {
			u.Role = *in.Role
		}
		if in.Permissions != nil {
			u.Permissions = in.Permissions
		}
		if hash != "" {
			u.PasswordHash = hash
		}
		updated = *u
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	sanitized := updated.Sanitized()
	return &sanitized, nil
}

// Delete removes a user. An admin cannot delete their own account, which
// keeps at least one working login around.
func (s *UserService) Delete(ctx context.Context, actor *model.User, id string) error {
	if actor.Role != model.RoleAdmin {
		return ErrPermissionDenied
	}
	if actor.ID == id {
		return validationf("cannot delete your own account")
	}
	_, err := client.Mutate(ctx, s.co, model.TableUsers, func(users []model.User) ([]model.User, error) {
		next := make([]model.User, 0, len(users))
		for i := range users {
			if users[i].ID != id {
				next = append(next, users[i])
			}
		}
		if len(next) == len(users) {
			return nil, validationf("user %s not found", id)
		}
		return next, nil
	})
	return err
}
