package department

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"shiftrota/internal/domain/auth"
)

type NewUser struct {
	Username string
	Email    string
	Role     string
	Password string
}

type UserChange struct {
	Email    string
	Role     string
	Password string
}

func validRole(role string) bool {
	return slices.Contains(Roles, role)
}

func (dept *Department) AddUser(in NewUser, grantedByAdmin bool, now time.Time) (User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.TrimSpace(in.Role)
	if in.Username == "" || in.Email == "" || in.Role == "" || in.Password == "" {
		return User{}, fmt.Errorf("user fields: %w", ErrRequiredFields)
	}
	if !validRole(in.Role) {
		return User{}, fmt.Errorf("%q: %w", in.Role, ErrInvalidRole)
	}
	if in.Role == RoleAdmin && !grantedByAdmin {
		return User{}, ErrAdminRoleDenied
	}
	if len(in.Password) < MinPasswordLength {
		return User{}, ErrPasswordTooShort
	}
	for _, u := range dept.Users {
		if u.Username == in.Username {
			return User{}, fmt.Errorf("%q: %w", in.Username, ErrUsernameTaken)
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	user := User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		Role:         in.Role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now.UTC(),
	}
	dept.Users = append(dept.Users, user)
	return user, nil
}

func (dept *Department) EditUser(id string, change UserChange, grantedByAdmin bool, now time.Time) (User, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, fmt.Errorf("user id: %w", ErrRequiredFields)
	}
	idx := dept.userIndex(id)
	if idx < 0 {
		return User{}, ErrUserNotFound
	}
	change.Email = strings.TrimSpace(change.Email)
	change.Role = strings.TrimSpace(change.Role)
	if change.Role != "" && !validRole(change.Role) {
		return User{}, fmt.Errorf("%q: %w", change.Role, ErrInvalidRole)
	}
	if change.Role == RoleAdmin && !grantedByAdmin {
		return User{}, ErrAdminRoleDenied
	}
	if change.Password != "" && len(change.Password) < MinPasswordLength {
		return User{}, ErrPasswordTooShort
	}
	if change.Email == "" && change.Role == "" && change.Password == "" {
		return User{}, ErrNoChanges
	}

	user := dept.Users[idx]
	if change.Email != "" {
		user.Email = change.Email
	}
	if change.Role != "" {
		user.Role = change.Role
	}
	if change.Password != "" {
		hash, err := auth.HashPassword(change.Password)
		if err != nil {
			return User{}, err
		}
		user.PasswordHash = hash
	}
	updated := now.UTC()
	user.UpdatedAt = &updated
	dept.Users[idx] = user
	return user, nil
}

func (dept *Department) RemoveUser(id string) (User, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, fmt.Errorf("user id: %w", ErrRequiredFields)
	}
	idx := dept.userIndex(id)
	if idx < 0 {
		return User{}, ErrUserNotFound
	}
	removed := dept.Users[idx]
	dept.Users = slices.Delete(dept.Users, idx, idx+1)
	return removed, nil
}

func (dept *Department) userIndex(id string) int {
	return slices.IndexFunc(dept.Users, func(u User) bool { return u.ID == id })
}
