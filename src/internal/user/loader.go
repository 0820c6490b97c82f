package user

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"presence-svc/src/internal/models"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Seed is one entry of the roster seed file
type Seed struct {
	UserID    string     `json:"user_id" validate:"required"`
	Username  string     `json:"username" validate:"required"`
	Email     string     `json:"email" validate:"required,email"`
	Role      string     `json:"role" validate:"required,oneof=admin moderator user"`
	Password  string     `json:"password" validate:"omitempty,min=6"`
	Active    *bool      `json:"active"`
	LastLogin *time.Time `json:"last_login"`
	IsOnline  bool       `json:"is_online"`
}

// PresenceResetter is the part of the presence tracker the loader drives
type PresenceResetter interface {
	Login(ctx context.Context, userID string) (int64, error)
	Reset(ctx context.Context) error
}

type Loader struct {
	repo       Repository
	presence   PresenceResetter
	validate   *validator.Validate
	bcryptCost int
}

func NewLoader(repo Repository, presence PresenceResetter, bcryptCost int) *Loader {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Loader{
		repo:       repo,
		presence:   presence,
		validate:   validator.New(),
		bcryptCost: bcryptCost,
	}
}

func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open seed file: %w", err)
	}
	defer file.Close()

	return l.Load(ctx, file)
}

// Load replaces the roster with the seeds read from r and marks the
// seeds flagged as online as logged in. Returns the number of users saved.
func (l *Loader) Load(ctx context.Context, r io.Reader) (int, error) {
	var seeds []Seed
	if err := json.NewDecoder(r).Decode(&seeds); err != nil {
		return 0, fmt.Errorf("%w: decode seed file: %v", models.ErrInvalidParams, err)
	}

	users := make([]*User, 0, len(seeds))
	seen := make(map[string]struct{}, len(seeds))
	for i := range seeds {
		seed := seeds[i]
		if err := l.validate.Struct(seed); err != nil {
			return 0, fmt.Errorf("%w: seed %d (%s): %v", models.ErrInvalidParams, i, seed.UserID, err)
		}
		if _, dup := seen[seed.UserID]; dup {
			return 0, fmt.Errorf("%w: duplicate user id %s", models.ErrInvalidParams, seed.UserID)
		}
		seen[seed.UserID] = struct{}{}

		u, err := l.toUser(seed)
		if err != nil {
			return 0, err
		}
		users = append(users, u)
	}

	if err := l.repo.DeleteAll(ctx); err != nil {
		return 0, err
	}
	if err := l.presence.Reset(ctx); err != nil {
		return 0, err
	}

	online := 0
	for _, u := range users {
		if err := l.repo.Save(ctx, u); err != nil {
			return 0, err
		}
		if !u.IsOnline {
			continue
		}
		if _, err := l.presence.Login(ctx, u.UserID); err != nil {
			return 0, err
		}
		online++
	}

	logrus.WithFields(logrus.Fields{
		"users":  len(users),
		"online": online,
	}).Info("User roster seeded")

	return len(users), nil
}

func (l *Loader) toUser(seed Seed) (*User, error) {
	u := &User{
		UserID:    seed.UserID,
		Username:  seed.Username,
		Email:     seed.Email,
		Role:      seed.Role,
		LastLogin: seed.LastLogin,
		IsOnline:  seed.IsOnline,
		Active:    true,
	}
	if seed.Active != nil {
		u.Active = *seed.Active
	}

	if seed.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), l.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", seed.UserID, err)
		}
		u.PasswordHash = string(hash)
	}

	return u, nil
}
