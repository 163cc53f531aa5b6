package service

import (
	"context"
	"errors"
	"strings"

	"github.com/lokmen200/soukstyle/pkg/auth"
	"github.com/lokmen200/soukstyle/pkg/models"
	"github.com/lokmen200/soukstyle/pkg/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type UserService struct {
	deps Deps
	log  *zap.Logger
}

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Address  models.Address
}

type UpdateProfileInput struct {
	Name     *string
	Email    *string
	Phone    *string
	Address  *models.Address
	Password *string
}

type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Name == "" {
		return nil, Invalid("name is required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, Invalid("a valid email is required")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, Invalid("%s", err)
		}
		return nil, Internal("failed to hash password", err)
	}

	now := s.deps.Now()
	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         s.roleFor(in.Email),
		Address:      in.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.deps.Repos.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict("a user with this email or phone already exists")
		}
		return nil, Internal("failed to create user", err)
	}

	s.log.Info("User registered", zap.String("user_id", user.ID.Hex()), zap.String("role", string(user.Role)))
	return s.session(user)
}

func (s *UserService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, Invalid("identifier and password are required")
	}

	user, err := s.deps.Repos.Users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, Unauthenticated("invalid credentials")
		}
		return nil, Internal("failed to load user", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, Unauthenticated("invalid credentials")
	}
	return s.session(user)
}

func (s *UserService) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.deps.Repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "user")
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields. The password is rehashed only
// when a new one is supplied.
func (s *UserService) UpdateProfile(ctx context.Context, caller *models.User, in UpdateProfileInput) (*models.User, error) {
	user, err := s.Get(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, Invalid("name cannot be empty")
		}
		user.Name = name
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !strings.Contains(email, "@") {
			return nil, Invalid("a valid email is required")
		}
		user.Email = email
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		user.Address = *in.Address
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			if errors.Is(err, auth.ErrWeakPassword) {
				return nil, Invalid("%s", err)
			}
			return nil, Internal("failed to hash password", err)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = s.deps.Now()

	if err := s.deps.Repos.Users.Update(ctx, user); err != nil {
		return nil, persist(err, "user")
	}
	return user, nil
}

func (s *UserService) session(user *models.User) (*Session, error) {
	token, err := s.deps.Tokens.Issue(user)
	if err != nil {
		return nil, Internal("failed to issue token", err)
	}
	return &Session{Token: token, User: user}, nil
}

func (s *UserService) roleFor(email string) models.Role {
	for _, admin := range s.deps.Options.AdminEmails {
		if admin == email {
			return models.RoleAdmin
		}
	}
	return models.RoleBuyer
}
