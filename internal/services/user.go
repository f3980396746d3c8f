package services

import (
	"context"
	"net/mail"
	"strings"

	"github.com/prostay/apiserver/internal/storage"
	"github.com/prostay/apiserver/internal/store"
	"github.com/prostay/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context, role types.Role) ([]types.User, error)
	Count(ctx context.Context) (int, error)
	CountByRole(ctx context.Context) ([]types.RoleCount, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// RegisterInput is a self-service sign-up request.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     string
	Photo    []byte
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo     UserRepository
	images   ImageStore
	hashCost int
}

func NewUserService(repo UserRepository, images ImageStore) *UserService {
	return &UserService{repo: repo, images: images, hashCost: bcrypt.DefaultCost}
}

// Register validates input, hashes the password, stores the optional photo
// and creates the account. Admin accounts cannot be self-registered.
// store.ErrConflict is returned for a taken email.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Name == "" {
		return types.User{}, invalidf("name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return types.User{}, invalidf("email is invalid")
	}
	if len(in.Password) < minPasswordLength {
		return types.User{}, invalidf("password must be at least %d characters", minPasswordLength)
	}

	role, err := types.ParseRole(in.Role)
	if err != nil {
		return types.User{}, invalidf("%v", err)
	}
	if role == types.RoleAdmin {
		return types.User{}, invalidf("admin accounts cannot be self-registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return types.User{}, err
	}

	photo, err := saveImage(ctx, s.images, storage.PrefixUsers, in.Photo)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Role:         role,
		Photo:        photo,
		PasswordHash: string(hashed),
	})
	if err != nil {
		deleteImage(ctx, s.images, photo)
		return types.User{}, err
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail satisfies the authenticator's user lookup. Emails are stored
// lower-cased.
func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return types.User{}, store.ErrNotFound
	}
	return s.repo.GetByEmail(ctx, email)
}

// List returns all users, or only those holding rawRole when it is set.
func (s *UserService) List(ctx context.Context, rawRole string) ([]types.User, error) {
	if strings.TrimSpace(rawRole) == "" {
		return s.repo.List(ctx, "")
	}
	role, err := types.ParseRole(rawRole)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	return s.repo.List(ctx, role)
}

func (s *UserService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *UserService) RoleCounts(ctx context.Context) ([]types.RoleCount, error) {
	return s.repo.CountByRole(ctx)
}
