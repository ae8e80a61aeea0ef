package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: name is required")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
	GenderNone   Gender = "none"
)

// Review is a buyer's rating of a seller, carried on the seller profile.
type Review struct {
	ID           string
	SellerID     string
	BuyerID      string
	Rating       int
	Comment      string
	ReviewerName string
	Timestamp    int64
}

type User struct {
	ID             ID
	Name           string
	Username       string
	Email          string
	PasswordHash   string
	Role           Role
	AvatarURL      string
	Balance        float64
	JoinDate       int64
	Bio            string
	Gender         Gender
	BirthDate      string
	Reviews        []Review
	TotalSales     int
	FollowersCount int
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID           ID
	Name         string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Now          time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" {
		return nil, ErrEmailRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if params.PasswordHash == "" {
		return nil, ErrPasswordHashMissing
	}
	role := params.Role
	if role == "" {
		role = RoleUser
	}
	username := strings.TrimSpace(params.Username)
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &User{
		ID:           ID(id),
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: params.PasswordHash,
		Role:         role,
		Gender:       GenderNone,
		JoinDate:     now.UnixMilli(),
	}, nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AverageRating folds the embedded reviews; zero when unreviewed.
func (u *User) AverageRating() float64 {
	if len(u.Reviews) == 0 {
		return 0
	}
	total := 0
	for _, r := range u.Reviews {
		total += r.Rating
	}
	return float64(total) / float64(len(u.Reviews))
}
