package dto

import (
	domainuser "quickswap/internal/domain/user"
)

// UserProfile is the outward user shape. The password hash never leaves the
// service; everything else mirrors the stored row.
type UserProfile struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	Username       string  `json:"username"`
	Role           string  `json:"role"`
	AvatarURL      string  `json:"avatar_url,omitempty"`
	Balance        float64 `json:"balance"`
	JoinDate       int64   `json:"join_date"`
	Bio            string  `json:"bio,omitempty"`
	AverageRating  float64 `json:"average_rating"`
	TotalSales     int     `json:"total_sales"`
	FollowersCount int     `json:"followers_count"`
}

type AuthResponse struct {
	User  UserProfile `json:"user"`
	Token string      `json:"token"`
}

func MapUserProfile(user *domainuser.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	return UserProfile{
		ID:             string(user.ID),
		Email:          user.Email,
		Name:           user.Name,
		Username:       user.Username,
		Role:           string(user.Role),
		AvatarURL:      user.AvatarURL,
		Balance:        user.Balance,
		JoinDate:       user.JoinDate,
		Bio:            user.Bio,
		AverageRating:  user.AverageRating(),
		TotalSales:     user.TotalSales,
		FollowersCount: user.FollowersCount,
	}
}

func NewAuthResponse(user *domainuser.User, token string) AuthResponse {
	return AuthResponse{
		User:  MapUserProfile(user),
		Token: token,
	}
}
