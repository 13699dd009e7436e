package model

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is the stored identity. PasswordHash and PasswordSalt never leave the service layer.
type User struct {
	ID           string    `json:"id"`
	Nickname     string    `json:"nickname"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	PasswordSalt string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Nickname:  u.Nickname,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

type PublicUser struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
}

type UserList struct {
	Users []PublicUser `json:"users"`
}

type AuthClaims struct {
	UserID   string `json:"sub"`
	Nickname string `json:"nickname"`
	Role     Role   `json:"role"`
	Type     string `json:"typ"`
	TokenID  string `json:"jti"`
}

type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"-"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// Session is the result of a successful login.
type Session struct {
	User   User
	Tokens TokenPair
}

type LoginResponse struct {
	User        PublicUser `json:"user"`
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int64      `json:"expires_in"`
}

type SignupResponse struct {
	User PublicUser `json:"user"`
}
