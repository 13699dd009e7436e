package model

type SignupRequest struct {
	Nickname  string `json:"nickname"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LoginRequest struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UpdateUserRequest uses pointers so that absent fields can be told apart from empty ones.
type UpdateUserRequest struct {
	Nickname  *string `json:"nickname"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Password  *string `json:"password"`
}

type UpdateRoleRequest struct {
	Role Role `json:"role"`
}
