package dto

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         UserResponse `json:"user"`
}

type UserResponse struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	FullName string  `json:"full_name"`
	Email    string  `json:"email,omitempty"`
	Role     string  `json:"role"`
	FarmID   *string `json:"farm_id,omitempty"`
	Active   bool    `json:"active"`
}

type CreateUserRequest struct {
	Username string  `json:"username" validate:"required,min=3"`
	Password string  `json:"password" validate:"required,min=8"`
	FullName string  `json:"full_name" validate:"required"`
	Email    string  `json:"email" validate:"omitempty,email"`
	Role     string  `json:"role" validate:"required,oneof=owner technician operator"`
	FarmID   *string `json:"farm_id" validate:"omitempty,uuid"`
}

type UpdateUserRequest struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	Role     *string `json:"role" validate:"omitempty,oneof=owner technician operator"`
	FarmID   *string `json:"farm_id" validate:"omitempty,uuid"`
}
