package dto

type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	ContactName  string `json:"contactName"`
	CompanyName  string `json:"companyName"`
	Phone        string `json:"phone,omitempty"`
	BusinessType string `json:"businessType,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

type UserResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type AuthResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	User         UserResponse `json:"user"`
	IsAdmin      bool         `json:"isAdmin"`
}

type MeResponse struct {
	User    UserResponse `json:"user"`
	IsAdmin bool         `json:"isAdmin"`
}
