package dto

type SignupDTO struct {
	Name      string `json:"name" validate:"required,max=50"`
	Username  string `json:"username" validate:"required,min=3,max=15"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	BirthDate string `json:"birthDate" validate:"required"`
}

type LoginDTO struct {
	EmailOrUsername string `json:"emailOrUsername" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

// GoogleAuthDTO 客户端提交的 ID Token，未配置校验时使用后面的资料字段
type GoogleAuthDTO struct {
	IDToken    string `json:"idToken"`
	GoogleID   string `json:"googleId"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	ProfilePic string `json:"profilePic"`
}

type AuthDTO struct {
	Token string   `json:"token"`
	User  *UserDTO `json:"user"`
}
