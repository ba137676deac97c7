package dto

type CredentialsForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required,min=6"`
}

type ForgotPasswordForm struct {
	Email string `form:"email" binding:"required,email"`
}

type UpdatePasswordForm struct {
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirmPassword"`
	// Token carries a reset token when the visitor has no session yet.
	Token string `form:"token"`
}
