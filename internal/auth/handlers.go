package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"regexp"
	"time"

	"github.com/MentorLoop/LMS-Backend/internal/cache"
	"github.com/MentorLoop/LMS-Backend/internal/token"
	"github.com/MentorLoop/LMS-Backend/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var mobilePattern = regexp.MustCompile(`^(\+91|91|0)?[6-9][0-9]{9}$`)

// Handler owns the login/logout/password lifecycle endpoints. Everything it
// touches is passed in explicitly so tests can wire sqlite + miniredis.
type Handler struct {
	DB     *gorm.DB
	Store  *cache.SessionStore
	Codec  *token.Codec
	Mailer Mailer
	Log    *logrus.Logger
	Site   string

	// ResetTTL bounds forgot-password links; first-login links get the
	// codec's default lifetime so they survive until the user gets to them.
	ResetTTL time.Duration

	// OnUserCreated is invoked after a user row is written, to create the
	// role-specific profile (mentor/student record). Wired in main to keep
	// auth from importing the management package.
	OnUserCreated func(db *gorm.DB, user *User) error
}

// RegisterUserHandler adds a Mentor, Student or another Admin. Admin only.
// The password is auto-generated and mailed together with a one-time login
// link; the account stays in the first-login state until it is changed.
func (h *Handler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username  string     `json:"username"`
		FirstName string     `json:"first_name"`
		LastName  string     `json:"last_name"`
		Email     string     `json:"email"`
		Mobile    string     `json:"mobile"`
		Role      utils.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if input.Username == "" || input.FirstName == "" || input.LastName == "" || input.Email == "" {
		utils.Respond(w, http.StatusBadRequest, "username, first_name, last_name and email are required")
		return
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	if !mobilePattern.MatchString(input.Mobile) {
		utils.Respond(w, http.StatusBadRequest, "Invalid mobile number")
		return
	}
	if !input.Role.Valid() {
		utils.Respond(w, http.StatusBadRequest, "role must be Admin, Mentor or Student")
		return
	}

	password, err := GeneratePassword()
	if err != nil {
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	hashed, err := HashPassword(password)
	if err != nil {
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	user := User{
		UserID:         uuid.New().String(),
		Username:       input.Username,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          input.Email,
		Mobile:         input.Mobile,
		HashedPassword: hashed,
		Role:           input.Role,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			h.Log.Info("duplicate user entry is blocked")
			utils.Respond(w, http.StatusBadRequest, "A user with this username, email or mobile is already present")
			return
		}
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	if h.OnUserCreated != nil {
		if err := h.OnUserCreated(h.DB, &user); err != nil {
			h.Log.Error(err)
		}
	}

	// The one-time link embeds the freshly set hash; changing the password
	// makes it useless even before it lands in the blacklist.
	firstLoginToken, err := h.Codec.Issue(user.Username, user.HashedPassword)
	if err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if err := h.Mailer.SendRegistration(RegistrationMail{
		Name:     user.FullName(),
		Username: user.Username,
		Password: password,
		Email:    user.Email,
		Site:     h.Site,
		Token:    firstLoginToken,
	}); err != nil {
		h.Log.Error(err)
	}

	h.Log.Infof("Registration is done and mail is sent to %s", user.Email)
	utils.Respond(w, http.StatusCreated, fmt.Sprintf("A new %s is registered successfully", user.Role))
}

// LoginHandler checks credentials and issues a bearer token. A user still
// in the first-login state must also present the mailed one-time token as
// the `token` query parameter.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.Respond(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	var user User
	if err := h.DB.First(&user, "username = ?", input.Username).Error; err != nil {
		h.Log.Info("bad credential found")
		utils.Respond(w, http.StatusUnauthorized, "Bad credential found")
		return
	}
	if !CheckPassword(user.HashedPassword, input.Password) {
		h.Log.Info("bad credential found")
		utils.Respond(w, http.StatusUnauthorized, "Bad credential found")
		return
	}

	if user.FirstLoginPending() {
		h.firstLogin(w, r, &user)
		return
	}

	bearer, err := h.Codec.Issue(user.Username, user.HashedPassword)
	if err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	// Overwriting the cache entry invalidates any session on another device.
	if err := h.Store.Put(r.Context(), user.Username, bearer); err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	now := time.Now()
	h.DB.Model(&user).Update("last_login", &now)

	h.Log.Info("successful login")
	w.Header().Set("Authorization", bearer)
	utils.RespondExtra(w, http.StatusOK, "You are logged in successfully", map[string]any{
		"username": user.Username,
		"role":     user.Role,
	})
}

// firstLogin handles the CREATED -> LINK_USED transition: credentials were
// already verified, now the mailed one-time token must check out too. A
// session is started, but the middleware keeps every route except logout
// and the password-change link closed until the change happens.
func (h *Handler) firstLogin(w http.ResponseWriter, r *http.Request, user *User) {
	oneTime := r.URL.Query().Get("token")
	if oneTime == "" {
		utils.Respond(w, http.StatusUnauthorized, "You need to use the login link sent to your mail")
		return
	}
	if IsBlacklisted(h.DB, oneTime) {
		h.Log.Info("This link is already used")
		utils.Respond(w, http.StatusNotAcceptable, "This link is already used")
		return
	}
	claims, err := h.Codec.Verify(oneTime)
	if err != nil || claims.Username != user.Username || claims.Fingerprint != user.HashedPassword {
		h.Log.Info("Invalid link request")
		utils.Respond(w, http.StatusUnauthorized, "Invalid link found")
		return
	}

	bearer, err := h.Codec.Issue(user.Username, user.HashedPassword)
	if err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if err := h.Store.Put(r.Context(), user.Username, bearer); err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	w.Header().Set("Authorization", bearer)
	utils.RespondExtra(w, http.StatusOK, "You need to change your password before accessing anything else",
		map[string]any{"path": "/user/change-password-on-first-access/" + oneTime})
}

// LogoutHandler drops the session cache entry; the still-signed token dies
// with it.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := utils.GetAuthUserFromContext(r.Context())
	if !ok {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}
	if err := h.Store.Delete(r.Context(), user.Username); err != nil {
		h.Log.Error(err)
	}
	h.Log.Info("logout successful")
	utils.Respond(w, http.StatusOK, "You are logged out")
}

// ChangePasswordHandler lets an authenticated user rotate their password.
func (h *Handler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		OldPassword     string `json:"old_password"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.Respond(w, http.StatusBadRequest, "Old and new password are required")
		return
	}
	if input.NewPassword == "" || input.NewPassword != input.ConfirmPassword {
		utils.Respond(w, http.StatusBadRequest, "New password and confirm password do not match")
		return
	}

	authUser, ok := utils.GetAuthUserFromContext(r.Context())
	if !ok {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}
	var user User
	if err := h.DB.First(&user, "username = ?", authUser.Username).Error; err != nil {
		utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
		return
	}

	if !CheckPassword(user.HashedPassword, input.OldPassword) {
		h.Log.Info("Old password does not match")
		utils.Respond(w, http.StatusUnauthorized, "Old password does not match!")
		return
	}

	hashed, err := HashPassword(input.NewPassword)
	if err != nil {
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if err := h.DB.Model(&user).Update("hashed_password", hashed).Error; err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	h.Log.Info("password changed successfully")
	utils.Respond(w, http.StatusOK, "Your password is changed successfully!")
}

// ForgotPasswordHandler mails a reset link. An unknown email is reported as
// 404, matching the long-standing behavior of this API.
func (h *Handler) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Email == "" {
		utils.Respond(w, http.StatusBadRequest, "email is required")
		return
	}

	var user User
	if err := h.DB.First(&user, "email = ?", input.Email).Error; err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusNotFound, "Email not found")
		return
	}

	// The reset link embeds the current hash; it stops working the moment
	// the password changes by any other path.
	resetToken, err := h.Codec.IssueWithTTL(user.Username, user.HashedPassword, h.ResetTTL)
	if err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if err := h.Mailer.SendPasswordReset(ResetMail{
		Name:  user.FullName(),
		Email: user.Email,
		Site:  h.Site,
		Token: resetToken,
	}); err != nil {
		h.Log.Error(err)
	}

	h.Log.Info("reset password link is sent to mail")
	utils.Respond(w, http.StatusOK, "Password reset link is sent to your mail")
}

// ResetPasswordHandler consumes a mailed reset link.
func (h *Handler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	oneTime := pathParam(r, "token")
	if IsBlacklisted(h.DB, oneTime) {
		h.Log.Info("This link is already used")
		utils.Respond(w, http.StatusNotAcceptable, "This link is already used")
		return
	}

	var input struct {
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil ||
		input.NewPassword == "" || input.NewPassword != input.ConfirmPassword {
		utils.Respond(w, http.StatusBadRequest, "New password and confirm password do not match")
		return
	}

	claims, err := h.Codec.Verify(oneTime)
	if err != nil {
		h.Log.Info("Invalid link request")
		utils.Respond(w, http.StatusUnauthorized, "Invalid link found")
		return
	}

	var user User
	if err := h.DB.First(&user, "username = ?", claims.Username).Error; err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusNotFound, "User not found!")
		return
	}
	if claims.Fingerprint != user.HashedPassword {
		h.Log.Info("password does not match")
		utils.Respond(w, http.StatusUnauthorized, "Password does not match")
		return
	}

	hashed, err := HashPassword(input.NewPassword)
	if err != nil {
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if err := h.DB.Model(&user).Update("hashed_password", hashed).Error; err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if err := Blacklist(h.DB, oneTime); err != nil {
		h.Log.Error(err)
	}

	h.Log.Info("Password is reset")
	utils.Respond(w, http.StatusOK, "Your Password is reset")
}

// ChangePasswordOnFirstAccessHandler is the LINK_USED -> PASSWORD_SET
// transition. The caller is already authenticated (the middleware lets this
// route through); the one-time token in the path is validated again and
// then retired for good.
func (h *Handler) ChangePasswordOnFirstAccessHandler(w http.ResponseWriter, r *http.Request) {
	oneTime := pathParam(r, "token")
	if IsBlacklisted(h.DB, oneTime) {
		h.Log.Info("This link is already used")
		utils.Respond(w, http.StatusNotAcceptable, "This link is already used")
		return
	}
	claims, err := h.Codec.Verify(oneTime)
	if err != nil {
		utils.Respond(w, http.StatusUnauthorized, "Invalid link found")
		return
	}

	var input struct {
		OldPassword     string `json:"old_password"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil ||
		input.NewPassword == "" || input.NewPassword != input.ConfirmPassword {
		utils.Respond(w, http.StatusBadRequest, "New password and confirm password do not match")
		return
	}

	var user User
	if err := h.DB.First(&user, "username = ?", claims.Username).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "User not found!")
		return
	}
	if claims.Fingerprint != user.HashedPassword {
		utils.Respond(w, http.StatusUnauthorized, "Invalid link found")
		return
	}
	// The old password is still the auto-generated one from the mail.
	if !CheckPassword(user.HashedPassword, input.OldPassword) {
		h.Log.Info("Old password does not match")
		utils.Respond(w, http.StatusUnauthorized, "Old password does not match!")
		return
	}

	hashed, err := HashPassword(input.NewPassword)
	if err != nil {
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	now := time.Now()
	if err := h.DB.Model(&user).Updates(map[string]any{
		"hashed_password": hashed,
		"last_login":      &now, // permanently exits the first-login state
	}).Error; err != nil {
		h.Log.Error(err)
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if err := Blacklist(h.DB, oneTime); err != nil {
		h.Log.Error(err)
	}

	h.Log.Info("password changed successfully")
	utils.Respond(w, http.StatusOK, "Your password is changed successfully!")
}

// NewLoginLinkRequestHandler re-issues the registration mail (fresh password
// and fresh one-time token) for an account that never completed first login.
func (h *Handler) NewLoginLinkRequestHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Email == "" {
		utils.Respond(w, http.StatusBadRequest, "email is required")
		return
	}

	var user User
	if err := h.DB.First(&user, "email = ?", input.Email).Error; err != nil {
		utils.Respond(w, http.StatusNotFound, "Email not found")
		return
	}
	if !user.FirstLoginPending() {
		utils.Respond(w, http.StatusNotAcceptable, "Your account is already active. Please login normally")
		return
	}

	password, err := GeneratePassword()
	if err != nil {
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	hashed, err := HashPassword(password)
	if err != nil {
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	h.DB.Model(&user).Update("hashed_password", hashed)
	user.HashedPassword = hashed

	firstLoginToken, err := h.Codec.Issue(user.Username, user.HashedPassword)
	if err != nil {
		utils.Respond(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if err := h.Mailer.SendRegistration(RegistrationMail{
		Name:     user.FullName(),
		Username: user.Username,
		Password: password,
		Email:    user.Email,
		Site:     h.Site,
		Token:    firstLoginToken,
	}); err != nil {
		h.Log.Error(err)
	}

	h.Log.Infof("new login link is sent to %s", user.Email)
	utils.Respond(w, http.StatusOK, "New login link is sent to your mail")
}
