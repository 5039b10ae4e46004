package auth

import (
	"github.com/MentorLoop/LMS-Backend/internal/utils"
	"gorm.io/gorm"
)

// UserInfo implements middleware.UserFetcher on top of the users table.
type UserInfo struct {
	DB *gorm.DB
}

func (ui UserInfo) FindUserByUsername(username string) (utils.AuthUser, error) {
	var user User
	err := ui.DB.First(&user, "username = ?", username).Error
	if err != nil {
		return utils.AuthUser{}, err
	}

	return utils.AuthUser{
		UserID:      user.UserID,
		Username:    user.Username,
		Role:        user.Role,
		IsSuperuser: user.IsSuperuser,
		FirstLogin:  user.FirstLoginPending(),
	}, nil
}
