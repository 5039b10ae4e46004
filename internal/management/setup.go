package management

import (
	"github.com/MentorLoop/LMS-Backend/internal/auth"
	"github.com/MentorLoop/LMS-Backend/internal/utils"
	"gorm.io/gorm"
)

func Init(db *gorm.DB) error {
	return db.AutoMigrate(
		&Course{},
		&Mentor{},
		&Student{},
		&Education{},
		&StudentCourseMentor{},
		&Performance{},
	)
}

// CreateProfileForUser creates the role-specific record (mentor or student)
// for a freshly registered user. Wired into auth.Handler.OnUserCreated from
// main, the Go stand-in for the original's post-save signal.
func CreateProfileForUser(db *gorm.DB, user *auth.User) error {
	switch user.Role {
	case utils.RoleMentor:
		return db.Create(&Mentor{UserID: user.UserID}).Error
	case utils.RoleStudent:
		return db.Create(&Student{UserID: user.UserID}).Error
	case utils.RoleAdmin:
		return nil
	}
	return nil
}
