package auth

import (
	"strings"
	"time"

	"github.com/MentorLoop/LMS-Backend/internal/utils"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// User is the base account record for all three roles. LastLogin == nil
// marks a freshly registered account that has not completed the forced
// first password change yet.
type User struct {
	UserID         string     `gorm:"primaryKey" json:"user_id"`
	Username       string     `gorm:"uniqueIndex;not null" json:"username"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Email          string     `gorm:"uniqueIndex;not null" json:"email"`
	Mobile         string     `gorm:"uniqueIndex" json:"mobile"`
	HashedPassword string     `json:"-"`
	Role           utils.Role `gorm:"not null" json:"role"`
	IsSuperuser    bool       `json:"-"`
	LastLogin      *time.Time `json:"last_login"`
	CreatedAt      time.Time  `json:"-"`
}

var titleCaser = cases.Title(language.English)

// FullName renders "First Last" for mail greetings and display strings.
func (u *User) FullName() string {
	return strings.TrimSpace(titleCaser.String(u.FirstName) + " " + titleCaser.String(u.LastName))
}

// FirstLoginPending reports whether the account is still in the forced
// password-change state.
func (u *User) FirstLoginPending() bool {
	return u.LastLogin == nil
}

// TokenBlackList is the append-only record of consumed one-time links
// (password reset, first-login change). A token in here is dead forever,
// regardless of its signature validity.
type TokenBlackList struct {
	ID    uint      `gorm:"primaryKey"`
	Token string    `gorm:"size:500;index"`
	Time  time.Time `gorm:"autoCreateTime"`
}

// IsBlacklisted reports whether a one-time token has already been consumed.
func IsBlacklisted(db *gorm.DB, tok string) bool {
	var count int64
	db.Model(&TokenBlackList{}).Where("token = ?", tok).Count(&count)
	return count > 0
}

// Blacklist records a consumed one-time token.
func Blacklist(db *gorm.DB, tok string) error {
	return db.Create(&TokenBlackList{Token: tok}).Error
}
