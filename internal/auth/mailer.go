package auth

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// RegistrationMail carries everything the welcome mail template needs.
type RegistrationMail struct {
	Name     string
	Username string
	Password string
	Email    string
	Site     string
	Token    string
}

// ResetMail carries the forgot-password mail fields.
type ResetMail struct {
	Name  string
	Email string
	Site  string
	Token string
}

// Mailer abstracts outgoing mail. Actual delivery (SMTP, a task queue) is
// an external collaborator; the server only composes messages.
type Mailer interface {
	SendRegistration(m RegistrationMail) error
	SendPasswordReset(m ResetMail) error
}

// LogMailer writes composed mails to the application log. Used in
// development and tests.
type LogMailer struct {
	Log *logrus.Logger
}

func (lm *LogMailer) SendRegistration(m RegistrationMail) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour account has been created.\nUsername: %s\nPassword: %s\n\n"+
			"Use this link to finish setting up your account:\nhttp://%s/user/login/?token=%s\n",
		m.Name, m.Username, m.Password, m.Site, m.Token)
	lm.Log.WithFields(logrus.Fields{"to": m.Email, "subject": "Your new account"}).Info(body)
	return nil
}

func (lm *LogMailer) SendPasswordReset(m ResetMail) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nUse this link to reset your password:\nhttp://%s/user/reset-password/%s\n",
		m.Name, m.Site, m.Token)
	lm.Log.WithFields(logrus.Fields{"to": m.Email, "subject": "Password reset"}).Info(body)
	return nil
}
