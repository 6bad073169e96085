package models

import "time"

// User represents the user model in the database
type User struct {
	Base
	Email               string        `gorm:"uniqueIndex;not null" json:"email"`
	Password            string        `gorm:"not null" json:"-"`
	FirstName           string        `json:"first_name"`
	LastName            string        `json:"last_name"`
	ImageURL            string        `json:"image_url,omitempty"`
	IsActive            bool          `gorm:"default:true" json:"is_active"`
	RefreshTokenHash    string        `gorm:"size:64" json:"-"`
	FailedLoginAttempts int           `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time    `json:"-"`
	LastLoginAt         *time.Time    `json:"last_login_at,omitempty"`
	TOTPSecret          string        `gorm:"column:totp_secret" json:"-"`
	TwoFactorEnabled    bool          `gorm:"default:false" json:"two_factor_enabled"`
	Accounts            []Account     `gorm:"foreignKey:UserID" json:"accounts,omitempty"`
	Transactions        []Transaction `gorm:"foreignKey:UserID" json:"transactions,omitempty"`
	Budget              *Budget       `gorm:"foreignKey:UserID" json:"budget,omitempty"`
}

// DisplayName returns the name used in greetings and emails.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}
