package entity

import "time"

type User struct {
	Base

	Name string

	IdentityVerified  bool
	IdentityExpiredAt time.Time
}

type UserWallet struct {
	Base

	UserID string
	User   User `gorm:"foreignKey:UserID"`

	Chain   string
	Address string
}
