package auth

import "time"

// User is an account row. Accounts are provisioned either by registration
// (email + password) or lazily from the bot (telegram id only), so email and
// the password hash are both optional. TelegramID links the external bot
// identity.
type User struct {
	ID           uint64    `gorm:"primaryKey"`
	Email        *string   `gorm:"uniqueIndex"`
	PasswordHash string    `gorm:"type:text"`
	TelegramID   *string   `gorm:"uniqueIndex"`
	Name         *string   `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null"`
}
