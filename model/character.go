package model

import "time"

// Character is the slice of a player's character the guild bank needs:
// display stats for the roster and the purse.
type Character struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID int64     `gorm:"index:idx_account;not null" json:"account_id"`
	Name      string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Level     int       `gorm:"default:1" json:"level"`
	Race      int       `gorm:"default:0" json:"race"`
	Class     int       `gorm:"not null" json:"class"`
	Gender    int       `gorm:"default:0" json:"gender"`
	Zone      int       `gorm:"default:0" json:"zone"`
	Gold      uint64    `gorm:"default:0" json:"gold"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
