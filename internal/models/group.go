package models

import "time"

// Group ids are sequential and immutable; NameKey holds the trimmed,
// lowercased name and backs the registry-wide uniqueness constraint.
type Group struct {
	ID          uint32      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string      `json:"name" gorm:"type:varchar(150);not null"`
	NameKey     string      `json:"-" gorm:"type:varchar(150);not null;uniqueIndex"`
	Enabled     bool        `json:"enabled" gorm:"not null;default:true"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	Memberships []GroupUser `json:"memberships,omitempty" gorm:"foreignKey:GroupID"`
}
