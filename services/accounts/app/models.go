package app

import (
	"time"

	"gorm.io/gorm"
)

// The models describe the tables for migration only. All reads and writes go
// through the resource engine.

// Base holds the columns every entity table has
type Base struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UUID      string `gorm:"size:36;not null;uniqueIndex"`
	CreatedAt *time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time `gorm:"index"`
}

// User is a registered user
type User struct {
	Base
	FirstName     *string `gorm:"size:255"`
	LastName      *string `gorm:"size:255"`
	Email         string  `gorm:"size:255;not null;uniqueIndex"`
	Password      string  `gorm:"size:255;not null"`
	Phone         *string `gorm:"size:32"`
	RememberToken *string `gorm:"size:100"`
}

// State is an Australian state or territory
type State struct {
	Base
	Name      string `gorm:"size:255;not null;uniqueIndex"`
	ShortName string `gorm:"size:10;not null;uniqueIndex"`
}

// PasswordReset is a pending password reset of a user
type PasswordReset struct {
	Base
	UserID *int64 `gorm:"index"`
	User   *User  `gorm:"constraint:OnDelete:CASCADE"`
}

// Role is the role of a user within a client
type Role struct {
	Base
	Name string `gorm:"size:255;not null;uniqueIndex"`
}

// Client is a customer organisation
type Client struct {
	Base
	Name                string  `gorm:"size:255"`
	Abn                 *string `gorm:"size:32;uniqueIndex"`
	StateID             *int64  `gorm:"index"`
	State               *State
	OwnerID             *int64 `gorm:"index"`
	Owner               *User  `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL"`
	ExternalReferenceID *string `gorm:"size:255"`
}

// Contact is a contact person of a client
type Contact struct {
	Base
	Name     string  `gorm:"size:255"`
	Email    *string `gorm:"size:255"`
	Phone    *string `gorm:"size:32"`
	ClientID *int64  `gorm:"index"`
	Client   *Client `gorm:"constraint:OnDelete:CASCADE"`
}

// ClientUser is the membership of a user in a client
type ClientUser struct {
	ClientID int64   `gorm:"primaryKey"`
	Client   *Client `gorm:"constraint:OnDelete:CASCADE"`
	UserID   int64   `gorm:"primaryKey"`
	User     *User   `gorm:"constraint:OnDelete:CASCADE"`
	RoleID   *int64
	Role     *Role `gorm:"constraint:OnDelete:SET NULL"`
}

// TableName implements gorm's tabler
func (ClientUser) TableName() string {
	return "client_user"
}

// Migrate creates or updates all tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&State{}, &User{}, &Role{}, &Client{}, &Contact{}, &PasswordReset{}, &ClientUser{})
}
