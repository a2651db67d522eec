package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"        json:"id"`
	Username     string    `gorm:"not null"                    json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"        json:"email"`
	PasswordHash string    `gorm:"not null"                    json:"-"`
	Role         Role      `gorm:"type:varchar(16);not null"   json:"role"`
	CreatedAt    time.Time `                                   json:"created_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Advert is a produce listing. OwnerID references User.ID; deleting a user
// leaves their adverts in place.
type Advert struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"                json:"id"`
	Title       string    `gorm:"not null"                            json:"title"`
	Description string    `gorm:"not null"                            json:"description"`
	Price       float64   `gorm:"not null;check:price >= 0"           json:"price"`
	Category    string    `gorm:"not null;index"                      json:"category"`
	Quantity    int64     `gorm:"not null;check:quantity >= 0"        json:"quantity"`
	ImageURL    string    `gorm:"not null"                            json:"image_url"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index"            json:"owner"`
	CreatedAt   time.Time `gorm:"index"                               json:"created_at"`
	UpdatedAt   time.Time `                                           json:"updated_at"`
}

func (a *Advert) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
