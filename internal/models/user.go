package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	DefaultImageURL       = "/static/images/default-pic.png"
	DefaultHeaderImageURL = "/static/images/warbler-hero.jpg"
)

type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null;check:email <> ''" validate:"required,max=254"`
	Username       string    `json:"username" gorm:"uniqueIndex;not null;check:username <> ''" validate:"required,max=64"`
	Password       string    `json:"-" gorm:"not null" validate:"required"`
	ImageURL       string    `json:"image_url"`
	HeaderImageURL string    `json:"header_image_url"`
	Bio            string    `json:"bio"`
	Location       string    `json:"location"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Messages []Message `json:"messages,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" validate:"-"`
}

// Follow is one directed edge: UserFollowingID follows UserBeingFollowedID.
type Follow struct {
	UserBeingFollowedID uint      `json:"user_being_followed_id" gorm:"primaryKey;autoIncrement:false"`
	UserFollowingID     uint      `json:"user_following_id" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt           time.Time `json:"created_at"`

	BeingFollowed *User `json:"-" gorm:"foreignKey:UserBeingFollowedID;constraint:OnDelete:CASCADE"`
	Following     *User `json:"-" gorm:"foreignKey:UserFollowingID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}

func (Follow) TableName() string {
	return "follows"
}

func (u *User) String() string {
	return fmt.Sprintf("<User #%d: %s, %s>", u.ID, u.Username, u.Email)
}

// BeforeSave fills in the image defaults and rejects rows that would break
// the non-null columns.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.ImageURL == "" {
		u.ImageURL = DefaultImageURL
	}
	if u.HeaderImageURL == "" {
		u.HeaderImageURL = DefaultHeaderImageURL
	}
	return validate.Struct(u)
}
