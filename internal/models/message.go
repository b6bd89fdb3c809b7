package models

import (
	"time"

	"gorm.io/gorm"
)

const MaxMessageLength = 140

type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Text      string    `json:"text" gorm:"type:varchar(140);not null;check:text <> ''" validate:"required,max=140"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;autoCreateTime;index"`
	UserID    *uint     `json:"user_id" gorm:"index"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" validate:"-"`
}

// Like records that UserID liked MessageID. The pair is the primary key, so a
// user can like a given message at most once.
type Like struct {
	UserID    uint      `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	MessageID uint      `json:"message_id" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `json:"created_at"`

	User    *User    `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Message *Message `json:"-" gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
}

func (Message) TableName() string {
	return "messages"
}

func (Like) TableName() string {
	return "likes"
}

// AuthoredBy reports whether userID wrote the message.
func (m *Message) AuthoredBy(userID uint) bool {
	return m.UserID != nil && *m.UserID == userID
}

func (m *Message) BeforeSave(tx *gorm.DB) error {
	return validate.Struct(m)
}
