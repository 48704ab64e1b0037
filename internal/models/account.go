package models

import (
	"fmt"
	"time"
)

// AccountStatus marks how far an account has progressed through the sync
// pipeline. Statuses are milestones, not strict steps: an account may jump
// forward over a stage, but it never moves backward.
type AccountStatus string

const (
	StatusInitial      AccountStatus = "initial"
	StatusExtracted    AccountStatus = "extracted"
	StatusIndexed      AccountStatus = "indexed"
	StatusTranscribed  AccountStatus = "transcribed"
	StatusFramewatched AccountStatus = "framewatched"
)

var statusRank = map[AccountStatus]int{
	StatusInitial:      0,
	StatusExtracted:    1,
	StatusIndexed:      2,
	StatusTranscribed:  3,
	StatusFramewatched: 4,
}

// ParseAccountStatus validates a stored status string.
func ParseAccountStatus(s string) (AccountStatus, error) {
	status := AccountStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown account status %q", s)
	}
	return status, nil
}

// Valid reports whether the status is one of the known milestones.
func (s AccountStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank returns the position of the status in the pipeline ordering.
func (s AccountStatus) Rank() int {
	return statusRank[s]
}

// CanAdvance reports whether moving to next is a forward transition.
// Skipping intermediate milestones is allowed, regressing is not.
func (s AccountStatus) CanAdvance(next AccountStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.Rank() > s.Rank()
}

// Account represents an Instagram creator tracked by the sync pipeline
type Account struct {
	UserID         string        `gorm:"type:varchar(64);primaryKey;column:user_id"`
	Username       string        `gorm:"type:varchar(64);not null;uniqueIndex:ig_creators_ux1;column:username"`
	FullName       string        `gorm:"type:varchar(128);not null;default:'';column:full_name"`
	Biography      string        `gorm:"type:text;column:bio"`
	Category       string        `gorm:"type:varchar(100);not null;default:'';column:category"`
	FollowerCount  int64         `gorm:"not null;default:0;column:follower_count"`
	FollowingCount int64         `gorm:"not null;default:0;column:following_count"`
	MediaCount     int64         `gorm:"not null;default:0;column:media_count"`
	ProfilePicURL  string        `gorm:"type:varchar(2048);not null;default:'';column:profile_pic_url"`
	PublicEmail    string        `gorm:"type:varchar(255);not null;default:'';column:public_email"`
	Status         AccountStatus `gorm:"type:varchar(16);not null;default:'initial';column:status"`

	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "ig_creators"
}
