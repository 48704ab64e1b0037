package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// CollaboratorType records which upstream structure a collaborator was
// discovered in.
type CollaboratorType string

const (
	CollabInvitedCoauthor CollaboratorType = "invited_coauthor"
	CollabCoauthor        CollaboratorType = "coauthor"
	CollabSponsor         CollaboratorType = "sponsor"
	CollabTaggedUser      CollaboratorType = "tagged_user"
)

// Collaborator is another account associated with a post
type Collaborator struct {
	UserID        string           `json:"user_id"`
	Username      string           `json:"username"`
	FullName      string           `json:"full_name"`
	ProfilePicURL string           `json:"profile_pic_url"`
	IsVerified    bool             `json:"is_verified"`
	Type          CollaboratorType `json:"type"`
}

// Label returns the display form used when collaborators are folded into
// search text: username and full name joined by a space, either side
// omitted when empty.
func (c Collaborator) Label() string {
	return strings.TrimSpace(c.Username + " " + c.FullName)
}

// CollaboratorList stores collaborators as a single JSONB column.
type CollaboratorList []Collaborator

// Value implements driver.Valuer for gorm.
func (l CollaboratorList) Value() (driver.Value, error) {
	if l == nil {
		l = CollaboratorList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for gorm.
func (l *CollaboratorList) Scan(value interface{}) error {
	if value == nil {
		*l = CollaboratorList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported collaborator column type %T", value)
	}
	if len(data) == 0 {
		*l = CollaboratorList{}
		return nil
	}
	return json.Unmarshal(data, l)
}
