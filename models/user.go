package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role is a user's authority inside the tracker.
type Role string

const (
	RoleCitizen Role = "CITIZEN"
	RoleStaff   Role = "STAFF"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole accepts "staff", "ROLE_STAFF" and similar spellings.
func ParseRole(s string) (Role, bool) {
	name := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "ROLE_")
	switch Role(name) {
	case RoleCitizen, RoleStaff, RoleAdmin:
		return Role(name), true
	}
	return "", false
}

type User struct {
	ID        int64     `bson:"_id" json:"id"`
	FullName  string    `bson:"fullName" json:"fullName"`
	UserName  string    `bson:"userName" json:"userName"`
	Password  string    `bson:"password,omitempty" json:"-"`
	Roles     []Role    `bson:"roles" json:"roles"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) HasRole(role Role) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool { return u.HasRole(RoleAdmin) }

// Ref returns the embedded reference stored on issues and comments.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.FullName}
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

// UserRef is the denormalized user snapshot embedded in other documents.
type UserRef struct {
	ID   int64  `bson:"_id" json:"id"`
	Name string `bson:"name" json:"name"`
}
