package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the account kind stored on a profile.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
	RoleParent  Role = "parent"
)

// Profile is any account of the platform. Teachers and students are both
// profiles; the role decides what they may do.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	SchoolID     int       `json:"school_id"`
	FullName     string    `json:"full_name"`
	Email        *string   `json:"email,omitempty"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// School groups profiles and classes. All class operations are isolated per school.
type School struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TeacherLoginRequest is the payload for teacher authentication.
type TeacherLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// TeacherLoginResponse is returned after successful teacher login.
type TeacherLoginResponse struct {
	Token   string  `json:"token"`
	Teacher Profile `json:"teacher"`
}
