package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	UUIDBase
	Username    string   `gorm:"size:100;uniqueIndex" json:"username"`
	Email       string   `gorm:"size:100;uniqueIndex" json:"email"`
	Role        UserRole `gorm:"size:16;default:'student'" json:"role"`
	TotalPoints int      `gorm:"default:0" json:"totalPoints"`
}

func (User) TableName() string {
	return "users"
}
