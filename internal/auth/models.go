package auth

import "time"

const (
	RoleUser    = "User"
	RoleManager = "Manager"
	RoleAdmin   = "Admin"
)

// Roles lists the accepted role names in canonical spelling.
var Roles = []string{RoleUser, RoleManager, RoleAdmin}

type Account struct {
	ID           string    `gorm:"primaryKey;type:uuid"`
	FirstName    string    `gorm:"size:100;not null"`
	LastName     string    `gorm:"size:100;not null"`
	Email        string    `gorm:"size:255;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	Role         string    `gorm:"size:50;not null;default:'User'"`
	IsActive     bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"not null"`
	LastLoginAt  *time.Time
}

func (Account) TableName() string { return "app_auth.accounts" }

// DisplayName is the "First Last" form carried in token claims.
func (a *Account) DisplayName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	default:
		return a.FirstName + " " + a.LastName
	}
}

// AccountView is the public JSON shape of an account. It never carries the hash.
type AccountView struct {
	UserID      string     `json:"userId"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func (a *Account) View() AccountView {
	return AccountView{
		UserID:      a.ID,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Email:       a.Email,
		Role:        a.Role,
		CreatedAt:   a.CreatedAt,
		LastLoginAt: a.LastLoginAt,
	}
}

// Session is what a successful register or login hands back to the client.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   *Account
}
