package user

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered account holder. Balance is a fixed-point
// amount with two decimal places and is mutated only by the ledger.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Balance      decimal.Decimal
	CreatedAt    time.Time
}

// Profile is the public view of a user, safe to return over the API.
type Profile struct {
	ID        int64           `json:"id"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Email     string          `json:"email"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
}

// PublicProfile strips credentials from a user record.
func (u User) PublicProfile() Profile {
	return Profile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Balance:   u.Balance,
		CreatedAt: u.CreatedAt,
	}
}
