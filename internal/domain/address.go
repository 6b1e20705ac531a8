package domain

import "time"

type Address struct {
	ID        int64
	UserID    int64
	Name      string
	Phone     string
	Address   string
	City      string
	CreatedAt time.Time
}
