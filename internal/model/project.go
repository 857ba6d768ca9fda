package model

import "time"

type Project struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	ClientName string    `json:"client_name"`
	CreatedAt  time.Time `json:"created_at"`
}
