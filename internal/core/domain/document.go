package domain

import "time"

type Document struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Filename     string    `json:"filename"`
	MimeType     string    `json:"mime_type"`
	StorageKey   string    `json:"storage_key"`
	Indexed      bool      `json:"indexed"`
	ErrorMessage string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
