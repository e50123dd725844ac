package store

import "time"

// Image describes one uploaded file's metadata and where its bytes live on disk.
type Image struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`     // randomized stored name
	OriginalName string    `json:"originalname"` // name the client sent
	MimeType     string    `json:"mimetype"`
	Size         int64     `json:"size"`
	Path         string    `json:"path"`
	CreatedAt    time.Time `json:"created_at"`
}

// ImageMeta is the insert payload for a new image row; the id and
// timestamp are assigned by the store.
type ImageMeta struct {
	Filename     string
	OriginalName string
	MimeType     string
	Size         int64
	Path         string
}

// Chat is one message in a conversation, optionally scoped to an image.
type Chat struct {
	ID        int64     `json:"id"`
	ImageID   *int64    `json:"imageId"` // nullable, no enforced FK
	Role      string    `json:"role"`    // "user" or "bot"
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
