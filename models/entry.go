package models

import "time"

type Entry struct {
	ID              int       `json:"id"`
	ContestID       int       `json:"contest_id"`
	EntryNumber     int       `json:"entry_number"`
	AgeCategoryID   int       `json:"age_category_id"`
	FrontImageKey   string    `json:"-"`
	BackImageKey    *string   `json:"-"`
	ParticipantName string    `json:"participant_name"`
	ParticipantAge  int       `json:"participant_age"`
	ArtistStatement *string   `json:"artist_statement,omitempty"`
	CreatedAt       time.Time `json:"created_at"`

	// Public URLs resolved from the object store keys at render time.
	FrontImageURL string  `json:"front_image_url,omitempty"`
	BackImageURL  *string `json:"back_image_url,omitempty"`
}
