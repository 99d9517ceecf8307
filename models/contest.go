package models

type Contest struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Year   int    `json:"year"`
	Active bool   `json:"active"`
}

type AgeCategory struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	MinAge int    `json:"min_age"`
	MaxAge int    `json:"max_age"`
}
