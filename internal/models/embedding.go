package models

import "time"

// EmbeddingRecord is one stored vector per (EntityType, EntityID).
type EmbeddingRecord struct {
	ID         int64     `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	TextHash   string    `json:"text_hash"`
	Vector     []float32 `json:"-"`
	Dimensions int       `json:"dimensions"`
	Model      string    `json:"model"`
	Provider   string    `json:"provider"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Match is a similarity hit from the vector store.
type Match struct {
	EntityID int64   `json:"entity_id"`
	Score    float64 `json:"score"`
}
