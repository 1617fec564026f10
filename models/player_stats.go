package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultElo is the rating assigned to a player's stats row on first contact.
const DefaultElo = 1000

// PlayerStats is the local rating/record row for one player. Identity lives in
// the profile service; we only key on its external user id (forwarded by the
// Gateway as X-User-ID).
type PlayerStats struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username       string `gorm:"index;not null" json:"username"`

	Elo    int64 `gorm:"default:1000" json:"elo"`
	Wins   int64 `gorm:"default:0" json:"wins"`
	Draws  int64 `gorm:"default:0" json:"draws"`
	Losses int64 `gorm:"default:0" json:"losses"`

	// ActiveMatchID marks the player as a participant of a live match. The
	// match stream endpoint authorizes joins against it; nil = not in a match.
	ActiveMatchID *string `gorm:"index" json:"active_match_id,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
