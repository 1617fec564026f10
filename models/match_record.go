package models

import "time"

// MatchRecord is the persisted outcome of one completed match. Written exactly
// once when a session terminates; ratings in it are the pre-match snapshots.
type MatchRecord struct {
	ID string `gorm:"primaryKey;type:uuid" json:"id"` // the match id

	Player1ID   string `gorm:"index;not null" json:"player1_id"`
	Player1Name string `json:"player1_name"`
	Player1Elo  int64  `json:"player1_elo"`

	Player2ID   string `gorm:"index;not null" json:"player2_id"`
	Player2Name string `json:"player2_name"`
	Player2Elo  int64  `json:"player2_elo"`

	// WinnerID is nil for a draw.
	WinnerID *string `gorm:"index" json:"winner_id,omitempty"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	// Archive export bookkeeping (see workers.MatchArchiveWorker).
	Archived   bool    `gorm:"default:false;index" json:"archived"`
	ArchiveURL *string `json:"archive_url,omitempty"`

	Timestamps
}
