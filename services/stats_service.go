package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"game-match-system/models"
)

// StatsService is the gorm-backed RatingStore.
type StatsService struct {
	DB *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{DB: db}
}

// EnsureStats loads a player's stats row, creating a default-rating row on
// first contact. A non-empty username refreshes the stored display name.
func (s *StatsService) EnsureStats(userID, username string) (*models.PlayerStats, error) {
	var stats models.PlayerStats
	err := s.DB.Where("external_user_id = ?", userID).First(&stats).Error
	if err == nil {
		if username != "" && stats.Username != username {
			// keep the display name fresh; best-effort
			if uerr := s.DB.Model(&stats).Update("username", username).Error; uerr != nil {
				log.Printf("⚠️ [STATS] failed to refresh username for %s: %v", userID, uerr)
			} else {
				stats.Username = username
			}
		}
		return &stats, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load stats for %s: %w", userID, err)
	}
	if username == "" {
		username = userID
	}
	stats = models.PlayerStats{ExternalUserID: userID, Username: username, Elo: models.DefaultElo}
	if err := s.DB.Create(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to create stats for %s: %w", userID, err)
	}
	return &stats, nil
}

// GetStats implements RatingStore.
func (s *StatsService) GetStats(userID string) (*PlayerRecord, error) {
	stats, err := s.EnsureStats(userID, "")
	if err != nil {
		return nil, err
	}
	return &PlayerRecord{
		UserID:   stats.ExternalUserID,
		Username: stats.Username,
		Elo:      stats.Elo,
		Wins:     stats.Wins,
		Draws:    stats.Draws,
		Losses:   stats.Losses,
	}, nil
}

// MarkActive implements RatingStore. The marker is what the match stream
// endpoint authorizes joins against.
func (s *StatsService) MarkActive(userID string, matchID uuid.UUID) error {
	id := matchID.String()
	return s.DB.Model(&models.PlayerStats{}).
		Where("external_user_id = ?", userID).
		Update("active_match_id", id).Error
}

// ClearActive implements RatingStore.
func (s *StatsService) ClearActive(userID string) error {
	return s.DB.Model(&models.PlayerStats{}).
		Where("external_user_id = ?", userID).
		Update("active_match_id", nil).Error
}

// IsParticipant reports whether the user's active-match marker points at the
// given match.
func (s *StatsService) IsParticipant(userID string, matchID uuid.UUID) (bool, error) {
	var stats models.PlayerStats
	err := s.DB.Where("external_user_id = ?", userID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stats.ActiveMatchID != nil && *stats.ActiveMatchID == matchID.String(), nil
}

// CommitMatch implements RatingStore: one transaction records the match and
// applies the rating exchange plus win/draw/loss counters to both players.
func (s *StatsService) CommitMatch(m CompletedMatch) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var winnerID *string
		if m.WinnerID != "" {
			id := m.WinnerID
			winnerID = &id
		}
		record := models.MatchRecord{
			ID:          m.MatchID.String(),
			Player1ID:   m.Player1.UserID,
			Player1Name: m.Player1.Username,
			Player1Elo:  m.Player1.Elo,
			Player2ID:   m.Player2.UserID,
			Player2Name: m.Player2.Username,
			Player2Elo:  m.Player2.Elo,
			WinnerID:    winnerID,
			StartedAt:   m.StartedAt,
			EndedAt:     m.EndedAt,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record match %s: %w", m.MatchID, err)
		}

		var p1, p2 models.PlayerStats
		if err := tx.Where("external_user_id = ?", m.Player1.UserID).First(&p1).Error; err != nil {
			return fmt.Errorf("failed to load stats for %s: %w", m.Player1.UserID, err)
		}
		if err := tx.Where("external_user_id = ?", m.Player2.UserID).First(&p2).Error; err != nil {
			return fmt.Errorf("failed to load stats for %s: %w", m.Player2.UserID, err)
		}

		score1 := 0.5
		switch m.WinnerID {
		case "":
			// draw
		case m.Player1.UserID:
			score1 = 1
			p1.Wins++
			p2.Losses++
		default:
			score1 = 0
			p1.Losses++
			p2.Wins++
		}
		if score1 == 0.5 {
			p1.Draws++
			p2.Draws++
		}

		p1.Elo, p2.Elo = EloExchange(p1.Elo, p2.Elo, score1)
		if err := tx.Save(&p1).Error; err != nil {
			return fmt.Errorf("failed to update stats for %s: %w", p1.ExternalUserID, err)
		}
		if err := tx.Save(&p2).Error; err != nil {
			return fmt.Errorf("failed to update stats for %s: %w", p2.ExternalUserID, err)
		}
		return nil
	})
}
