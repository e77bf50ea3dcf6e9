package services

import (
	"time"

	"github.com/teampulse-io/teampulse/backend/internal/models"
	"gorm.io/gorm"
)

// Read-side queries for the operator API. These sit on GormStore but
// outside the Store port; the engine and checks never need them.

// ActionFilter narrows ListActions. Zero values mean "no filter".
type ActionFilter struct {
	RunID  uint
	Status string
	Type   string
	Limit  int
}

func (s *GormStore) ListActions(filter ActionFilter) ([]models.AutomationAction, error) {
	query := s.db.Model(&models.AutomationAction{})
	if filter.RunID != 0 {
		query = query.Where("run_id = ?", filter.RunID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var actions []models.AutomationAction
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}

func (s *GormStore) GetRun(id uint) (*models.AutomationRun, error) {
	var run models.AutomationRun
	if err := s.db.First(&run, id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *GormStore) UpdateAutomationConfig(cfg *models.AutomationConfig) error {
	return s.db.Save(cfg).Error
}

func (s *GormStore) ListFlags(status string, memberID uint) ([]models.AccountabilityFlag, error) {
	query := s.db.Model(&models.AccountabilityFlag{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if memberID != 0 {
		query = query.Where("team_member_id = ?", memberID)
	}

	var flags []models.AccountabilityFlag
	if err := query.Order("created_at DESC, id DESC").Find(&flags).Error; err != nil {
		return nil, err
	}
	return flags, nil
}

func (s *GormStore) ResolveFlag(id uint) error {
	now := time.Now()
	result := s.db.Model(&models.AccountabilityFlag{}).
		Where("id = ? AND status = ?", id, models.FlagStatusActive).
		Updates(map[string]interface{}{
			"status":      models.FlagStatusResolved,
			"resolved_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *GormStore) ListPatterns(memberID uint, limit int) ([]models.EngineerPattern, error) {
	query := s.db.Model(&models.EngineerPattern{})
	if memberID != 0 {
		query = query.Where("team_member_id = ?", memberID)
	}
	if limit <= 0 {
		limit = 12
	}

	var patterns []models.EngineerPattern
	if err := query.Order("week_start DESC, team_member_id ASC").Limit(limit).Find(&patterns).Error; err != nil {
		return nil, err
	}
	return patterns, nil
}
