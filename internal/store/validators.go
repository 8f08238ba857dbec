package store

import (
	"errors"
	"time"
	"verity/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetOrCreateValidator fetches a validator record, creating it lazily on
// first observation. JoinedDate is set exactly once.
func (s *Store) GetOrCreateValidator(address string) (*models.ValidatorRecord, error) {
	address = models.NormalizeAddress(address)

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoNothing: true,
	}).Create(&models.ValidatorRecord{
		Address:            address,
		TotalStake:         "0",
		TotalRewardsEarned: "0",
		TotalPenaltiesPaid: "0",
		JoinedDate:         time.Now().UTC(),
	}).Error; err != nil {
		return nil, err
	}

	var v models.ValidatorRecord
	if err := s.db.Where("address = ?", address).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) GetValidator(address string) (*models.ValidatorRecord, error) {
	var v models.ValidatorRecord
	err := s.db.Where("address = ?", models.NormalizeAddress(address)).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) SaveValidator(v *models.ValidatorRecord) error {
	return s.db.Save(v).Error
}

// LockValidator loads a validator row under a write lock inside tx.
func (s *Store) LockValidator(tx *gorm.DB, address string) (*models.ValidatorRecord, error) {
	var v models.ValidatorRecord
	q := tx
	for _, c := range s.forUpdate() {
		q = q.Clauses(c)
	}
	if err := q.Where("address = ?", models.NormalizeAddress(address)).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateVoteRecord inserts the cast entry for one logical vote. Returns
// false when the vote was already recorded, so the same notification
// delivered twice counts once.
func (s *Store) CreateVoteRecord(tx *gorm.DB, validator, articleID, proposalID string) (bool, error) {
	rec := models.VoteRecord{
		Validator:  models.NormalizeAddress(validator),
		ArticleID:  articleID,
		ProposalID: proposalID,
		State:      models.VoteCast,
		CastAt:     time.Now().UTC(),
	}
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "validator"}, {Name: "article_id"}, {Name: "proposal_id"}},
		DoNothing: true,
	}).Create(&rec)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// VoteResolution reports how a vote outcome matched up against the recorded
// vote entries.
type VoteResolution int

const (
	// VoteSettled: a pending cast record transitioned to resolved.
	VoteSettled VoteResolution = iota
	// VoteUntracked: the engine never observed the cast; a resolved record
	// was created so a replay of this outcome becomes a no-op.
	VoteUntracked
	// VoteDuplicate: the record was already resolved; nothing to count.
	VoteDuplicate
)

// ResolveVote settles the vote record keyed by (validator, article, proposal).
// Exactly one delivery of an outcome counts; every replay after that reports
// VoteDuplicate.
func (s *Store) ResolveVote(tx *gorm.DB, validator, articleID, proposalID string, correct bool) (VoteResolution, error) {
	addr := models.NormalizeAddress(validator)
	now := time.Now().UTC()

	result := tx.Model(&models.VoteRecord{}).
		Where("validator = ? AND article_id = ? AND proposal_id = ? AND state = ?",
			addr, articleID, proposalID, models.VoteCast).
		Updates(map[string]interface{}{
			"state":       models.VoteResolved,
			"correct":     correct,
			"resolved_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		return VoteSettled, nil
	}

	rec := models.VoteRecord{
		Validator:  addr,
		ArticleID:  articleID,
		ProposalID: proposalID,
		State:      models.VoteResolved,
		Correct:    &correct,
		CastAt:     now,
		ResolvedAt: &now,
	}
	inserted := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "validator"}, {Name: "article_id"}, {Name: "proposal_id"}},
		DoNothing: true,
	}).Create(&rec)
	if inserted.Error != nil {
		return 0, inserted.Error
	}
	if inserted.RowsAffected > 0 {
		return VoteUntracked, nil
	}
	// The row exists and is no longer in the cast state.
	return VoteDuplicate, nil
}

// ResolveOldestVote transitions the validator's oldest unresolved vote to
// resolved. Returns false when no cast vote is pending, meaning the outcome
// belongs to a vote this engine never observed being cast. Used only for
// outcome notifications that carry no article id.
func (s *Store) ResolveOldestVote(tx *gorm.DB, validator string, correct bool) (bool, error) {
	var rec models.VoteRecord
	err := tx.Where("validator = ? AND state = ?", models.NormalizeAddress(validator), models.VoteCast).
		Order("cast_at ASC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	result := tx.Model(&models.VoteRecord{}).
		Where("id = ? AND state = ?", rec.ID, models.VoteCast).
		Updates(map[string]interface{}{
			"state":       models.VoteResolved,
			"correct":     correct,
			"resolved_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	// Zero rows means a concurrent handler resolved it first.
	return result.RowsAffected > 0, nil
}

// TopValidators returns the leaderboard: rating desc, then vote count desc.
func (s *Store) TopValidators(limit int) ([]models.ValidatorRecord, error) {
	var validators []models.ValidatorRecord
	err := s.db.Order("rating DESC, total_votes DESC").Limit(limit).Find(&validators).Error
	return validators, err
}

// ListValidators pages all validators by rating desc with a total count.
func (s *Store) ListValidators(page, limit int) ([]models.ValidatorRecord, int64, error) {
	var total int64
	if err := s.db.Model(&models.ValidatorRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var validators []models.ValidatorRecord
	err := s.db.Order("rating DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&validators).Error
	return validators, total, err
}

// AllValidators streams every record, for bulk recalculation.
func (s *Store) AllValidators() ([]models.ValidatorRecord, error) {
	var validators []models.ValidatorRecord
	err := s.db.Find(&validators).Error
	return validators, err
}
