package reputation

import (
	"context"
	"time"
	"verity/internal/ledger"
	"verity/internal/models"
	"verity/internal/providers"
	"verity/internal/store"

	"gorm.io/gorm"
)

// ServiceInterface owns validator reputation. It is the only writer of the
// derived rating/verified fields; the ledger owns the underlying facts.
type ServiceInterface interface {
	RecordVoteCast(validator, articleID, proposalID string) error
	RecordVoteOutcome(validator, articleID, proposalID string, correct bool, rewardAmount, penaltyAmount string) error
	UpdateStake(validator, newBalance string) error
	Profile(ctx context.Context, address string) (*models.ValidatorRecord, error)
	TopValidators(limit int) ([]models.ValidatorRecord, error)
	ListValidators(page, limit int) (*ValidatorPage, error)
	RecalculateAll() (int, error)
}

// ValidatorPage is one page of the validator listing.
type ValidatorPage struct {
	Validators []models.ValidatorRecord `json:"validators"`
	Total      int64                    `json:"total"`
	Page       int                      `json:"page"`
	Pages      int                      `json:"pages"`
}

type Service struct {
	store   *store.Store
	gateway ledger.Gateway
	logger  providers.Logger
}

func NewService(st *store.Store, gateway ledger.Gateway, logger providers.Logger) ServiceInterface {
	return &Service{store: st, gateway: gateway, logger: logger}
}

// RecordVoteCast registers one observed vote. totalVotes is incremented
// exactly once per (validator, article, proposal): re-delivery of the same
// notification finds the existing vote record and changes nothing.
func (s *Service) RecordVoteCast(validator, articleID, proposalID string) error {
	if _, err := s.store.GetOrCreateValidator(validator); err != nil {
		return err
	}

	return s.store.WithTx(func(tx *gorm.DB) error {
		created, err := s.store.CreateVoteRecord(tx, validator, articleID, proposalID)
		if err != nil {
			return err
		}
		if !created {
			s.logger.Debugf(providers.TypeSync, "Vote by %s on article %s already recorded", validator, articleID)
			return nil
		}

		v, err := s.store.LockValidator(tx, validator)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		v.TotalVotes++
		v.LastVoteDate = &now
		v.Recompute(now)
		return tx.Save(v).Error
	})
}

// RecordVoteOutcome settles one vote, keyed by (validator, article, proposal).
// The matching cast record transitions to resolved exactly once; a replayed
// Rewarded/Slashed delivery finds the record already resolved and changes
// nothing. An outcome with no cast record means the vote was placed outside
// this engine, so the vote and the outcome are counted together. Outcomes
// with no article id settle the validator's oldest pending vote instead.
func (s *Service) RecordVoteOutcome(validator, articleID, proposalID string, correct bool, rewardAmount, penaltyAmount string) error {
	if _, err := s.store.GetOrCreateValidator(validator); err != nil {
		return err
	}

	return s.store.WithTx(func(tx *gorm.DB) error {
		outcome := store.VoteUntracked
		if articleID != "" {
			var err error
			outcome, err = s.store.ResolveVote(tx, validator, articleID, proposalID, correct)
			if err != nil {
				return err
			}
		} else {
			resolved, err := s.store.ResolveOldestVote(tx, validator, correct)
			if err != nil {
				return err
			}
			if resolved {
				outcome = store.VoteSettled
			}
		}
		if outcome == store.VoteDuplicate {
			s.logger.Debugf(providers.TypeSync, "Outcome for %s on article %s already applied", validator, articleID)
			return nil
		}

		v, err := s.store.LockValidator(tx, validator)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if outcome == store.VoteUntracked {
			v.TotalVotes++
			v.LastVoteDate = &now
		}

		if correct {
			v.CorrectVotes++
			v.ConsecutiveCorrectVotes++
			v.TotalRewardsEarned = models.AddAmounts(v.TotalRewardsEarned, rewardAmount)
		} else {
			v.WrongVotes++
			v.ConsecutiveCorrectVotes = 0
			v.TotalPenaltiesPaid = models.AddAmounts(v.TotalPenaltiesPaid, penaltyAmount)
		}
		v.ArticlesValidated++
		v.Recompute(now)
		return tx.Save(v).Error
	})
}

// UpdateStake overwrites the stake with the authoritative ledger balance.
// Deltas from events are never applied; the caller must pass a fresh read.
func (s *Service) UpdateStake(validator, newBalance string) error {
	v, err := s.store.GetOrCreateValidator(validator)
	if err != nil {
		return err
	}
	v.TotalStake = newBalance
	v.Recompute(time.Now().UTC())
	return s.store.SaveValidator(v)
}

// Profile re-reads the validator's stake from the ledger, refreshes the
// record and returns it.
func (s *Service) Profile(ctx context.Context, address string) (*models.ValidatorRecord, error) {
	balance, err := s.gateway.StakedBalance(ctx, address)
	if err != nil {
		s.logger.Warnf(providers.TypeLedger, "Stake read failed for %s: %s (serving cached profile)", address, err)
	} else if err := s.UpdateStake(address, balance); err != nil {
		return nil, err
	}
	return s.store.GetOrCreateValidator(address)
}

func (s *Service) TopValidators(limit int) ([]models.ValidatorRecord, error) {
	return s.store.TopValidators(limit)
}

func (s *Service) ListValidators(page, limit int) (*ValidatorPage, error) {
	validators, total, err := s.store.ListValidators(page, limit)
	if err != nil {
		return nil, err
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	return &ValidatorPage{Validators: validators, Total: total, Page: page, Pages: pages}, nil
}

// RecalculateAll recomputes rating and verified status for every record.
// Idempotent and safe to re-run; each record is last-write-wins.
func (s *Service) RecalculateAll() (int, error) {
	validators, err := s.store.AllValidators()
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	count := 0
	for i := range validators {
		v := &validators[i]
		v.Recompute(now)
		if err := s.store.SaveValidator(v); err != nil {
			s.logger.Errorf(providers.TypeApp, "Recalculation failed for %s: %s", v.Address, err)
			continue
		}
		count++
	}
	return count, nil
}
