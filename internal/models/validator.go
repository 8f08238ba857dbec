package models

import (
	"math"
	"strings"
	"time"
)

// Thresholds for the verified badge and the rating formula.
const (
	VerifiedMinRating     = 4.0
	VerifiedMinVotes      = 50
	VerifiedMinAccuracy   = 85.0
	VerifiedMinTenureDays = 90.0

	ratingStakeCeiling = 500 // tokens, 18 decimals applied in stakeWeight
	tenureBonusDays    = 90.0
)

// ValidatorRecord tracks one validator's derived reputation. The ledger owns
// the numeric facts (stake, transfers); this record owns rating and verified.
type ValidatorRecord struct {
	ID      uint   `gorm:"primarykey" json:"-"`
	Address string `gorm:"uniqueIndex;not null" json:"address"`

	TotalVotes        int `gorm:"index:idx_rating_votes" json:"totalVotes"`
	CorrectVotes      int `json:"correctVotes"`
	WrongVotes        int `json:"wrongVotes"`
	ArticlesValidated int `json:"articlesValidated"`

	// 18-decimal token amounts as decimal strings; never floats.
	TotalStake         string `gorm:"default:'0'" json:"totalStake"`
	TotalRewardsEarned string `gorm:"default:'0'" json:"totalRewardsEarned"`
	TotalPenaltiesPaid string `gorm:"default:'0'" json:"totalPenaltiesPaid"`

	Rating                  float64    `gorm:"index:idx_rating_votes" json:"rating"`
	Verified                bool       `json:"verified"`
	ConsecutiveCorrectVotes int        `json:"consecutiveCorrectVotes"`
	JoinedDate              time.Time  `json:"joinedDate"`
	LastVoteDate            *time.Time `json:"lastVoteDate,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// NormalizeAddress lower-cases an address for use as a record key.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Accuracy returns the correct-vote percentage, 0 with no votes.
func (v *ValidatorRecord) Accuracy() float64 {
	if v.TotalVotes == 0 {
		return 0
	}
	return float64(v.CorrectVotes) / float64(v.TotalVotes) * 100
}

// ParticipationRate returns the votes-per-validated-article percentage,
// capped at 100. Full participation is assumed before any outcome lands.
func (v *ValidatorRecord) ParticipationRate() float64 {
	if v.ArticlesValidated == 0 {
		return 100
	}
	return math.Min(float64(v.TotalVotes)/float64(v.ArticlesValidated)*100, 100)
}

func (v *ValidatorRecord) daysSinceJoined(now time.Time) float64 {
	return now.Sub(v.JoinedDate).Hours() / 24
}

// CalculateRating recomputes the weighted rating and clamps it to [0,5].
func (v *ValidatorRecord) CalculateRating(now time.Time) float64 {
	stakeWeight := math.Min(AmountToFloat(v.TotalStake)/(ratingStakeCeiling), 1)
	tenureBonus := math.Min(v.daysSinceJoined(now)/tenureBonusDays, 1)

	rating := (v.Accuracy()/100*0.50 +
		stakeWeight*0.25 +
		v.ParticipationRate()/100*0.15 +
		tenureBonus*0.10) * 5

	v.Rating = math.Min(math.Max(rating, 0), 5)
	return v.Rating
}

// UpdateVerifiedStatus re-evaluates all five badge conditions together.
// The badge is not sticky: any failing condition clears it.
func (v *ValidatorRecord) UpdateVerifiedStatus(now time.Time) bool {
	v.Verified = AmountAtLeastTokens(v.TotalStake, ratingStakeCeiling) &&
		v.Rating >= VerifiedMinRating &&
		v.TotalVotes >= VerifiedMinVotes &&
		v.Accuracy() >= VerifiedMinAccuracy &&
		v.daysSinceJoined(now) >= VerifiedMinTenureDays
	return v.Verified
}

// Recompute refreshes the derived fields before a persist.
func (v *ValidatorRecord) Recompute(now time.Time) {
	v.CalculateRating(now)
	v.UpdateVerifiedStatus(now)
}

// VoteState tracks a vote record's progress from cast to resolved.
type VoteState int

const (
	VoteCast     VoteState = 0
	VoteResolved VoteState = 1
)

// VoteRecord is the single per-(validator, article, proposal) vote entry.
// It exists so that vote-cast and vote-outcome notifications for the same
// logical vote update one row instead of two independent counters.
type VoteRecord struct {
	ID         uint      `gorm:"primarykey"`
	Validator  string    `gorm:"uniqueIndex:idx_vote_key;not null"`
	ArticleID  string    `gorm:"uniqueIndex:idx_vote_key;not null"`
	ProposalID string    `gorm:"uniqueIndex:idx_vote_key;default:''"`
	State      VoteState `gorm:"default:0"`
	Correct    *bool
	CastAt     time.Time
	ResolvedAt *time.Time
}
