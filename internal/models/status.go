package models

// ArticleStatus mirrors the registry contract's status codes. The numeric
// values are part of the wire format and must not be reordered.
type ArticleStatus int

const (
	StatusSubmitted         ArticleStatus = 0
	StatusAIApproved        ArticleStatus = 1
	StatusUnderReview       ArticleStatus = 2
	StatusValidatorApproved ArticleStatus = 3
	StatusRejected          ArticleStatus = 4
	StatusPublished         ArticleStatus = 5
)

var statusNames = map[ArticleStatus]string{
	StatusSubmitted:         "Submitted",
	StatusAIApproved:        "AIApproved",
	StatusUnderReview:       "UnderReview",
	StatusValidatorApproved: "ValidatorApproved",
	StatusRejected:          "Rejected",
	StatusPublished:         "Published",
}

func (s ArticleStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

func (s ArticleStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Terminal reports whether the base lifecycle can no longer change.
// A Published article may still gain versions through update proposals.
func (s ArticleStatus) Terminal() bool {
	return s == StatusPublished || s == StatusRejected
}

// CanTransition reports whether moving from s to next is legal. Terminal
// states only accept themselves; the ledger never regresses an article, so a
// regressing value indicates a stale re-read and must be discarded.
func (s ArticleStatus) CanTransition(next ArticleStatus) bool {
	if s.Terminal() {
		return next == s
	}
	return true
}

// ProposalStatus mirrors the registry contract's update proposal states.
type ProposalStatus int

const (
	ProposalPending  ProposalStatus = 0
	ProposalApproved ProposalStatus = 1
	ProposalRejected ProposalStatus = 2
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalPending:
		return "Pending"
	case ProposalApproved:
		return "Approved"
	case ProposalRejected:
		return "Rejected"
	}
	return "Unknown"
}
