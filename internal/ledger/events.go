package ledger

// EventType names the ledger notifications the engine consumes.
type EventType string

const (
	EventArticleSubmitted      EventType = "ArticleSubmitted"
	EventArticleFinalized      EventType = "ArticleFinalized"
	EventAIScored              EventType = "AIScored"
	EventVoted                 EventType = "Voted"
	EventStaked                EventType = "Staked"
	EventUnstaked              EventType = "Unstaked"
	EventRewarded              EventType = "Rewarded"
	EventSlashed               EventType = "Slashed"
	EventArticleUpdateProposed EventType = "ArticleUpdateProposed"
)

// Event is a ledger notification. Deliveries may be duplicated or arrive out
// of order, so handlers treat the payload as a wake-up signal and re-read the
// authoritative state; only the identifying fields are consumed.
type Event struct {
	Type       EventType `json:"event"`
	ArticleID  string    `json:"articleId,omitempty"`
	ProposalID string    `json:"proposalId,omitempty"`
	Address    string    `json:"address,omitempty"`
	Decision   bool      `json:"decision,omitempty"`
	Amount     string    `json:"amount,omitempty"`
	Status     int       `json:"status,omitempty"`
}
