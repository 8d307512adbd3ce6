package models

import "github.com/zfogg/inkwell/internal/vote"

// VoteCounts are the denormalized like and dislike counters embedded in every
// votable model. They are only changed through the vote ledger.
type VoteCounts struct {
	LikeCount    int64 `gorm:"not null;default:0" json:"like_count"`
	DislikeCount int64 `gorm:"not null;default:0" json:"dislike_count"`
}

// VoteTally returns the counters as a ledger tally
func (v VoteCounts) VoteTally() vote.Tally {
	return vote.Tally{LikeCount: v.LikeCount, DislikeCount: v.DislikeCount}
}

var (
	_ vote.Votable = (*Novel)(nil)
	_ vote.Votable = (*Episode)(nil)
	_ vote.Votable = (*Post)(nil)
	_ vote.Votable = (*Comment)(nil)
)

func (n *Novel) VoteKind() vote.Kind   { return vote.KindNovel }
func (n *Novel) VoteID() string        { return n.ID }
func (e *Episode) VoteKind() vote.Kind { return vote.KindEpisode }
func (e *Episode) VoteID() string      { return e.ID }
func (p *Post) VoteKind() vote.Kind    { return vote.KindPost }
func (p *Post) VoteID() string         { return p.ID }
func (c *Comment) VoteKind() vote.Kind { return vote.KindComment }
func (c *Comment) VoteID() string      { return c.ID }
