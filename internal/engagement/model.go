package engagement

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("target not found")
	ErrUnknownTarget = errors.New("unknown target kind")
)

// TargetKind is the closed set of entities that can receive votes and
// bookmarks. Free-text type names are rejected at the boundary; the
// registry maps each kind to its backing table.
type TargetKind string

const (
	KindPost        TargetKind = "post"
	KindComment     TargetKind = "comment"
	KindNewsArticle TargetKind = "news_article"
	KindProposal    TargetKind = "proposal"
)

type targetMeta struct {
	Table   string
	Votable bool
}

var registry = map[TargetKind]targetMeta{
	KindPost:        {Table: "topic_posts", Votable: true},
	KindComment:     {Table: "comments", Votable: true},
	KindNewsArticle: {Table: "news_articles", Votable: true},
	KindProposal:    {Table: "project_proposals", Votable: false},
}

// Lookup resolves a kind; votableOnly additionally requires the kind to
// carry vote counters.
func Lookup(kind TargetKind, votableOnly bool) (string, error) {
	meta, ok := registry[kind]
	if !ok {
		return "", ErrUnknownTarget
	}
	if votableOnly && !meta.Votable {
		return "", ErrUnknownTarget
	}
	return meta.Table, nil
}

type VoteType string

const (
	Upvote   VoteType = "upvote"
	Downvote VoteType = "downvote"
)

type Vote struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Kind      TargetKind `json:"votable_type"`
	TargetID  string     `json:"votable_id"`
	VoteType  VoteType   `json:"vote_type"`
	CreatedAt time.Time  `json:"created_at"`
}

type Bookmark struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Kind      TargetKind `json:"bookmarkable_type"`
	TargetID  string     `json:"bookmarkable_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// VoteResult reports the post-toggle state plus the target's aggregate
// counters.
type VoteResult struct {
	Voted     bool      `json:"voted"`
	VoteType  *VoteType `json:"vote_type,omitempty"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
}

type voteOp int

const (
	opInsert voteOp = iota
	opDelete
	opSwitch
)

// resolveToggle decides what a vote request does given the existing
// vote: absent creates, same removes, different switches. The deltas
// are applied to the target's counters in the same transaction.
func resolveToggle(existing *VoteType, requested VoteType) (op voteOp, dUp, dDown int) {
	if existing == nil {
		if requested == Upvote {
			return opInsert, 1, 0
		}
		return opInsert, 0, 1
	}

	if *existing == requested {
		if requested == Upvote {
			return opDelete, -1, 0
		}
		return opDelete, 0, -1
	}

	if requested == Upvote {
		return opSwitch, 1, -1
	}
	return opSwitch, -1, 1
}
