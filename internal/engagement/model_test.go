package engagement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func vt(v VoteType) *VoteType { return &v }

func TestResolveToggle(t *testing.T) {
	cases := []struct {
		name      string
		existing  *VoteType
		requested VoteType
		op        voteOp
		dUp       int
		dDown     int
	}{
		{"new upvote", nil, Upvote, opInsert, 1, 0},
		{"new downvote", nil, Downvote, opInsert, 0, 1},
		{"repeat upvote removes", vt(Upvote), Upvote, opDelete, -1, 0},
		{"repeat downvote removes", vt(Downvote), Downvote, opDelete, 0, -1},
		{"downvote to upvote", vt(Downvote), Upvote, opSwitch, 1, -1},
		{"upvote to downvote", vt(Upvote), Downvote, opSwitch, -1, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			op, dUp, dDown := resolveToggle(tc.existing, tc.requested)
			assert.Equal(t, tc.op, op)
			assert.Equal(t, tc.dUp, dUp)
			assert.Equal(t, tc.dDown, dDown)
		})
	}
}

func TestLookup(t *testing.T) {
	table, err := Lookup(KindPost, true)
	assert.NoError(t, err)
	assert.Equal(t, "topic_posts", table)

	_, err = Lookup(TargetKind("App\\Models\\Post"), false)
	assert.ErrorIs(t, err, ErrUnknownTarget)

	// Proposals can be bookmarked but not voted.
	_, err = Lookup(KindProposal, true)
	assert.ErrorIs(t, err, ErrUnknownTarget)

	_, err = Lookup(KindProposal, false)
	assert.NoError(t, err)
}
