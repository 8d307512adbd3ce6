package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringArrayRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   StringArray
		raw  interface{}
	}{
		{"nil", nil, nil},
		{"empty", StringArray{}, "{}"},
		{"values", StringArray{"fantasy", "slow-burn"}, "{fantasy,slow-burn}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.in.Value()
			require.NoError(t, err)
			assert.Equal(t, tt.raw, v)

			var out StringArray
			require.NoError(t, out.Scan(v))
			assert.Equal(t, tt.in, out)
		})
	}
}

func TestStringArrayScanBytes(t *testing.T) {
	var out StringArray
	require.NoError(t, out.Scan([]byte("{a,b}")))
	assert.Equal(t, StringArray{"a", "b"}, out)
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Fantasy ", "fantasy", "", "sci,fi", "Romance"})
	assert.Equal(t, StringArray{"fantasy", "scifi", "romance"}, got)
}

func TestVotableModels(t *testing.T) {
	n := &Novel{ID: "n1", VoteCounts: VoteCounts{LikeCount: 3, DislikeCount: 1}}
	assert.Equal(t, "novel", n.VoteKind().String())
	assert.Equal(t, "n1", n.VoteID())
	assert.Equal(t, int64(3), n.VoteTally().LikeCount)

	c := &Comment{ID: "c1"}
	assert.Equal(t, "comment", c.VoteKind().String())
	assert.Empty(t, (&Post{}).FileKeys())
	assert.Equal(t, []string{"covers/x.png"}, (&Novel{CoverKey: "covers/x.png"}).FileKeys())
}
