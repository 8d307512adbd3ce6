package vote

import (
	"fmt"
	"strings"
)

// Kind identifies a votable entity type. Its string value is the cache key
// namespace for that type.
type Kind string

const (
	KindComment Kind = "comment"
	KindPost    Kind = "post"
	KindEpisode Kind = "episode"
	KindNovel   Kind = "novel"
)

var kindTables = map[Kind]string{
	KindComment: "comments",
	KindPost:    "posts",
	KindEpisode: "episodes",
	KindNovel:   "novels",
}

// Kinds returns every votable kind
func Kinds() []Kind {
	return []Kind{KindComment, KindPost, KindEpisode, KindNovel}
}

// ParseKind accepts the singular or plural (route) form of a kind
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for kind, table := range kindTables {
		if s == string(kind) || s == table {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool {
	_, ok := kindTables[k]
	return ok
}

// Table is the database table holding the entity's counters
func (k Kind) Table() string {
	return kindTables[k]
}

// Route is the URL path segment used for the kind
func (k Kind) Route() string {
	return kindTables[k]
}

func (k Kind) String() string {
	return string(k)
}

// LikesKey is the cache set of users who liked the entity
func LikesKey(kind Kind, entityID string) string {
	return fmt.Sprintf("%s:%s:likes", kind, entityID)
}

// DislikesKey is the cache set of users who disliked the entity
func DislikesKey(kind Kind, entityID string) string {
	return fmt.Sprintf("%s:%s:dislikes", kind, entityID)
}

// Keys returns both vote set keys of an entity
func Keys(kind Kind, entityID string) []string {
	return []string{LikesKey(kind, entityID), DislikesKey(kind, entityID)}
}

// Votable is implemented by every model that carries vote counters
type Votable interface {
	VoteKind() Kind
	VoteID() string
	VoteTally() Tally
}

// Ref names a single votable entity
type Ref struct {
	Kind Kind
	ID   string
}

// RefOf returns the reference of a votable model
func RefOf(v Votable) Ref {
	return Ref{Kind: v.VoteKind(), ID: v.VoteID()}
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}
