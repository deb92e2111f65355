package domain

import (
	"strings"

	"github.com/totegamma/questlog"
)

// SuggestedRelationTypes is the advisory vocabulary offered by relation forms.
// Stores accept any non-blank value.
var SuggestedRelationTypes = []string{
	"ally", "enemy", "parent", "child", "belongs-to", "located-at", "member-of",
	"friend", "rival", "mentor", "student", "companion", "guardian", "ward",
	"leader", "follower", "owner", "property", "creator", "creation", "teacher",
	"lover", "spouse",
}

func NormalizeRelationType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// RelationPatch carries the mutable fields of a relation.
type RelationPatch struct {
	RelationType  *string
	Description   *string
	Bidirectional *bool
}

func (p RelationPatch) Empty() bool {
	return p.RelationType == nil && p.Description == nil && p.Bidirectional == nil
}

// SameEndpoints reports whether two relations connect the same pair of
// entities with the same type. Swapped endpoints count when either side is
// bidirectional.
func SameEndpoints(a, b questlog.Relation) bool {
	if a.CampaignID != b.CampaignID || a.RelationType != b.RelationType {
		return false
	}
	if a.Source() == b.Source() && a.Target() == b.Target() {
		return true
	}
	if a.Bidirectional || b.Bidirectional {
		return a.Source() == b.Target() && a.Target() == b.Source()
	}
	return false
}
