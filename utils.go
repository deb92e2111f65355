package questlog

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeID composes the deterministic graph node id "<type>:<id>".
func NodeID(t EntityType, id int64) string {
	return string(t) + ":" + strconv.FormatInt(id, 10)
}

func ParseEntityKey(nodeID string) (EntityKey, error) {
	typ, idStr, ok := strings.Cut(nodeID, ":")
	if !ok {
		return EntityKey{}, fmt.Errorf("invalid node id %q", nodeID)
	}
	t := EntityType(typ)
	if !t.Valid() {
		return EntityKey{}, fmt.Errorf("invalid entity type %q", typ)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return EntityKey{}, fmt.Errorf("invalid entity id %q", idStr)
	}
	return EntityKey{Type: t, ID: id}, nil
}

// EntityPath returns the page path of an entity.
func EntityPath(t EntityType, id int64) string {
	var prefix string
	switch t {
	case EntityCampaign:
		prefix = "/campaigns/"
	case EntityAdventure:
		prefix = "/adventures/"
	case EntitySession:
		prefix = "/sessions/"
	case EntityQuest:
		prefix = "/quests/"
	case EntityCharacter:
		prefix = "/characters/"
	case EntityNPC:
		prefix = "/npcs/"
	case EntityLocation:
		prefix = "/locations/"
	case EntityMagicItem:
		prefix = "/magic-items/"
	default:
		return ""
	}
	return prefix + strconv.FormatInt(id, 10)
}

// LayoutKey is the key-value store key holding a campaign's node positions.
func LayoutKey(campaignID int64) string {
	return "campaign-network-layout-" + strconv.FormatInt(campaignID, 10)
}
