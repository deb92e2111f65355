package questlog

import (
	"time"
)

// EntityType tags every addressable record in a campaign.
type EntityType string

const (
	EntityCampaign  EntityType = "campaign"
	EntityAdventure EntityType = "adventure"
	EntitySession   EntityType = "session"
	EntityQuest     EntityType = "quest"
	EntityCharacter EntityType = "character"
	EntityNPC       EntityType = "npc"
	EntityLocation  EntityType = "location"
	EntityMagicItem EntityType = "magicItem"
)

// EntityTypes lists every EntityType in display order.
var EntityTypes = []EntityType{
	EntityCampaign,
	EntityAdventure,
	EntitySession,
	EntityQuest,
	EntityCharacter,
	EntityNPC,
	EntityLocation,
	EntityMagicItem,
}

func (t EntityType) Valid() bool {
	switch t {
	case EntityCampaign, EntityAdventure, EntitySession, EntityQuest,
		EntityCharacter, EntityNPC, EntityLocation, EntityMagicItem:
		return true
	default:
		return false
	}
}

// Assignable reports whether magic items may be assigned to the type.
func (t EntityType) Assignable() bool {
	switch t {
	case EntityCharacter, EntityLocation, EntityAdventure, EntitySession:
		return true
	default:
		return false
	}
}

// EntityKey is a polymorphic (type, id) reference.
type EntityKey struct {
	Type EntityType `json:"entityType"`
	ID   int64      `json:"entityId"`
}

func (k EntityKey) String() string {
	return NodeID(k.Type, k.ID)
}

type GraphNode struct {
	ID   string         `json:"id"`
	Type EntityType     `json:"type"`
	Name string         `json:"name"`
	Href string         `json:"href,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

type EdgeData struct {
	IsRelationship bool   `json:"isRelationship"`
	Bidirectional  bool   `json:"bidirectional,omitempty"`
	RelationID     int64  `json:"relationId,omitempty"`
	AssignmentID   int64  `json:"assignmentId,omitempty"`
	Description    string `json:"description,omitempty"`
}

type GraphEdge struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Target   string    `json:"target"`
	Relation string    `json:"relation"`
	Data     *EdgeData `json:"data,omitempty"`
}

// Graph is the renderable network of one campaign.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

type Relation struct {
	ID               int64      `json:"id"`
	CampaignID       int64      `json:"campaignId"`
	SourceEntityType EntityType `json:"sourceEntityType"`
	SourceEntityID   int64      `json:"sourceEntityId"`
	TargetEntityType EntityType `json:"targetEntityType"`
	TargetEntityID   int64      `json:"targetEntityId"`
	RelationType     string     `json:"relationType"`
	Description      *string    `json:"description,omitempty"`
	Bidirectional    bool       `json:"bidirectional"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (r Relation) Source() EntityKey {
	return EntityKey{Type: r.SourceEntityType, ID: r.SourceEntityID}
}

func (r Relation) Target() EntityKey {
	return EntityKey{Type: r.TargetEntityType, ID: r.TargetEntityID}
}

type CreateRelationRequest struct {
	CampaignID       int64      `json:"campaignId"`
	SourceEntityType EntityType `json:"sourceEntityType"`
	SourceEntityID   int64      `json:"sourceEntityId"`
	TargetEntityType EntityType `json:"targetEntityType"`
	TargetEntityID   int64      `json:"targetEntityId"`
	RelationType     string     `json:"relationType"`
	Description      *string    `json:"description,omitempty"`
	Bidirectional    bool       `json:"bidirectional"`
}

type UpdateRelationRequest struct {
	RelationType  *string `json:"relationType,omitempty"`
	Description   *string `json:"description,omitempty"`
	Bidirectional *bool   `json:"bidirectional,omitempty"`
}

type AssignRequest struct {
	EntityType EntityType `json:"entityType"`
	EntityIDs  []int64    `json:"entityIds"`
}

type AssignResponse struct {
	Created int `json:"created"`
}

// EntityRef is a resolved EntityKey with display information.
type EntityRef struct {
	EntityType    EntityType `json:"entityType"`
	EntityID      int64      `json:"entityId"`
	Name          string     `json:"name"`
	Path          string     `json:"path,omitempty"`
	CampaignID    *int64     `json:"campaignId,omitempty"`
	CampaignTitle string     `json:"campaignTitle,omitempty"`
	Subtype       string     `json:"subtype,omitempty"`
}

func (r EntityRef) Key() EntityKey {
	return EntityKey{Type: r.EntityType, ID: r.EntityID}
}

const (
	EventGraphChanged = "graph.changed"
)

// Event is pushed to realtime subscribers of a campaign.
type Event struct {
	Type       string `json:"type"`
	CampaignID int64  `json:"campaignId"`
}
