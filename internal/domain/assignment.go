package domain

import (
	"time"

	"github.com/totegamma/questlog"
)

// Assignment attaches a magic item to a character, location, adventure or session.
type Assignment struct {
	ID          int64               `json:"id"`
	MagicItemID int64               `json:"magicItemId"`
	EntityType  questlog.EntityType `json:"entityType"`
	EntityID    int64               `json:"entityId"`
	Source      *string             `json:"source,omitempty"`
	Notes       *string             `json:"notes,omitempty"`
	AssignedAt  *time.Time          `json:"assignedAt,omitempty"`
}

func (a Assignment) Entity() questlog.EntityKey {
	return questlog.EntityKey{Type: a.EntityType, ID: a.EntityID}
}

// AssignmentView is an Assignment enriched with its resolved entity.
type AssignmentView struct {
	Assignment
	EntityName    string `json:"entityName"`
	EntityPath    string `json:"entityPath,omitempty"`
	CampaignID    *int64 `json:"campaignId,omitempty"`
	CampaignTitle string `json:"campaignTitle,omitempty"`
	Dangling      bool   `json:"dangling,omitempty"`
}

// SearchQuery scopes an entity search.
type SearchQuery struct {
	Type       questlog.EntityType
	Query      string
	CampaignID *int64
	Limit      int
	// Extra rows fetched past the capped limit, for callers that filter
	// results afterwards.
	Extra int
}

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

func (q SearchQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultSearchLimit
	}
	if q.Limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return q.Limit
}

// FetchLimit is the number of rows a store should return: the capped limit
// plus Extra.
func (q SearchQuery) FetchLimit() int {
	if q.Extra <= 0 {
		return q.EffectiveLimit()
	}
	return q.EffectiveLimit() + q.Extra
}
