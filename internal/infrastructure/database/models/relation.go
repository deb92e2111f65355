package models

import "time"

// Relation has no foreign keys on its endpoints: they are polymorphic and
// may dangle after the referenced entity is deleted.
type Relation struct {
	ID               int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	CampaignID       int64     `json:"campaignID" gorm:"index;not null"`
	SourceEntityType string    `json:"sourceEntityType" gorm:"type:text;not null;index:idx_relations_source"`
	SourceEntityID   int64     `json:"sourceEntityID" gorm:"not null;index:idx_relations_source"`
	TargetEntityType string    `json:"targetEntityType" gorm:"type:text;not null;index:idx_relations_target"`
	TargetEntityID   int64     `json:"targetEntityID" gorm:"not null;index:idx_relations_target"`
	RelationType     string    `json:"relationType" gorm:"type:text;not null"`
	Description      *string   `json:"description" gorm:"type:text"`
	Bidirectional    bool      `json:"bidirectional" gorm:"not null;default:false"`
	CDate            time.Time `json:"cdate" gorm:"autoCreateTime"`
	MDate            time.Time `json:"mdate" gorm:"autoUpdateTime"`
}

type MagicItemAssignment struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	MagicItemID int64      `json:"magicItemID" gorm:"not null;index:idx_assignment_lookup"`
	MagicItem   MagicItem  `json:"-" gorm:"foreignKey:MagicItemID;references:ID;constraint:OnDelete:CASCADE;"`
	EntityType  string     `json:"entityType" gorm:"type:text;not null;index:idx_assignment_lookup"`
	EntityID    int64      `json:"entityID" gorm:"not null;index:idx_assignment_lookup"`
	Source      *string    `json:"source" gorm:"type:text"`
	Notes       *string    `json:"notes" gorm:"type:text"`
	AssignedAt  *time.Time `json:"assignedAt"`
}
