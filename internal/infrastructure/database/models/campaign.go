package models

import "time"

type Campaign struct {
	ID    int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title string    `json:"title" gorm:"type:text;not null"`
	CDate time.Time `json:"cdate" gorm:"autoCreateTime"`
	MDate time.Time `json:"mdate" gorm:"autoUpdateTime"`
}

type Adventure struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	CampaignID int64     `json:"campaignID" gorm:"index;not null"`
	Campaign   Campaign  `json:"-" gorm:"foreignKey:CampaignID;references:ID;constraint:OnDelete:CASCADE;"`
	Title      string    `json:"title" gorm:"type:text;not null"`
	CDate      time.Time `json:"cdate" gorm:"autoCreateTime"`
}

type Session struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	CampaignID  int64      `json:"campaignID" gorm:"index;not null"`
	AdventureID int64      `json:"adventureID" gorm:"index;not null"`
	Title       string     `json:"title" gorm:"type:text;not null"`
	PlayedAt    *time.Time `json:"playedAt"`
	CDate       time.Time  `json:"cdate" gorm:"autoCreateTime"`
}

type Quest struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	CampaignID  int64     `json:"campaignID" gorm:"index;not null"`
	AdventureID *int64    `json:"adventureID" gorm:"index"`
	Title       string    `json:"title" gorm:"type:text;not null"`
	Status      string    `json:"status" gorm:"type:text"`
	CDate       time.Time `json:"cdate" gorm:"autoCreateTime"`
}

// Character holds player characters and NPC-flagged characters.
type Character struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	CampaignID  int64     `json:"campaignID" gorm:"index;not null"`
	AdventureID *int64    `json:"adventureID" gorm:"index"`
	Name        string    `json:"name" gorm:"type:text;not null"`
	IsNPC       bool      `json:"isNpc" gorm:"column:is_npc;not null;default:false"`
	PlayerName  string    `json:"playerName" gorm:"type:text"`
	CDate       time.Time `json:"cdate" gorm:"autoCreateTime"`
}

type NPC struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	CampaignID  int64     `json:"campaignID" gorm:"index;not null"`
	AdventureID *int64    `json:"adventureID" gorm:"index"`
	Name        string    `json:"name" gorm:"type:text;not null"`
	Role        string    `json:"role" gorm:"type:text"`
	CDate       time.Time `json:"cdate" gorm:"autoCreateTime"`
}

func (NPC) TableName() string { return "npcs" }

type Location struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	CampaignID  int64     `json:"campaignID" gorm:"index;not null"`
	AdventureID *int64    `json:"adventureID" gorm:"index"`
	Name        string    `json:"name" gorm:"type:text;not null"`
	CDate       time.Time `json:"cdate" gorm:"autoCreateTime"`
}

type MagicItem struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	CampaignID *int64    `json:"campaignID" gorm:"index"`
	Name       string    `json:"name" gorm:"type:text;not null"`
	Rarity     string    `json:"rarity" gorm:"type:text"`
	CDate      time.Time `json:"cdate" gorm:"autoCreateTime"`
}
