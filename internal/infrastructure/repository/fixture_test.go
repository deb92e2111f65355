package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/totegamma/questlog/internal/infrastructure/database"
	"github.com/totegamma/questlog/internal/infrastructure/database/models"
)

type fixture struct {
	db        *gorm.DB
	coast     models.Campaign
	vale      models.Campaign
	adventure models.Adventure
	session   models.Session
	arannis   models.Character
	tarak     models.Character
	barbara   models.Character
	sarah     models.NPC
	mordekai  models.NPC
	harbor    models.Location
	blade     models.MagicItem
}

func ptr[T any](v T) *T { return &v }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewTestSQLite()
	require.NoError(t, err)

	f := &fixture{db: db}
	f.coast = models.Campaign{Title: "Shattered Coast"}
	require.NoError(t, db.Create(&f.coast).Error)
	f.vale = models.Campaign{Title: "Ember Vale"}
	require.NoError(t, db.Create(&f.vale).Error)

	f.adventure = models.Adventure{CampaignID: f.vale.ID, Title: "The Drowned Bell"}
	require.NoError(t, db.Create(&f.adventure).Error)
	f.session = models.Session{CampaignID: f.vale.ID, AdventureID: f.adventure.ID, Title: "Session 1"}
	require.NoError(t, db.Create(&f.session).Error)

	f.barbara = models.Character{CampaignID: f.coast.ID, Name: "Barbara"}
	require.NoError(t, db.Create(&f.barbara).Error)
	f.arannis = models.Character{CampaignID: f.vale.ID, AdventureID: ptr(f.adventure.ID), Name: "Arannis", PlayerName: "Jo"}
	require.NoError(t, db.Create(&f.arannis).Error)
	f.tarak = models.Character{CampaignID: f.vale.ID, Name: "Tarak", IsNPC: true}
	require.NoError(t, db.Create(&f.tarak).Error)

	f.sarah = models.NPC{CampaignID: f.vale.ID, AdventureID: ptr(f.adventure.ID), Name: "Sarah Vance", Role: "innkeeper"}
	require.NoError(t, db.Create(&f.sarah).Error)
	f.mordekai = models.NPC{CampaignID: f.vale.ID, Name: "Mordekai"}
	require.NoError(t, db.Create(&f.mordekai).Error)

	f.harbor = models.Location{CampaignID: f.vale.ID, Name: "Grey Harbor"}
	require.NoError(t, db.Create(&f.harbor).Error)

	f.blade = models.MagicItem{Name: "Tidecaller Blade", Rarity: "rare"}
	require.NoError(t, db.Create(&f.blade).Error)

	return f
}
