package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/totegamma/questlog"
	"github.com/totegamma/questlog/internal/domain"
)

// entitySource is one physical table backing an entity type.
type entitySource struct {
	kind        questlog.EntityType // physical kind, drives path and search result type
	table       string
	nameColumn  string
	campaignCol string
	filter      string
	extra       []string
	subtype     func(row entityRow) string
}

type entityRow struct {
	ID         int64  `gorm:"column:id"`
	Name       string `gorm:"column:name"`
	CampaignID *int64 `gorm:"column:campaign_id"`
	IsNPC      bool   `gorm:"column:is_npc"`
}

func (s entitySource) query(db *gorm.DB) *gorm.DB {
	cols := append([]string{
		"id",
		s.nameColumn + " AS name",
		s.campaignCol + " AS campaign_id",
	}, s.extra...)
	q := db.Table(s.table).Select(cols)
	if s.filter != "" {
		q = q.Where(s.filter)
	}
	return q
}

func (s entitySource) ref(as questlog.EntityType, row entityRow) questlog.EntityRef {
	ref := questlog.EntityRef{
		EntityType: as,
		EntityID:   row.ID,
		Name:       row.Name,
		Path:       questlog.EntityPath(s.kind, row.ID),
		CampaignID: row.CampaignID,
	}
	if s.subtype != nil {
		ref.Subtype = s.subtype(row)
	}
	return ref
}

func characterSubtype(row entityRow) string {
	if row.IsNPC {
		return "NPC"
	}
	return "character"
}

func npcSubtype(entityRow) string { return "NPC" }

var (
	campaignSource  = entitySource{kind: questlog.EntityCampaign, table: "campaigns", nameColumn: "title", campaignCol: "id"}
	adventureSource = entitySource{kind: questlog.EntityAdventure, table: "adventures", nameColumn: "title", campaignCol: "campaign_id"}
	sessionSource   = entitySource{kind: questlog.EntitySession, table: "sessions", nameColumn: "title", campaignCol: "campaign_id"}
	questSource     = entitySource{kind: questlog.EntityQuest, table: "quests", nameColumn: "title", campaignCol: "campaign_id"}
	characterSource = entitySource{
		kind: questlog.EntityCharacter, table: "characters", nameColumn: "name", campaignCol: "campaign_id",
		extra: []string{"is_npc"}, subtype: characterSubtype,
	}
	flaggedNPCSource = entitySource{
		kind: questlog.EntityCharacter, table: "characters", nameColumn: "name", campaignCol: "campaign_id",
		filter: "is_npc = true", extra: []string{"is_npc"}, subtype: characterSubtype,
	}
	npcSource       = entitySource{kind: questlog.EntityNPC, table: "npcs", nameColumn: "name", campaignCol: "campaign_id", subtype: npcSubtype}
	locationSource  = entitySource{kind: questlog.EntityLocation, table: "locations", nameColumn: "name", campaignCol: "campaign_id"}
	magicItemSource = entitySource{kind: questlog.EntityMagicItem, table: "magic_items", nameColumn: "name", campaignCol: "campaign_id"}
)

// resolveSources lists, in priority order, the tables that can answer a
// resolve for the type. Every id space is resolved from exactly one table.
func resolveSources(t questlog.EntityType) []entitySource {
	switch t {
	case questlog.EntityCampaign:
		return []entitySource{campaignSource}
	case questlog.EntityAdventure:
		return []entitySource{adventureSource}
	case questlog.EntitySession:
		return []entitySource{sessionSource}
	case questlog.EntityQuest:
		return []entitySource{questSource}
	case questlog.EntityCharacter:
		return []entitySource{characterSource}
	case questlog.EntityNPC:
		// npcs and characters have separate id sequences; a flagged character
		// is only ever addressed as character:<id>
		return []entitySource{npcSource}
	case questlog.EntityLocation:
		return []entitySource{locationSource}
	case questlog.EntityMagicItem:
		return []entitySource{magicItemSource}
	}
	return nil
}

// searchSources lists the tables merged into a search for the type.
func searchSources(t questlog.EntityType) []entitySource {
	switch t {
	case questlog.EntityCharacter:
		return []entitySource{characterSource, npcSource}
	case questlog.EntityNPC:
		return []entitySource{npcSource, flaggedNPCSource}
	default:
		return resolveSources(t)
	}
}

// membersOf are the kinds owned by an adventure or, without one, directly by a campaign.
var membersOf = []entitySource{sessionSource, questSource, characterSource, npcSource, locationSource}

type EntityRepository struct {
	db       *gorm.DB
	resolve  map[questlog.EntityType][]entitySource
	searches map[questlog.EntityType][]entitySource
}

func NewEntityRepository(db *gorm.DB) *EntityRepository {
	r := &EntityRepository{
		db:       db,
		resolve:  make(map[questlog.EntityType][]entitySource, len(questlog.EntityTypes)),
		searches: make(map[questlog.EntityType][]entitySource, len(questlog.EntityTypes)),
	}
	for _, t := range questlog.EntityTypes {
		rs := resolveSources(t)
		if len(rs) == 0 {
			panic(fmt.Sprintf("entity type %s has no source table", t))
		}
		r.resolve[t] = rs
		r.searches[t] = searchSources(t)
	}
	return r
}

func (r *EntityRepository) Resolve(ctx context.Context, key questlog.EntityKey) (questlog.EntityRef, error) {
	sources, ok := r.resolve[key.Type]
	if !ok {
		return questlog.EntityRef{}, domain.NotFoundError{Resource: key.String()}
	}

	for _, src := range sources {
		var rows []entityRow
		err := src.query(r.db.WithContext(ctx)).Where("id = ?", key.ID).Limit(1).Scan(&rows).Error
		if err != nil {
			return questlog.EntityRef{}, errors.Wrapf(err, "resolve %s", key)
		}
		if len(rows) == 0 {
			continue
		}
		ref := src.ref(key.Type, rows[0])
		if ref.CampaignID != nil {
			ref.CampaignTitle = r.campaignTitle(ctx, *ref.CampaignID)
		}
		return ref, nil
	}

	return questlog.EntityRef{}, domain.NotFoundError{Resource: key.String()}
}

func (r *EntityRepository) campaignTitle(ctx context.Context, id int64) string {
	var titles []string
	err := r.db.WithContext(ctx).Table("campaigns").Where("id = ?", id).Limit(1).Pluck("title", &titles).Error
	if err != nil || len(titles) == 0 {
		return ""
	}
	return titles[0]
}

// Search returns matches from every source of the type, in source order,
// deduplicated by (type, id). Each source contributes at most FetchLimit rows.
func (r *EntityRepository) Search(ctx context.Context, q domain.SearchQuery) ([]questlog.EntityRef, error) {
	sources, ok := r.searches[q.Type]
	if !ok {
		return nil, domain.Invalid("unknown entity type %q", q.Type)
	}
	limit := q.FetchLimit()
	needle := strings.ToLower(strings.TrimSpace(q.Query))

	seen := make(map[questlog.EntityKey]struct{})
	results := make([]questlog.EntityRef, 0, limit)
	for _, src := range sources {
		query := src.query(r.db.WithContext(ctx))
		if needle != "" {
			query = query.Where("LOWER("+src.nameColumn+") LIKE ? ESCAPE '\\'", "%"+escapeLike(needle)+"%")
		}
		if q.CampaignID != nil {
			query = query.Where(src.campaignCol+" = ?", *q.CampaignID)
		}

		var rows []entityRow
		if err := query.Order("id ASC").Limit(limit).Scan(&rows).Error; err != nil {
			return nil, errors.Wrapf(err, "search %s", src.table)
		}
		for _, row := range rows {
			ref := src.ref(src.kind, row)
			if _, dup := seen[ref.Key()]; dup {
				continue
			}
			seen[ref.Key()] = struct{}{}
			results = append(results, ref)
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Adventures lists the adventures of a campaign by ascending id.
func (r *EntityRepository) Adventures(ctx context.Context, campaignID int64) ([]questlog.EntityRef, error) {
	var rows []entityRow
	err := adventureSource.query(r.db.WithContext(ctx)).
		Where("campaign_id = ?", campaignID).
		Order("id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list adventures")
	}
	refs := make([]questlog.EntityRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, adventureSource.ref(questlog.EntityAdventure, row))
	}
	return refs, nil
}

// Members lists sessions, quests, characters, npcs and locations of an adventure.
func (r *EntityRepository) Members(ctx context.Context, adventureID int64) ([]questlog.EntityRef, error) {
	return r.members(ctx, "adventure_id = ?", adventureID)
}

// Loose lists campaign members that belong to no adventure.
func (r *EntityRepository) Loose(ctx context.Context, campaignID int64) ([]questlog.EntityRef, error) {
	return r.members(ctx, "campaign_id = ? AND adventure_id IS NULL", campaignID)
}

func (r *EntityRepository) members(ctx context.Context, where string, arg int64) ([]questlog.EntityRef, error) {
	var refs []questlog.EntityRef
	for _, src := range membersOf {
		var rows []entityRow
		err := src.query(r.db.WithContext(ctx)).Where(where, arg).Order("id ASC").Scan(&rows).Error
		if err != nil {
			return nil, errors.Wrapf(err, "list %s", src.table)
		}
		for _, row := range rows {
			refs = append(refs, src.ref(src.kind, row))
		}
	}
	return refs, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
