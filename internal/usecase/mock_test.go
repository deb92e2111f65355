package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/totegamma/questlog"
	"github.com/totegamma/questlog/internal/domain"
)

func ptr[T any](v T) *T { return &v }

type mockEntityRepo struct {
	refs       map[questlog.EntityKey]questlog.EntityRef
	adventures map[int64][]questlog.EntityRef
	members    map[int64][]questlog.EntityRef
	loose      map[int64][]questlog.EntityRef
	search     []questlog.EntityRef
	lastQuery  domain.SearchQuery
	resolves   int
}

func newMockEntityRepo() *mockEntityRepo {
	return &mockEntityRepo{
		refs:       map[questlog.EntityKey]questlog.EntityRef{},
		adventures: map[int64][]questlog.EntityRef{},
		members:    map[int64][]questlog.EntityRef{},
		loose:      map[int64][]questlog.EntityRef{},
	}
}

func (m *mockEntityRepo) add(t questlog.EntityType, id int64, name string, campaignID int64) questlog.EntityRef {
	ref := questlog.EntityRef{
		EntityType: t,
		EntityID:   id,
		Name:       name,
		Path:       questlog.EntityPath(t, id),
		CampaignID: ptr(campaignID),
	}
	m.refs[ref.Key()] = ref
	return ref
}

func (m *mockEntityRepo) Resolve(ctx context.Context, key questlog.EntityKey) (questlog.EntityRef, error) {
	m.resolves++
	ref, ok := m.refs[key]
	if !ok {
		return questlog.EntityRef{}, domain.NotFoundError{Resource: key.String()}
	}
	return ref, nil
}
func (m *mockEntityRepo) Search(ctx context.Context, q domain.SearchQuery) ([]questlog.EntityRef, error) {
	m.lastQuery = q
	if n := q.FetchLimit(); len(m.search) > n {
		return m.search[:n], nil
	}
	return m.search, nil
}
func (m *mockEntityRepo) Adventures(ctx context.Context, campaignID int64) ([]questlog.EntityRef, error) {
	return m.adventures[campaignID], nil
}
func (m *mockEntityRepo) Members(ctx context.Context, adventureID int64) ([]questlog.EntityRef, error) {
	return m.members[adventureID], nil
}
func (m *mockEntityRepo) Loose(ctx context.Context, campaignID int64) ([]questlog.EntityRef, error) {
	return m.loose[campaignID], nil
}

type mockRelationRepo struct {
	rows   map[int64]questlog.Relation
	nextID int64
}

func newMockRelationRepo() *mockRelationRepo {
	return &mockRelationRepo{rows: map[int64]questlog.Relation{}}
}

func (m *mockRelationRepo) Create(ctx context.Context, rel questlog.Relation) (questlog.Relation, error) {
	m.nextID++
	rel.ID = m.nextID
	rel.CreatedAt = time.Now()
	rel.UpdatedAt = rel.CreatedAt
	m.rows[rel.ID] = rel
	return rel, nil
}
func (m *mockRelationRepo) Get(ctx context.Context, id int64) (questlog.Relation, error) {
	rel, ok := m.rows[id]
	if !ok {
		return questlog.Relation{}, domain.NotFoundError{Resource: "relation"}
	}
	return rel, nil
}
func (m *mockRelationRepo) List(ctx context.Context, campaignID int64) ([]questlog.Relation, error) {
	var out []questlog.Relation
	for _, rel := range m.rows {
		if rel.CampaignID == campaignID {
			out = append(out, rel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
func (m *mockRelationRepo) Between(ctx context.Context, campaignID int64, a, b questlog.EntityKey, relationType string) ([]questlog.Relation, error) {
	var out []questlog.Relation
	for _, rel := range m.rows {
		if rel.CampaignID != campaignID || rel.RelationType != relationType {
			continue
		}
		if (rel.Source() == a && rel.Target() == b) || (rel.Source() == b && rel.Target() == a) {
			out = append(out, rel)
		}
	}
	return out, nil
}
func (m *mockRelationRepo) Update(ctx context.Context, id int64, patch domain.RelationPatch) (questlog.Relation, error) {
	rel, ok := m.rows[id]
	if !ok {
		return questlog.Relation{}, domain.NotFoundError{Resource: "relation"}
	}
	if patch.RelationType != nil {
		rel.RelationType = *patch.RelationType
	}
	if patch.Description != nil {
		rel.Description = patch.Description
	}
	if patch.Bidirectional != nil {
		rel.Bidirectional = *patch.Bidirectional
	}
	m.rows[id] = rel
	return rel, nil
}
func (m *mockRelationRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return domain.NotFoundError{Resource: "relation"}
	}
	delete(m.rows, id)
	return nil
}

type mockAssignmentRepo struct {
	rows   []domain.Assignment
	nextID int64
}

func (m *mockAssignmentRepo) CreateMissing(ctx context.Context, magicItemID int64, entityType questlog.EntityType, entityIDs []int64, at time.Time) (int, error) {
	created := 0
	for _, id := range entityIDs {
		if m.find(magicItemID, entityType, id) >= 0 {
			continue
		}
		m.nextID++
		m.rows = append(m.rows, domain.Assignment{
			ID:          m.nextID,
			MagicItemID: magicItemID,
			EntityType:  entityType,
			EntityID:    id,
			AssignedAt:  ptr(at),
		})
		created++
	}
	return created, nil
}
func (m *mockAssignmentRepo) Delete(ctx context.Context, magicItemID int64, entityType questlog.EntityType, entityID int64) (bool, error) {
	i := m.find(magicItemID, entityType, entityID)
	if i < 0 {
		return false, nil
	}
	m.rows = append(m.rows[:i], m.rows[i+1:]...)
	return true, nil
}
func (m *mockAssignmentRepo) ListByItem(ctx context.Context, magicItemID int64) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, row := range m.rows {
		if row.MagicItemID == magicItemID {
			out = append(out, row)
		}
	}
	return out, nil
}
func (m *mockAssignmentRepo) ListByEntityTypes(ctx context.Context, types []questlog.EntityType) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, row := range m.rows {
		for _, t := range types {
			if row.EntityType == t {
				out = append(out, row)
				break
			}
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) find(magicItemID int64, entityType questlog.EntityType, entityID int64) int {
	for i, row := range m.rows {
		if row.MagicItemID == magicItemID && row.EntityType == entityType && row.EntityID == entityID {
			return i
		}
	}
	return -1
}

type mockNotifier struct {
	events []questlog.Event
}

func (m *mockNotifier) Publish(ctx context.Context, event questlog.Event) error {
	m.events = append(m.events, event)
	return nil
}
