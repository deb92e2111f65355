package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/totegamma/questlog"
	"github.com/totegamma/questlog/internal/domain"
)

func newAssignmentFixture() (*AssignmentUsecase, *mockAssignmentRepo, *mockEntityRepo, *mockNotifier) {
	entities := newMockEntityRepo()
	entities.add(questlog.EntityMagicItem, 1, "Tidecaller Blade", 7)
	entities.add(questlog.EntityCharacter, 5, "Barbara", 7)
	entities.add(questlog.EntityCharacter, 6, "Arannis", 8)
	entities.add(questlog.EntityLocation, 3, "Harbor", 7)
	repo := &mockAssignmentRepo{}
	notifier := &mockNotifier{}
	return NewAssignmentUsecase(repo, entities, notifier), repo, entities, notifier
}

func TestAssignmentUsecaseAssignIsIdempotent(t *testing.T) {
	uc, repo, _, notifier := newAssignmentFixture()
	ctx := context.Background()

	created, err := uc.Assign(ctx, 1, questlog.EntityCharacter, []int64{5, 6, 5})
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if created != 2 {
		t.Fatalf("expected 2 created got %d", created)
	}
	if len(notifier.events) != 2 {
		t.Fatalf("expected a change per touched campaign got %+v", notifier.events)
	}

	created, err = uc.Assign(ctx, 1, questlog.EntityCharacter, []int64{5, 6})
	if err != nil {
		t.Fatalf("second assign failed: %v", err)
	}
	if created != 0 {
		t.Fatalf("second assign should create nothing got %d", created)
	}
	if len(repo.rows) != 2 {
		t.Fatalf("expected 2 rows got %d", len(repo.rows))
	}
	if len(notifier.events) != 2 {
		t.Fatalf("no-op assign must not publish")
	}
}

func TestAssignmentUsecaseAssignRejects(t *testing.T) {
	uc, repo, _, _ := newAssignmentFixture()
	ctx := context.Background()

	if _, err := uc.Assign(ctx, 1, questlog.EntityNPC, []int64{9}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("npc is not assignable, got %v", err)
	}
	if _, err := uc.Assign(ctx, 1, questlog.EntityCharacter, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty ids must be rejected, got %v", err)
	}
	if _, err := uc.Assign(ctx, 42, questlog.EntityCharacter, []int64{5}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown item must be rejected, got %v", err)
	}
	if _, err := uc.Assign(ctx, 1, questlog.EntityCharacter, []int64{5, 404}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown entity must be rejected, got %v", err)
	}
	if len(repo.rows) != 0 {
		t.Fatalf("rejected assign must not write, got %d rows", len(repo.rows))
	}
}

func TestAssignmentUsecaseUnassign(t *testing.T) {
	uc, repo, _, notifier := newAssignmentFixture()
	ctx := context.Background()

	if _, err := uc.Assign(ctx, 1, questlog.EntityLocation, []int64{3}); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if err := uc.Unassign(ctx, 1, questlog.EntityLocation, 3); err != nil {
		t.Fatalf("unassign failed: %v", err)
	}
	if len(repo.rows) != 0 {
		t.Fatalf("row not removed")
	}
	if err := uc.Unassign(ctx, 1, questlog.EntityLocation, 3); err != nil {
		t.Fatalf("unassign of missing row should succeed: %v", err)
	}
	if len(notifier.events) != 2 {
		t.Fatalf("expected assign and unassign events got %d", len(notifier.events))
	}
}

func TestAssignmentUsecaseListAssignments(t *testing.T) {
	uc, repo, _, _ := newAssignmentFixture()
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	repo.rows = []domain.Assignment{
		{ID: 1, MagicItemID: 1, EntityType: questlog.EntityCharacter, EntityID: 5, AssignedAt: &early},
		{ID: 2, MagicItemID: 1, EntityType: questlog.EntityLocation, EntityID: 3},
		{ID: 3, MagicItemID: 1, EntityType: questlog.EntityCharacter, EntityID: 6, AssignedAt: &late},
		{ID: 4, MagicItemID: 1, EntityType: questlog.EntitySession, EntityID: 77, AssignedAt: &early},
		{ID: 5, MagicItemID: 2, EntityType: questlog.EntityCharacter, EntityID: 5, AssignedAt: &late},
	}

	views, err := uc.ListAssignments(context.Background(), 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	order := []int64{3, 4, 1, 2}
	if len(views) != len(order) {
		t.Fatalf("expected %d views got %d", len(order), len(views))
	}
	for i, id := range order {
		if views[i].ID != id {
			t.Fatalf("position %d: expected id %d got %d", i, id, views[i].ID)
		}
	}

	if views[0].EntityName != "Arannis" || views[0].CampaignID == nil || *views[0].CampaignID != 8 {
		t.Fatalf("view not enriched: %+v", views[0])
	}
	if !views[1].Dangling || views[1].EntityName != "Unknown session #77" {
		t.Fatalf("expected dangling placeholder got %+v", views[1])
	}
}

func TestAssignmentUsecaseSearchAssignable(t *testing.T) {
	uc, _, entities, _ := newAssignmentFixture()
	entities.search = []questlog.EntityRef{
		{EntityType: questlog.EntityCharacter, EntityID: 1, Name: "Barbara"},
		{EntityType: questlog.EntityCharacter, EntityID: 2, Name: "Arannis"},
		{EntityType: questlog.EntityCharacter, EntityID: 3, Name: "Tarak"},
		{EntityType: questlog.EntityNPC, EntityID: 1, Name: "Sarah Vance"},
	}
	exclude := map[questlog.EntityKey]struct{}{
		{Type: questlog.EntityCharacter, ID: 1}: {},
	}

	refs, err := uc.SearchAssignable(context.Background(), domain.SearchQuery{Type: questlog.EntityCharacter, Limit: 2}, exclude)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if entities.lastQuery.FetchLimit() != 3 {
		t.Fatalf("expected over-fetch of 3 got %d", entities.lastQuery.FetchLimit())
	}
	if len(refs) != 2 || refs[0].EntityID != 2 || refs[1].EntityID != 3 {
		t.Fatalf("unexpected refs %+v", refs)
	}

	if _, err := uc.SearchAssignable(context.Background(), domain.SearchQuery{Type: questlog.EntityQuest}, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("quest is not assignable, got %v", err)
	}
}

func TestAssignmentUsecaseSearchAssignableLargeExclusion(t *testing.T) {
	uc, _, entities, _ := newAssignmentFixture()
	exclude := map[questlog.EntityKey]struct{}{}
	for id := int64(1); id <= 150; id++ {
		entities.search = append(entities.search, questlog.EntityRef{EntityType: questlog.EntityCharacter, EntityID: id})
		if id <= 120 {
			exclude[questlog.EntityKey{Type: questlog.EntityCharacter, ID: id}] = struct{}{}
		}
	}

	refs, err := uc.SearchAssignable(context.Background(), domain.SearchQuery{Type: questlog.EntityCharacter, Limit: 20}, exclude)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if entities.lastQuery.FetchLimit() != 140 {
		t.Fatalf("over-fetch must not be capped, got %d", entities.lastQuery.FetchLimit())
	}
	if len(refs) != 20 || refs[0].EntityID != 121 || refs[19].EntityID != 140 {
		t.Fatalf("exclusions starved the result: %d refs", len(refs))
	}
}
