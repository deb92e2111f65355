package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/totegamma/questlog"
	"github.com/totegamma/questlog/internal/domain"
)

type graphFixture struct {
	entities    *mockEntityRepo
	relations   *mockRelationRepo
	assignments *mockAssignmentRepo
	uc          *GraphUsecase
}

// campaign 7 owns adventure 1 hosting session 1; character 5 and npc 9 are
// allies; harbor 3 sits directly in the campaign.
func newGraphFixture() *graphFixture {
	f := &graphFixture{
		entities:    newMockEntityRepo(),
		relations:   newMockRelationRepo(),
		assignments: &mockAssignmentRepo{},
	}
	f.entities.add(questlog.EntityCampaign, 7, "Sunken Coast", 7)
	adventure := f.entities.add(questlog.EntityAdventure, 1, "The Drowned Bell", 7)
	session := f.entities.add(questlog.EntitySession, 1, "Session One", 7)
	f.entities.add(questlog.EntityCharacter, 5, "Barbara", 7)
	f.entities.add(questlog.EntityNPC, 9, "Sarah Vance", 7)
	harbor := f.entities.add(questlog.EntityLocation, 3, "Harbor", 7)

	f.entities.adventures[7] = []questlog.EntityRef{adventure}
	f.entities.members[1] = []questlog.EntityRef{session}
	f.entities.loose[7] = []questlog.EntityRef{harbor}

	f.relations.Create(context.Background(), questlog.Relation{
		CampaignID:       7,
		SourceEntityType: questlog.EntityCharacter,
		SourceEntityID:   5,
		TargetEntityType: questlog.EntityNPC,
		TargetEntityID:   9,
		RelationType:     "ally",
		Bidirectional:    true,
	})

	f.uc = NewGraphUsecase(f.entities, f.relations, f.assignments)
	return f
}

func nodeSet(g questlog.Graph) map[string]questlog.GraphNode {
	nodes := make(map[string]questlog.GraphNode, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes[n.ID] = n
	}
	return nodes
}

func findEdge(g questlog.Graph, source, target string) (questlog.GraphEdge, bool) {
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target {
			return e, true
		}
	}
	return questlog.GraphEdge{}, false
}

func TestGraphUsecaseBuild(t *testing.T) {
	f := newGraphFixture()

	g, err := f.uc.Build(context.Background(), 7, true)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	nodes := nodeSet(g)
	for _, id := range []string{"campaign:7", "adventure:1", "session:1", "character:5", "npc:9", "location:3"} {
		if _, ok := nodes[id]; !ok {
			t.Fatalf("missing node %s in %+v", id, g.Nodes)
		}
	}
	if len(nodes) != len(g.Nodes) {
		t.Fatalf("duplicate node ids in %+v", g.Nodes)
	}

	expect := []struct{ source, target, label string }{
		{"campaign:7", "adventure:1", LabelIncludes},
		{"adventure:1", "session:1", LabelHosts},
		{"campaign:7", "location:3", LabelContains},
		{"character:5", "npc:9", "ally"},
	}
	for _, want := range expect {
		e, ok := findEdge(g, want.source, want.target)
		if !ok {
			t.Fatalf("missing edge %s -> %s", want.source, want.target)
		}
		if e.Relation != want.label {
			t.Fatalf("edge %s: expected %q got %q", e.ID, want.label, e.Relation)
		}
	}

	ally, _ := findEdge(g, "character:5", "npc:9")
	if ally.Data == nil || !ally.Data.IsRelationship || !ally.Data.Bidirectional {
		t.Fatalf("relationship edge not tagged: %+v", ally.Data)
	}
	if ally.ID != "relation:1" {
		t.Fatalf("unexpected relation edge id %s", ally.ID)
	}
}

func TestGraphUsecaseWithoutRelationships(t *testing.T) {
	f := newGraphFixture()

	g, err := f.uc.Build(context.Background(), 7, false)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	for _, e := range g.Edges {
		if e.Data != nil && e.Data.IsRelationship {
			t.Fatalf("unexpected relationship edge %+v", e)
		}
	}
	if _, ok := nodeSet(g)["npc:9"]; ok {
		t.Fatalf("npc only reachable through a relation should be absent")
	}
}

func TestGraphUsecaseDropsDanglingReferences(t *testing.T) {
	f := newGraphFixture()
	f.relations.Create(context.Background(), questlog.Relation{
		CampaignID:       7,
		SourceEntityType: questlog.EntityCharacter,
		SourceEntityID:   5,
		TargetEntityType: questlog.EntityQuest,
		TargetEntityID:   404,
		RelationType:     "seeks",
	})
	f.assignments.rows = []domain.Assignment{
		{ID: 1, MagicItemID: 99, EntityType: questlog.EntityCharacter, EntityID: 5},
		{ID: 2, MagicItemID: 1, EntityType: questlog.EntityLocation, EntityID: 404},
	}

	g, err := f.uc.Build(context.Background(), 7, true)
	if err != nil {
		t.Fatalf("dangling references must not fail the build: %v", err)
	}

	nodes := nodeSet(g)
	for _, id := range []string{"quest:404", "magicItem:99", "location:404"} {
		if _, ok := nodes[id]; ok {
			t.Fatalf("dangling node %s must be dropped", id)
		}
	}
	for _, e := range g.Edges {
		if _, ok := nodes[e.Source]; !ok {
			t.Fatalf("edge %s has missing source", e.ID)
		}
		if _, ok := nodes[e.Target]; !ok {
			t.Fatalf("edge %s has missing target", e.ID)
		}
		if e.ID == "relation:2" || e.ID == "assignment:1" || e.ID == "assignment:2" {
			t.Fatalf("dangling edge %s must be dropped", e.ID)
		}
	}
}

func TestGraphUsecaseAssignments(t *testing.T) {
	f := newGraphFixture()
	f.entities.add(questlog.EntityMagicItem, 1, "Tidecaller Blade", 7)
	f.entities.add(questlog.EntityCharacter, 6, "Arannis", 8)
	f.assignments.rows = []domain.Assignment{
		{ID: 10, MagicItemID: 1, EntityType: questlog.EntityCharacter, EntityID: 5},
		{ID: 11, MagicItemID: 1, EntityType: questlog.EntityCharacter, EntityID: 6},
		{ID: 12, MagicItemID: 1, EntityType: questlog.EntityLocation, EntityID: 3},
	}

	g, err := f.uc.Build(context.Background(), 7, false)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	nodes := nodeSet(g)
	if len(nodes) != len(g.Nodes) {
		t.Fatalf("duplicate node ids in %+v", g.Nodes)
	}
	if _, ok := nodes["character:6"]; ok {
		t.Fatalf("assignment from another campaign leaked into the graph")
	}

	e, ok := findEdge(g, "magicItem:1", "character:5")
	if !ok || e.Relation != LabelAssignedTo || e.ID != "assignment:10" {
		t.Fatalf("unexpected assignment edge %+v", e)
	}
	if _, ok := findEdge(g, "magicItem:1", "location:3"); !ok {
		t.Fatalf("missing location assignment edge")
	}
}

func TestGraphUsecaseMissingCampaign(t *testing.T) {
	f := newGraphFixture()
	if _, err := f.uc.Build(context.Background(), 404, true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestGraphUsecaseEmptyCampaign(t *testing.T) {
	f := newGraphFixture()
	f.entities.add(questlog.EntityCampaign, 8, "Empty", 8)

	g, err := f.uc.Build(context.Background(), 8, true)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].ID != "campaign:8" || len(g.Edges) != 0 {
		t.Fatalf("unexpected graph %+v", g)
	}
}

func TestGraphUsecaseDropsEntityDeletedAfterCaching(t *testing.T) {
	f := newGraphFixture()
	registry := NewEntityRegistry(f.entities, time.Minute)
	uc := NewGraphUsecase(registry, f.relations, f.assignments)
	ctx := context.Background()
	sarah := questlog.EntityKey{Type: questlog.EntityNPC, ID: 9}

	g, err := uc.Build(ctx, 7, true)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if _, ok := nodeSet(g)["npc:9"]; !ok {
		t.Fatalf("expected npc:9 before delete")
	}
	if _, err := registry.Lookup(ctx, sarah); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}

	delete(f.entities.refs, sarah)

	g, err = uc.Build(ctx, 7, true)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if _, ok := nodeSet(g)["npc:9"]; ok {
		t.Fatalf("deleted npc must not be served from cache")
	}
	for _, e := range g.Edges {
		if e.ID == "relation:1" {
			t.Fatalf("edge to deleted npc must be dropped")
		}
	}
}
