package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/wrenfield/ctxcore/internal/store"
)

type fakeStore struct {
	nodes      map[string]store.Node
	edges      []store.Edge
	embeddings map[string][]float32
	ftsResults map[string][]store.Node
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes:      map[string]store.Node{},
		embeddings: map[string][]float32{},
		ftsResults: map[string][]store.Node{},
	}
}

func (f *fakeStore) addNode(n store.Node) { f.nodes[n.ID] = n }

func (f *fakeStore) GetNode(ctx context.Context, id string) (*store.Node, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (f *fakeStore) GetEdgesTouching(ctx context.Context, id string) ([]store.Edge, error) {
	var out []store.Edge
	for _, e := range f.edges {
		if e.SourceID == id || e.TargetID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetEmbedding(ctx context.Context, id string) ([]float32, error) {
	return f.embeddings[id], nil
}

func (f *fakeStore) ForEachEmbedding(ctx context.Context, yield func(store.NodeEmbedding) error) error {
	for id, emb := range f.embeddings {
		if err := yield(store.NodeEmbedding{ID: id, Embedding: emb}); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) FTSSearch(ctx context.Context, query string) ([]store.Node, error) {
	return f.ftsResults[query], nil
}

func strp(s string) *string { return &s }

func TestFindAnchors_SemanticPriorityOverFTS(t *testing.T) {
	f := newFakeStore()
	f.addNode(store.Node{ID: "task", Title: "Task"})
	f.addNode(store.Node{ID: "sem1", Title: "Semantic Hit"})
	f.addNode(store.Node{ID: "kw1", Title: "Keyword Hit"})

	f.embeddings["task"] = []float32{1, 0}
	f.embeddings["sem1"] = []float32{0.99, 0.01}

	query := store.BuildFTSQuery("find the keyword hit")
	f.ftsResults[query] = []store.Node{{ID: "kw1", Title: "Keyword Hit"}}

	anchors, err := FindAnchors(context.Background(), f, "find the keyword hit", "task", DefaultAnchorConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(anchors) != 2 {
		t.Fatalf("expected 2 anchors, got %+v", anchors)
	}
	if anchors[0].NodeID != "sem1" || anchors[0].Source != SourceSemantic {
		t.Errorf("expected semantic anchor first, got %+v", anchors[0])
	}
	if anchors[1].NodeID != "kw1" || anchors[1].Source != SourceFTS {
		t.Errorf("expected fts anchor second, got %+v", anchors[1])
	}
}

func TestFindAnchors_ExcludesOperationalAndSelf(t *testing.T) {
	f := newFakeStore()
	f.addNode(store.Node{ID: "task", Title: "Task"})
	f.addNode(store.Node{ID: "op", Title: "Bookkeeping", NodeClass: strp("operational")})
	f.embeddings["task"] = []float32{1, 0}
	f.embeddings["op"] = []float32{1, 0}
	f.embeddings["task_self_dup"] = []float32{1, 0}

	anchors, err := FindAnchors(context.Background(), f, "", "task", DefaultAnchorConfig())
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range anchors {
		if a.NodeID == "task" || a.NodeID == "op" {
			t.Errorf("expected task/operational nodes excluded, got anchor %+v", a)
		}
	}
}

func TestFindAnchors_DedupesAcrossSources(t *testing.T) {
	f := newFakeStore()
	f.addNode(store.Node{ID: "task", Title: "Task"})
	f.addNode(store.Node{ID: "both", Title: "Both"})
	f.embeddings["task"] = []float32{1, 0}
	f.embeddings["both"] = []float32{0.99, 0.01}

	query := store.BuildFTSQuery("both matches")
	f.ftsResults[query] = []store.Node{{ID: "both", Title: "Both"}}

	anchors, err := FindAnchors(context.Background(), f, "both matches", "task", DefaultAnchorConfig())
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, a := range anchors {
		if a.NodeID == "both" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected 'both' to appear exactly once, got %d times in %+v", count, anchors)
	}
}

func TestGatherContext_MergesBestRelevancePerNode(t *testing.T) {
	f := newFakeStore()
	f.addNode(store.Node{ID: "task", Title: "Task"})
	f.addNode(store.Node{ID: "anchor1", Title: "Anchor One", IsItem: true})
	f.addNode(store.Node{ID: "anchor2", Title: "Anchor Two", IsItem: true})
	f.addNode(store.Node{ID: "shared", Title: "Shared Node", IsItem: true})

	conf := 0.9
	f.edges = append(f.edges,
		store.Edge{ID: "e1", SourceID: "anchor1", TargetID: "shared", EdgeType: "related", Confidence: &conf},
		store.Edge{ID: "e2", SourceID: "anchor2", TargetID: "shared", EdgeType: "contradicts", Confidence: &conf},
	)

	anchors := []Anchor{
		{NodeID: "anchor1", Title: "Anchor One", Source: SourceSemantic},
		{NodeID: "anchor2", Title: "Anchor Two", Source: SourceSemantic},
	}

	rows, err := GatherContext(context.Background(), f, anchors, "task", DefaultGatherConfig())
	if err != nil {
		t.Fatal(err)
	}

	var shared *ContextRow
	for i := range rows {
		if rows[i].NodeID == "shared" {
			shared = &rows[i]
		}
	}
	if shared == nil {
		t.Fatal("expected shared node in gathered context")
	}
	if shared.Anchor != "Anchor Two" {
		t.Errorf("expected the higher-relevance anchor (contradicts is cheaper) to win, got anchor=%q", shared.Anchor)
	}
}

func TestGatherContext_ExcludesTaskNode(t *testing.T) {
	f := newFakeStore()
	f.addNode(store.Node{ID: "task", Title: "Task", IsItem: true})
	f.addNode(store.Node{ID: "anchor1", Title: "Anchor", IsItem: true})
	conf := 0.9
	f.edges = append(f.edges, store.Edge{ID: "e1", SourceID: "anchor1", TargetID: "task", EdgeType: "related", Confidence: &conf})

	anchors := []Anchor{{NodeID: "anchor1", Title: "Anchor", Source: SourceSemantic}}
	rows, err := GatherContext(context.Background(), f, anchors, "task", DefaultGatherConfig())
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if r.NodeID == "task" {
			t.Error("task node should be excluded from gathered context")
		}
	}
}

func TestGatherContext_IncludesAnchorItselfWhenNotReached(t *testing.T) {
	f := newFakeStore()
	f.addNode(store.Node{ID: "task", Title: "Task"})
	f.addNode(store.Node{ID: "lonely", Title: "Lonely Anchor", IsItem: true})

	anchors := []Anchor{{NodeID: "lonely", Title: "Lonely Anchor", Source: SourceFTS}}
	rows, err := GatherContext(context.Background(), f, anchors, "task", DefaultGatherConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].NodeID != "lonely" {
		t.Fatalf("expected lonely anchor included as its own row, got %+v", rows)
	}
	if rows[0].Via != "FTS match" {
		t.Errorf("expected via label 'FTS match', got %q", rows[0].Via)
	}
}

// failingStore wraps fakeStore and fails selected operations, for exercising
// the one-source-down recovery paths.
type failingStore struct {
	*fakeStore
	failFTS        bool
	failEmbeddings bool
	failEdgesFor   map[string]bool
}

func (f *failingStore) FTSSearch(ctx context.Context, query string) ([]store.Node, error) {
	if f.failFTS {
		return nil, errors.New("fts index corrupt")
	}
	return f.fakeStore.FTSSearch(ctx, query)
}

func (f *failingStore) ForEachEmbedding(ctx context.Context, yield func(store.NodeEmbedding) error) error {
	if f.failEmbeddings {
		return errors.New("embedding scan failed")
	}
	return f.fakeStore.ForEachEmbedding(ctx, yield)
}

func (f *failingStore) GetEdgesTouching(ctx context.Context, id string) ([]store.Edge, error) {
	if f.failEdgesFor[id] {
		return nil, errors.New("edge read failed")
	}
	return f.fakeStore.GetEdgesTouching(ctx, id)
}

func TestFindAnchors_SurvivesFTSFailure(t *testing.T) {
	inner := newFakeStore()
	inner.addNode(store.Node{ID: "task", Title: "Task"})
	inner.addNode(store.Node{ID: "sem1", Title: "Semantic Hit"})
	inner.embeddings["task"] = []float32{1, 0}
	inner.embeddings["sem1"] = []float32{0.99, 0.01}

	f := &failingStore{fakeStore: inner, failFTS: true}
	anchors, err := FindAnchors(context.Background(), f, "some keyword query", "task", DefaultAnchorConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(anchors) != 1 || anchors[0].NodeID != "sem1" {
		t.Fatalf("expected the surviving semantic source to produce sem1, got %+v", anchors)
	}
}

func TestFindAnchors_SurvivesSemanticFailure(t *testing.T) {
	inner := newFakeStore()
	inner.addNode(store.Node{ID: "task", Title: "Task"})
	inner.addNode(store.Node{ID: "kw1", Title: "Keyword Hit"})
	inner.embeddings["task"] = []float32{1, 0}
	query := store.BuildFTSQuery("keyword query")
	inner.ftsResults[query] = []store.Node{{ID: "kw1", Title: "Keyword Hit"}}

	f := &failingStore{fakeStore: inner, failEmbeddings: true}
	anchors, err := FindAnchors(context.Background(), f, "keyword query", "task", DefaultAnchorConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(anchors) != 1 || anchors[0].NodeID != "kw1" {
		t.Fatalf("expected the surviving fts source to produce kw1, got %+v", anchors)
	}
}

func TestFindAnchors_BothSourcesFailingIsAnError(t *testing.T) {
	inner := newFakeStore()
	inner.addNode(store.Node{ID: "task", Title: "Task"})
	inner.embeddings["task"] = []float32{1, 0}

	f := &failingStore{fakeStore: inner, failFTS: true, failEmbeddings: true}
	if _, err := FindAnchors(context.Background(), f, "keyword query", "task", DefaultAnchorConfig()); err == nil {
		t.Fatal("expected an error when both anchor sources fail")
	}
}

func TestGatherContext_SkipsFailingAnchor(t *testing.T) {
	inner := newFakeStore()
	inner.addNode(store.Node{ID: "task", Title: "Task"})
	inner.addNode(store.Node{ID: "bad", Title: "Bad Anchor", IsItem: true})
	inner.addNode(store.Node{ID: "good", Title: "Good Anchor", IsItem: true})
	inner.addNode(store.Node{ID: "reached", Title: "Reached", IsItem: true})
	conf := 0.9
	inner.edges = append(inner.edges,
		store.Edge{ID: "e1", SourceID: "good", TargetID: "reached", EdgeType: "supports", Confidence: &conf},
	)

	f := &failingStore{fakeStore: inner, failEdgesFor: map[string]bool{"bad": true}}
	anchors := []Anchor{
		{NodeID: "bad", Title: "Bad Anchor", Source: SourceSemantic},
		{NodeID: "good", Title: "Good Anchor", Source: SourceSemantic},
	}
	rows, err := GatherContext(context.Background(), f, anchors, "task", DefaultGatherConfig())
	if err != nil {
		t.Fatal(err)
	}

	ids := make(map[string]bool, len(rows))
	for _, r := range rows {
		ids[r.NodeID] = true
	}
	if !ids["good"] || !ids["reached"] {
		t.Fatalf("expected the surviving anchor and its reached node, got %+v", rows)
	}
}

func TestGatherContext_RowCarriesPathProvenance(t *testing.T) {
	f := newFakeStore()
	f.addNode(store.Node{ID: "task", Title: "Task"})
	f.addNode(store.Node{ID: "a", Title: "Anchor", IsItem: true})
	f.addNode(store.Node{ID: "b", Title: "Mid", IsItem: true})
	f.addNode(store.Node{ID: "c", Title: "Far", IsItem: true})
	conf := 0.8
	f.edges = append(f.edges,
		store.Edge{ID: "e1", SourceID: "a", TargetID: "b", EdgeType: "supports", Confidence: &conf},
		store.Edge{ID: "e2", SourceID: "b", TargetID: "c", EdgeType: "supports", Confidence: &conf},
	)

	anchors := []Anchor{{NodeID: "a", Title: "Anchor", Source: SourceSemantic}}
	rows, err := GatherContext(context.Background(), f, anchors, "task", DefaultGatherConfig())
	if err != nil {
		t.Fatal(err)
	}
	var far *ContextRow
	for i := range rows {
		if rows[i].NodeID == "c" {
			far = &rows[i]
		}
	}
	if far == nil {
		t.Fatal("expected node c in gathered context")
	}
	if far.Hops != 2 || len(far.Path) != 2 {
		t.Fatalf("expected 2 hops with a 2-entry path, got hops=%d path=%+v", far.Hops, far.Path)
	}
	if far.Path[len(far.Path)-1].NodeID != "c" {
		t.Errorf("expected path to terminate at the row's own node, got %+v", far.Path)
	}
	if far.Via != "supports -> supports" {
		t.Errorf("expected via chain, got %q", far.Via)
	}
	if far.Distance <= 0 {
		t.Errorf("expected positive distance, got %f", far.Distance)
	}
}
