package dataflow

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"DexTracer/internal/apk"
	"DexTracer/internal/callgraph"
	"DexTracer/internal/dex"
	"DexTracer/internal/entrypoints"
)

const (
	mainDesc    = "Lcom/x/MainActivity;"
	webViewDesc = "Landroid/webkit/WebView;"
	intentDesc  = "Landroid/content/Intent;"
	stringDesc  = "Ljava/lang/String;"
	bundleDesc  = "Landroid/os/Bundle;"
)

type fixtureOpt struct {
	deeplink     bool
	intentSource bool
	resourceLoad bool
}

// buildFixture assembles the full stack for a synthetic app whose
// MainActivity.onCreate calls b, and b calls WebView.loadUrl.
func buildFixture(t *testing.T, opt fixtureOpt) (*Analyzer, *dex.ClassTable) {
	t.Helper()
	b := apk.NewDexBuilder("classes.dex")

	loadURL := b.Method(webViewDesc, "loadUrl", "V", stringDesc)
	mB := b.Method(mainDesc, "b", "V")
	getExtra := b.Method(intentDesc, "getStringExtra", stringDesc, stringDesc)

	main := b.Class(mainDesc, dex.AccPublic)
	main.Super("Landroid/app/Activity;")
	main.Method("onCreate", "V", []string{bundleDesc}, dex.AccPublic, []uint16{
		0x106e, uint16(mB), 0x0000,
		0x0e,
	})

	var bCode []uint16
	if opt.intentSource {
		bCode = append(bCode, 0x206e, uint16(getExtra), 0x0010)
	}
	if opt.resourceLoad {
		// const v0, #0x7f010001: a string resource id.
		bCode = append(bCode, 0x0014, 0x0001, 0x7f01)
	}
	bCode = append(bCode, 0x206e, uint16(loadURL), 0x0010, 0x0e)
	main.Method("b", "V", nil, dex.AccPrivate, bCode)

	snap := &apk.Snapshot{
		Manifest: apk.Manifest{
			PackageName: "com.x",
			Components: []apk.Component{{
				ClassName: "com.x.MainActivity",
				Kind:      apk.KindActivity,
				Exported:  true,
			}},
		},
		Dex: []apk.Dex{b.Build()},
	}
	if opt.deeplink {
		snap.Manifest.Components[0].IntentFilters = []apk.IntentFilter{{
			Actions:    []string{"android.intent.action.VIEW"},
			Categories: []string{"android.intent.category.BROWSABLE"},
			Data:       []apk.DataFilter{{Scheme: "https", Host: "x.example"}},
		}}
	}

	classes, _, err := dex.ExtractClasses(snap, false)
	if err != nil {
		t.Fatalf("ExtractClasses: %v", err)
	}
	table := dex.NewClassTable(classes)
	entries := entrypoints.NewAnalyzer(&snap.Manifest, table)
	graph, _, err := callgraph.Build(snap, table, callgraph.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a := NewAnalyzer(entries, graph)
	a.SetClassTable(table)
	return a, table
}

func TestWebViewFlowEndToEnd(t *testing.T) {
	a, _ := buildFixture(t, fixtureOpt{})

	flows, err := a.FindWebViewFlows(context.Background(), 5)
	if err != nil {
		t.Fatalf("FindWebViewFlows: %v", err)
	}
	if len(flows) != 1 {
		t.Fatalf("got %d flows, want 1", len(flows))
	}

	f := flows[0]
	if f.EntryPoint != "com.x.MainActivity" {
		t.Errorf("entry point = %q", f.EntryPoint)
	}
	if !strings.Contains(f.SinkMethod.Signature(), "WebView.loadUrl") {
		t.Errorf("sink = %q", f.SinkMethod.Signature())
	}
	if f.MinPathLength != 2 {
		t.Errorf("min_path_length = %d, want 2", f.MinPathLength)
	}
	if f.PathCount != 1 {
		t.Errorf("path_count = %d, want 1", f.PathCount)
	}
	if f.IsDeeplinkHandler {
		t.Error("non-deeplink component flagged as deeplink handler")
	}
	if sp := f.ShortestPath(); sp == nil || sp.Length != 2 {
		t.Errorf("shortest path = %v", sp)
	}
}

func TestFlowDepthTooSmall(t *testing.T) {
	a, _ := buildFixture(t, fixtureOpt{})
	flows, err := a.FindWebViewFlows(context.Background(), 1)
	if err != nil {
		t.Fatalf("FindWebViewFlows: %v", err)
	}
	// Depth 1 cannot reach the sink two hops away. Empty result, not error.
	if len(flows) != 0 {
		t.Errorf("got %d flows at depth 1, want 0", len(flows))
	}
}

func TestFindFlowsToUnknownPattern(t *testing.T) {
	a, _ := buildFixture(t, fixtureOpt{})
	flows, err := a.FindFlowsTo(context.Background(), []string{"NoSuchSink"}, 5)
	if err != nil || len(flows) != 0 {
		t.Errorf("got (%v, %v), want empty", flows, err)
	}
}

func TestAnalyzeDataFlowsWithIntentSource(t *testing.T) {
	a, _ := buildFixture(t, fixtureOpt{intentSource: true})
	flows, err := a.FindWebViewFlows(context.Background(), 5)
	if err != nil || len(flows) != 1 {
		t.Fatalf("flows = %v, err = %v", flows, err)
	}

	dfs := a.AnalyzeDataFlows(flows)
	if len(dfs) != 1 {
		t.Fatalf("got %d data flows, want 1", len(dfs))
	}
	df := dfs[0]
	if !strings.Contains(df.Source, "getStringExtra") {
		t.Errorf("source = %q, want Intent extraction", df.Source)
	}
	// 0.20 base + 0.35 source + 0.35 short path.
	if df.Confidence < 0.89 || df.Confidence > 0.91 {
		t.Errorf("confidence = %v, want 0.90", df.Confidence)
	}
	if df.Level != "High" {
		t.Errorf("level = %q, want High", df.Level)
	}
	if len(df.FlowPath) != 3 {
		t.Errorf("flow path = %v", df.FlowPath)
	}
}

func TestAnalyzeDataFlowsNoSourceNoDeeplink(t *testing.T) {
	a, _ := buildFixture(t, fixtureOpt{})
	flows, _ := a.FindWebViewFlows(context.Background(), 5)
	if dfs := a.AnalyzeDataFlows(flows); len(dfs) != 0 {
		t.Errorf("paths without a source or deeplink produced %d data flows", len(dfs))
	}
}

func TestAnalyzeDataFlowsDeeplink(t *testing.T) {
	a, _ := buildFixture(t, fixtureOpt{deeplink: true})
	flows, _ := a.FindWebViewFlows(context.Background(), 5)
	dfs := a.AnalyzeDataFlows(flows)
	if len(dfs) != 1 {
		t.Fatalf("got %d data flows, want 1", len(dfs))
	}
	if !strings.HasPrefix(dfs[0].Source, "deeplink:") {
		t.Errorf("source = %q, want deeplink marker", dfs[0].Source)
	}
	// 0.20 base + 0.35 short path + 0.10 deeplink: Medium without a source.
	if dfs[0].Level != "Medium" {
		t.Errorf("level = %q (confidence %v), want Medium", dfs[0].Level, dfs[0].Confidence)
	}
}

func TestHighRequiresSource(t *testing.T) {
	// Without a detected source the score never reaches the High band.
	if s := confidence(false, 1, true); s >= 0.7 {
		t.Errorf("sourceless best case scored %v", s)
	}
	if s := confidence(true, 12, false); Level(s) == "High" {
		t.Errorf("long path with source scored High: %v", s)
	}
}

type fixedResolver map[uint32]string

func (r fixedResolver) ResolveString(id uint32) (string, bool) {
	s, ok := r[id]
	return s, ok
}

func TestResourceResolverLowersConstantSink(t *testing.T) {
	a, _ := buildFixture(t, fixtureOpt{deeplink: true, resourceLoad: true})
	flows, _ := a.FindWebViewFlows(context.Background(), 5)
	before := a.AnalyzeDataFlows(flows)
	if len(before) != 1 {
		t.Fatalf("got %d data flows", len(before))
	}

	a.SetResourceResolver(fixedResolver{0x7f010001: "https://fixed.example.com"})
	after := a.AnalyzeDataFlows(flows)
	if after[0].Confidence >= before[0].Confidence {
		t.Errorf("constant sink argument did not lower confidence: %v -> %v",
			before[0].Confidence, after[0].Confidence)
	}

	// A resource resolving to a plain label changes nothing.
	a.SetResourceResolver(fixedResolver{0x7f010001: "Settings"})
	same := a.AnalyzeDataFlows(flows)
	if same[0].Confidence != before[0].Confidence {
		t.Errorf("non-URL resource changed confidence: %v -> %v",
			before[0].Confidence, same[0].Confidence)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	a, _ := buildFixture(t, fixtureOpt{intentSource: true, deeplink: true})
	ctx := context.Background()

	first, err := a.FindWebViewFlows(ctx, 5)
	if err != nil {
		t.Fatalf("FindWebViewFlows: %v", err)
	}
	second, _ := a.FindWebViewFlows(ctx, 5)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated flow search differs")
	}
	if !reflect.DeepEqual(a.AnalyzeDataFlows(first), a.AnalyzeDataFlows(second)) {
		t.Error("repeated scoring differs")
	}
}

func TestFindingsConversion(t *testing.T) {
	a, _ := buildFixture(t, fixtureOpt{intentSource: true})
	flows, _ := a.FindWebViewFlows(context.Background(), 5)
	rule := a.Rules()[0]
	findings := a.Findings(flows, rule)
	if len(findings) != 1 {
		t.Fatalf("got %d findings", len(findings))
	}
	fd := findings[0]
	if fd.Category != "webview" || fd.Severity != "High" {
		t.Errorf("category/severity = %s/%s", fd.Category, fd.Severity)
	}
	if fd.PathCount != 1 || fd.MinPathLength != 2 || len(fd.Chains) != 1 {
		t.Errorf("finding shape: %+v", fd)
	}
	if len(fd.Chains[0]) != 3 || fd.Chains[0][0].CallSite != "" || fd.Chains[0][1].CallSite == "" {
		t.Errorf("chain steps: %+v", fd.Chains[0])
	}
}

func TestGetStats(t *testing.T) {
	a, _ := buildFixture(t, fixtureOpt{deeplink: true})
	s := a.GetStats()
	if s.EntryPoints != 1 || s.DeeplinkHandlers != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.GraphMethods == 0 || s.GraphEdges == 0 {
		t.Errorf("graph counters empty: %+v", s)
	}
}
