package entrypoints

import (
	"testing"

	"DexTracer/internal/apk"
	"DexTracer/internal/dex"
)

func testTable(t *testing.T, classNames ...string) *dex.ClassTable {
	t.Helper()
	b := apk.NewDexBuilder("classes.dex")
	for _, name := range classNames {
		desc := "L" + replaceDots(name) + ";"
		c := b.Class(desc, dex.AccPublic)
		c.Super("Ljava/lang/Object;")
		c.Method("onCreate", "V", []string{"Landroid/os/Bundle;"}, dex.AccPublic, []uint16{0x0e})
	}
	d := b.Build()
	snap := &apk.Snapshot{Manifest: apk.Manifest{PackageName: "test"}, Dex: []apk.Dex{d}}
	classes, _, err := dex.ExtractClasses(snap, false)
	if err != nil {
		t.Fatalf("ExtractClasses: %v", err)
	}
	return dex.NewClassTable(classes)
}

func replaceDots(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			out[i] = '/'
		} else {
			out[i] = s[i]
		}
	}
	return string(out)
}

func deeplinkFilter() apk.IntentFilter {
	return apk.IntentFilter{
		Actions:    []string{"android.intent.action.VIEW"},
		Categories: []string{"android.intent.category.BROWSABLE"},
		Data:       []apk.DataFilter{{Scheme: "https", Host: "example.com"}},
	}
}

func TestDeeplinkClassification(t *testing.T) {
	table := testTable(t, "com.example.DeepLinkActivity")
	manifest := &apk.Manifest{
		PackageName: "com.example",
		Components: []apk.Component{{
			ClassName:     "com.example.DeepLinkActivity",
			Kind:          apk.KindActivity,
			Exported:      true,
			IntentFilters: []apk.IntentFilter{deeplinkFilter()},
		}},
	}

	a := NewAnalyzer(manifest, table)
	eps := a.EntryPoints()
	if len(eps) != 1 {
		t.Fatalf("got %d entry points, want 1", len(eps))
	}
	if !eps[0].IsDeeplinkHandler {
		t.Error("VIEW + BROWSABLE + https://example.com not classified as deeplink")
	}
	if handlers := a.DeeplinkHandlers(); len(handlers) != 1 {
		t.Errorf("DeeplinkHandlers = %d, want 1", len(handlers))
	}

	// Without the VIEW action the same filter is not a deeplink.
	noView := deeplinkFilter()
	noView.Actions = []string{"android.intent.action.SEND"}
	manifest.Components[0].IntentFilters = []apk.IntentFilter{noView}
	a = NewAnalyzer(manifest, table)
	if a.EntryPoints()[0].IsDeeplinkHandler {
		t.Error("filter without VIEW classified as deeplink")
	}
}

func TestDeeplinkRequiresData(t *testing.T) {
	table := testTable(t, "com.example.A")
	noData := deeplinkFilter()
	noData.Data = nil
	manifest := &apk.Manifest{
		PackageName: "com.example",
		Components: []apk.Component{{
			ClassName:     "com.example.A",
			Kind:          apk.KindActivity,
			IntentFilters: []apk.IntentFilter{noData},
		}},
	}
	if NewAnalyzer(manifest, table).EntryPoints()[0].IsDeeplinkHandler {
		t.Error("filter without scheme or host classified as deeplink")
	}
}

func TestClassFoundTracking(t *testing.T) {
	table := testTable(t, "com.example.Present")
	manifest := &apk.Manifest{
		PackageName: "com.example",
		Components: []apk.Component{
			{ClassName: "com.example.Present", Kind: apk.KindActivity},
			{ClassName: "com.example.Stripped", Kind: apk.KindService},
		},
	}

	a := NewAnalyzer(manifest, table)
	eps := a.EntryPoints()
	if len(eps) != 2 {
		t.Fatalf("declared-but-stripped component dropped: %d entry points", len(eps))
	}
	if !eps[0].ClassFound || eps[0].Class == nil {
		t.Error("present class not bound")
	}
	if eps[1].ClassFound || eps[1].Class != nil {
		t.Error("stripped class reported as found")
	}

	if ep, ok := a.EntryPointWithClass("com.example.Present"); !ok || ep.Class.SimpleName != "Present" {
		t.Error("EntryPointWithClass missed a bound component")
	}
	if _, ok := a.EntryPointWithClass("com.example.Stripped"); ok {
		t.Error("EntryPointWithClass returned ok for a stripped class")
	}
	if _, ok := a.EntryPointWithClass("com.example.Undeclared"); ok {
		t.Error("EntryPointWithClass returned ok for an undeclared class")
	}

	stats := a.Stats()
	if stats.Total != 2 || stats.ClassFound != 1 || stats.ByKind[apk.KindService] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestLauncherDetection(t *testing.T) {
	table := testTable(t, "com.example.Main")
	manifest := &apk.Manifest{
		PackageName: "com.example",
		Components: []apk.Component{{
			ClassName: "com.example.Main",
			Kind:      apk.KindActivity,
			IntentFilters: []apk.IntentFilter{{
				Actions:    []string{"android.intent.action.MAIN"},
				Categories: []string{"android.intent.category.LAUNCHER"},
			}},
		}},
	}
	a := NewAnalyzer(manifest, table)
	if !a.EntryPoints()[0].IsLauncher {
		t.Error("MAIN + LAUNCHER not classified as launcher")
	}
	if a.EntryPoints()[0].IsDeeplinkHandler {
		t.Error("launcher filter classified as deeplink")
	}
}

func TestDeeplinkPatterns(t *testing.T) {
	ep := EntryPoint{Component: apk.Component{
		IntentFilters: []apk.IntentFilter{
			{
				Actions:    []string{"android.intent.action.VIEW"},
				Categories: []string{"android.intent.category.DEFAULT"},
				Data: []apk.DataFilter{
					{Scheme: "https", Host: "example.com", Path: "/open"},
					{Scheme: "myapp"},
				},
			},
		},
	}}
	got := ep.DeeplinkPatterns()
	want := []string{"https://example.com/open", "myapp://*"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("patterns = %v, want %v", got, want)
	}
}

func TestPackagePrefixes(t *testing.T) {
	table := testTable(t, "com.example.app.Main", "com.example.app.Second", "com.other.Svc")
	manifest := &apk.Manifest{
		PackageName: "com.example.app",
		Components: []apk.Component{
			{ClassName: "com.example.app.Main", Kind: apk.KindActivity},
			{ClassName: "com.example.app.Second", Kind: apk.KindActivity},
			{ClassName: "com.other.Svc", Kind: apk.KindService},
			{ClassName: "com.gone.X", Kind: apk.KindReceiver},
		},
	}
	got := NewAnalyzer(manifest, table).PackagePrefixes()
	want := []string{"com.example.app", "com.other"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("prefixes = %v, want %v", got, want)
	}
}

func TestLifecycleMethods(t *testing.T) {
	if ms := LifecycleMethods(apk.KindReceiver); len(ms) != 1 || ms[0] != "onReceive" {
		t.Errorf("receiver lifecycle = %v", ms)
	}
	if ms := LifecycleMethods(apk.KindActivity); len(ms) != 5 {
		t.Errorf("activity lifecycle = %v", ms)
	}
	if ms := LifecycleMethods(apk.ComponentKind("widget")); ms != nil {
		t.Errorf("unknown kind lifecycle = %v", ms)
	}
}
