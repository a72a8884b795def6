package analysis

import (
	"context"
	"strings"
	"testing"

	"DexTracer/internal/apk"
	"DexTracer/internal/dex"
	"DexTracer/internal/model"
)

// sessionSnapshot builds a synthetic app whose deeplink MainActivity reads an
// Intent extra in onCreate and hands it to WebView.loadUrl via a helper.
func sessionSnapshot() *apk.Snapshot {
	b := apk.NewDexBuilder("classes.dex")

	loadURL := b.Method("Landroid/webkit/WebView;", "loadUrl", "V", "Ljava/lang/String;")
	getExtra := b.Method("Landroid/content/Intent;", "getStringExtra", "Ljava/lang/String;", "Ljava/lang/String;")
	helper := b.Method("Lcom/x/MainActivity;", "loadPage", "V")

	main := b.Class("Lcom/x/MainActivity;", dex.AccPublic)
	main.Super("Landroid/app/Activity;")
	main.Method("onCreate", "V", []string{"Landroid/os/Bundle;"}, dex.AccPublic, []uint16{
		0x206e, uint16(getExtra), 0x0010,
		0x106e, uint16(helper), 0x0000,
		0x0e,
	})
	main.Method("loadPage", "V", nil, dex.AccPrivate, []uint16{
		0x206e, uint16(loadURL), 0x0010,
		0x0e,
	})

	return &apk.Snapshot{
		Manifest: apk.Manifest{
			PackageName: "com.x",
			Components: []apk.Component{{
				ClassName: "com.x.MainActivity",
				Kind:      apk.KindActivity,
				Exported:  true,
				IntentFilters: []apk.IntentFilter{{
					Actions:    []string{"android.intent.action.VIEW"},
					Categories: []string{"android.intent.category.BROWSABLE"},
					Data:       []apk.DataFilter{{Scheme: "https", Host: "x.example"}},
				}},
			}},
		},
		Dex: []apk.Dex{b.Build()},
	}
}

func TestSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	session, err := NewSession(ctx, sessionSnapshot(), Options{Quiet: true})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if session.Table.Len() != 1 {
		t.Errorf("classes = %d, want 1", session.Table.Len())
	}
	if got := session.EntryPoints.Stats().Deeplinks; got != 1 {
		t.Errorf("deeplinks = %d, want 1", got)
	}

	findings, err := session.FindFlows(ctx, 10)
	if err != nil {
		t.Fatalf("FindFlows: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(findings))
	}

	f := findings[0]
	if f.Category != model.CategoryWebView {
		t.Errorf("category = %q", f.Category)
	}
	if f.EntryPoint != "com.x.MainActivity" {
		t.Errorf("entry point = %q", f.EntryPoint)
	}
	if !f.Deeplink {
		t.Error("deeplink flag lost")
	}
	// Intent source plus deeplink bonus puts a short chain in the High band.
	if f.Level != "High" {
		t.Errorf("level = %q (confidence %.2f), want High", f.Level, f.Confidence)
	}
	if len(f.Chains) == 0 || len(f.Chains[0]) != 3 {
		t.Fatalf("chains = %+v, want one 3-step chain", f.Chains)
	}
	if !strings.Contains(f.Chains[0][2].Signature, "WebView.loadUrl") {
		t.Errorf("sink step = %q", f.Chains[0][2].Signature)
	}
}

func TestSessionRejectsEmptySnapshot(t *testing.T) {
	_, err := NewSession(context.Background(), &apk.Snapshot{}, Options{Quiet: true})
	if err == nil {
		t.Fatal("expected validation error for empty snapshot")
	}
}

func TestSessionParallelMatchesSequential(t *testing.T) {
	ctx := context.Background()
	seq, err := NewSession(ctx, sessionSnapshot(), Options{Quiet: true})
	if err != nil {
		t.Fatal(err)
	}
	par, err := NewSession(ctx, sessionSnapshot(), Options{Quiet: true, Parallel: true})
	if err != nil {
		t.Fatal(err)
	}

	a, _ := seq.FindFlows(ctx, 10)
	b, _ := par.FindFlows(ctx, 10)
	if len(a) != len(b) {
		t.Fatalf("finding count differs: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].EntryPoint != b[i].EntryPoint || a[i].SinkMethod != b[i].SinkMethod || a[i].Confidence != b[i].Confidence {
			t.Errorf("finding %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
