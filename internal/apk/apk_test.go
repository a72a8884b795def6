package apk

import (
	"errors"
	"strings"
	"testing"
)

func viewFilter() IntentFilter {
	return IntentFilter{
		Actions:    []string{"android.intent.action.VIEW"},
		Categories: []string{"android.intent.category.DEFAULT", "android.intent.category.BROWSABLE"},
		Data:       []DataFilter{{Scheme: "https", Host: "example.com"}},
	}
}

func TestIsDeeplink(t *testing.T) {
	f := viewFilter()
	if !f.IsDeeplink() {
		t.Error("VIEW+BROWSABLE+data should classify as deeplink")
	}

	noData := viewFilter()
	noData.Data = nil
	if noData.IsDeeplink() {
		t.Error("filter without data elements is not a deeplink")
	}

	noView := viewFilter()
	noView.Actions = []string{"android.intent.action.SEND"}
	if noView.IsDeeplink() {
		t.Error("filter without VIEW action is not a deeplink")
	}

	// Short action names as some manifest decoders emit them.
	short := IntentFilter{
		Actions:    []string{"VIEW"},
		Categories: []string{"DEFAULT"},
		Data:       []DataFilter{{Scheme: "myapp"}},
	}
	if !short.IsDeeplink() {
		t.Error("unqualified VIEW/DEFAULT should still classify")
	}
}

func TestIsLauncher(t *testing.T) {
	f := IntentFilter{
		Actions:    []string{"android.intent.action.MAIN"},
		Categories: []string{"android.intent.category.LAUNCHER"},
	}
	if !f.IsLauncher() {
		t.Error("MAIN+LAUNCHER should classify as launcher")
	}
	if viewFilter().IsLauncher() {
		t.Error("deeplink filter misclassified as launcher")
	}
}

func TestReadSnapshot(t *testing.T) {
	input := `{
		"path": "app.apk",
		"manifest": {
			"package_name": "com.app",
			"components": [
				{"class_name": "com.app.MainActivity", "kind": "activity", "exported": true}
			]
		},
		"dex": [
			{"name": "classes.dex", "types": ["Lcom/app/MainActivity;"], "classes": [{"class_idx": 0, "superclass_idx": 4294967295}]}
		]
	}`
	snap, err := ReadSnapshot(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if snap.Manifest.PackageName != "com.app" {
		t.Errorf("PackageName = %q", snap.Manifest.PackageName)
	}
	if len(snap.Dex) != 1 || snap.Dex[0].Classes[0].SuperclassIdx != NoIndex {
		t.Errorf("dex not decoded as expected: %+v", snap.Dex)
	}
}

func TestReadSnapshotMalformed(t *testing.T) {
	_, err := ReadSnapshot(strings.NewReader("{not json"))
	var ae *Error
	if !errors.As(err, &ae) || ae.Kind != ErrInvalidSnapshot {
		t.Fatalf("want ErrInvalidSnapshot, got %v", err)
	}
}

func TestValidateMissingManifest(t *testing.T) {
	snap := &Snapshot{}
	err := snap.Validate()
	var ae *Error
	if !errors.As(err, &ae) || ae.Kind != ErrMissingManifest {
		t.Fatalf("want ErrMissingManifest, got %v", err)
	}
}

func TestValidateBadClassIndex(t *testing.T) {
	snap := &Snapshot{
		Manifest: Manifest{PackageName: "com.app"},
		Dex: []Dex{{
			Name:    "classes.dex",
			Types:   []string{"Lcom/app/A;"},
			Classes: []ClassDef{{ClassIdx: 7}},
		}},
	}
	err := snap.Validate()
	var ae *Error
	if !errors.As(err, &ae) || ae.Kind != ErrMalformedDex {
		t.Fatalf("want ErrMalformedDex, got %v", err)
	}
}

func TestBuilderInterning(t *testing.T) {
	b := NewDexBuilder("classes.dex")
	s1 := b.String("hello")
	s2 := b.String("hello")
	if s1 != s2 {
		t.Errorf("string interning broken: %d vs %d", s1, s2)
	}
	m1 := b.Method("Lcom/app/A;", "run", "V")
	m2 := b.Method("Lcom/app/A;", "run", "V")
	if m1 != m2 {
		t.Errorf("method interning broken: %d vs %d", m1, m2)
	}
	m3 := b.Method("Lcom/app/A;", "run", "V", "I")
	if m3 == m1 {
		t.Error("distinct proto should intern a new method id")
	}

	cls := b.Class("Lcom/app/A;", 0x0001)
	cls.Super("Ljava/lang/Object;")
	cls.Method("run", "V", nil, 0x0001, []uint16{0x0e})

	dex := b.Build()
	if len(dex.Classes) != 1 {
		t.Fatalf("classes = %d, want 1", len(dex.Classes))
	}
	if len(dex.Classes[0].Methods) != 1 {
		t.Errorf("encoded methods = %d, want 1", len(dex.Classes[0].Methods))
	}
	if err := (&Snapshot{Manifest: Manifest{PackageName: "x"}, Dex: []Dex{dex}}).Validate(); err != nil {
		t.Errorf("built dex should validate: %v", err)
	}
}
