// Package apk models the structured output of the external APK container and
// binary-manifest readers. The analysis core never touches ZIP or AXML bytes
// itself: it consumes a Snapshot that a collaborator has already decoded.
package apk

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// NoIndex marks an absent table index (e.g. a class without a superclass).
const NoIndex = 0xffffffff

// ComponentKind is the kind of a manifest-declared component.
type ComponentKind string

const (
	KindActivity ComponentKind = "activity"
	KindService  ComponentKind = "service"
	KindReceiver ComponentKind = "receiver"
	KindProvider ComponentKind = "provider"
)

// DataFilter is one <data> element of an intent filter.
type DataFilter struct {
	Scheme      string `json:"scheme,omitempty"`
	Host        string `json:"host,omitempty"`
	Port        string `json:"port,omitempty"`
	Path        string `json:"path,omitempty"`
	PathPrefix  string `json:"path_prefix,omitempty"`
	PathPattern string `json:"path_pattern,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}

// IntentFilter is one <intent-filter> element of a component.
type IntentFilter struct {
	Actions    []string     `json:"actions,omitempty"`
	Categories []string     `json:"categories,omitempty"`
	Data       []DataFilter `json:"data,omitempty"`
}

// Component is a manifest-declared Activity, Service, Receiver or Provider.
type Component struct {
	ClassName     string         `json:"class_name"`
	Kind          ComponentKind  `json:"kind"`
	Exported      bool           `json:"exported,omitempty"`
	IntentFilters []IntentFilter `json:"intent_filters,omitempty"`
}

// Manifest holds the decoded AndroidManifest.xml records relevant to analysis.
type Manifest struct {
	PackageName string      `json:"package_name"`
	Components  []Component `json:"components,omitempty"`
	Permissions []string    `json:"permissions,omitempty"`
}

// Proto is one entry of a DEX proto_ids table.
type Proto struct {
	ReturnTypeIdx uint32   `json:"return_type_idx"`
	ParamTypeIdxs []uint32 `json:"param_type_idxs,omitempty"`
}

// MethodID is one entry of a DEX method_ids table.
type MethodID struct {
	ClassIdx uint32 `json:"class_idx"`
	ProtoIdx uint32 `json:"proto_idx"`
	NameIdx  uint32 `json:"name_idx"`
}

// FieldID is one entry of a DEX field_ids table.
type FieldID struct {
	ClassIdx uint32 `json:"class_idx"`
	TypeIdx  uint32 `json:"type_idx"`
	NameIdx  uint32 `json:"name_idx"`
}

// EncodedField is a field definition inside a class_data_item.
type EncodedField struct {
	FieldIdx    uint32 `json:"field_idx"`
	AccessFlags uint32 `json:"access_flags"`
}

// EncodedMethod is a method definition inside a class_data_item. Code holds the
// raw 16-bit code units; it is empty for abstract and native methods.
type EncodedMethod struct {
	MethodIdx   uint32   `json:"method_idx"`
	AccessFlags uint32   `json:"access_flags"`
	Code        []uint16 `json:"code,omitempty"`
}

// ClassDef is one class_def_item plus its class data.
type ClassDef struct {
	ClassIdx      uint32          `json:"class_idx"`
	SuperclassIdx uint32          `json:"superclass_idx"`
	InterfaceIdxs []uint32        `json:"interface_idxs,omitempty"`
	AccessFlags   uint32          `json:"access_flags"`
	Fields        []EncodedField  `json:"fields,omitempty"`
	Methods       []EncodedMethod `json:"methods,omitempty"`
}

// Dex is the decoded shape of a single classesN.dex: the shared reference
// arenas plus the class definitions. The arenas are built once by the
// collaborator and only read afterwards, so parallel workers can share a Dex
// without synchronization.
type Dex struct {
	Name    string     `json:"name"`
	Strings []string   `json:"strings,omitempty"`
	Types   []string   `json:"types,omitempty"`
	Protos  []Proto    `json:"protos,omitempty"`
	Methods []MethodID `json:"methods,omitempty"`
	Fields  []FieldID  `json:"fields,omitempty"`
	Classes []ClassDef `json:"classes,omitempty"`
}

// Snapshot is one immutable view of an application package: the decoded
// manifest plus every contained DEX file. All analysis entities are scoped to
// one Snapshot.
type Snapshot struct {
	Path     string   `json:"path,omitempty"`
	Manifest Manifest `json:"manifest"`
	Dex      []Dex    `json:"dex,omitempty"`
}

// ReadSnapshot decodes a snapshot produced by the external container reader.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	if err := dec.Decode(&snap); err != nil {
		return nil, &Error{Kind: ErrInvalidSnapshot, Detail: "malformed snapshot", Err: err}
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ReadSnapshotFile reads and validates a snapshot file from disk.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidSnapshot, Detail: fmt.Sprintf("cannot open %s", path), Err: err}
	}
	defer f.Close()

	snap, err := ReadSnapshot(f)
	if err != nil {
		return nil, err
	}
	if snap.Path == "" {
		snap.Path = path
	}
	return snap, nil
}

// Validate checks the fatal preconditions: a usable manifest and table indices
// that stay inside their arenas. Per-method problems are not checked here;
// those surface as diagnostics during extraction.
func (s *Snapshot) Validate() error {
	if s.Manifest.PackageName == "" && len(s.Manifest.Components) == 0 {
		return &Error{Kind: ErrMissingManifest, Detail: "snapshot has no manifest records"}
	}
	for i := range s.Dex {
		d := &s.Dex[i]
		for _, cd := range d.Classes {
			if cd.ClassIdx >= uint32(len(d.Types)) {
				return &Error{
					Kind:   ErrMalformedDex,
					Detail: fmt.Sprintf("%s: class_idx %d outside type table (%d entries)", d.Name, cd.ClassIdx, len(d.Types)),
				}
			}
		}
	}
	return nil
}

// IsDeeplink reports whether the filter accepts externally supplied URIs:
// a VIEW action, a DEFAULT or BROWSABLE category, and at least one data
// element naming a scheme or host.
func (f IntentFilter) IsDeeplink() bool {
	hasView := false
	for _, a := range f.Actions {
		if strings.HasSuffix(a, ".VIEW") || a == "VIEW" {
			hasView = true
			break
		}
	}
	if !hasView {
		return false
	}

	hasCategory := false
	for _, c := range f.Categories {
		if strings.HasSuffix(c, ".DEFAULT") || strings.HasSuffix(c, ".BROWSABLE") || c == "DEFAULT" || c == "BROWSABLE" {
			hasCategory = true
			break
		}
	}
	if !hasCategory {
		return false
	}

	for _, d := range f.Data {
		if d.Scheme != "" || d.Host != "" {
			return true
		}
	}
	return false
}

// IsLauncher reports whether the filter is the home-screen launcher filter.
func (f IntentFilter) IsLauncher() bool {
	hasMain := false
	for _, a := range f.Actions {
		if strings.HasSuffix(a, ".MAIN") || a == "MAIN" {
			hasMain = true
			break
		}
	}
	if !hasMain {
		return false
	}
	for _, c := range f.Categories {
		if strings.HasSuffix(c, ".LAUNCHER") || c == "LAUNCHER" {
			return true
		}
	}
	return false
}
