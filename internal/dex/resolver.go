package dex

import (
	"fmt"

	"DexTracer/internal/apk"
)

// Resolver resolves constant-pool indices of one DEX file against its arenas.
// The arenas are immutable, so a Resolver is safe for concurrent use and every
// worker can hold its own view of the same Dex.
type Resolver struct {
	dex *apk.Dex
}

// NewResolver creates a resolver over the given DEX file.
func NewResolver(d *apk.Dex) *Resolver {
	return &Resolver{dex: d}
}

// String resolves a string index.
func (r *Resolver) String(idx int) (string, error) {
	if idx < 0 || idx >= len(r.dex.Strings) {
		return "", &apk.Error{
			Kind:   apk.ErrNotFound,
			Detail: fmt.Sprintf("%s: string index %d out of range (%d entries)", r.dex.Name, idx, len(r.dex.Strings)),
		}
	}
	return r.dex.Strings[idx], nil
}

// Type resolves a type index to a Java-style type name.
func (r *Resolver) Type(idx int) (string, error) {
	if idx < 0 || idx >= len(r.dex.Types) {
		return "", &apk.Error{
			Kind:   apk.ErrNotFound,
			Detail: fmt.Sprintf("%s: type index %d out of range (%d entries)", r.dex.Name, idx, len(r.dex.Types)),
		}
	}
	return HumanType(r.dex.Types[idx]), nil
}

// Method resolves a method index to a full MethodRef. Fails with a NotFound
// error when the index or any index it references is out of range.
func (r *Resolver) Method(idx int) (MethodRef, error) {
	if idx < 0 || idx >= len(r.dex.Methods) {
		return MethodRef{}, &apk.Error{
			Kind:   apk.ErrNotFound,
			Detail: fmt.Sprintf("%s: method index %d out of range (%d entries)", r.dex.Name, idx, len(r.dex.Methods)),
		}
	}
	m := r.dex.Methods[idx]

	className, err := r.Type(int(m.ClassIdx))
	if err != nil {
		return MethodRef{}, err
	}
	name, err := r.String(int(m.NameIdx))
	if err != nil {
		return MethodRef{}, err
	}

	if int(m.ProtoIdx) >= len(r.dex.Protos) {
		return MethodRef{}, &apk.Error{
			Kind:   apk.ErrNotFound,
			Detail: fmt.Sprintf("%s: proto index %d out of range (%d entries)", r.dex.Name, m.ProtoIdx, len(r.dex.Protos)),
		}
	}
	proto := r.dex.Protos[m.ProtoIdx]

	ret, err := r.Type(int(proto.ReturnTypeIdx))
	if err != nil {
		return MethodRef{}, err
	}
	params := make([]string, 0, len(proto.ParamTypeIdxs))
	for _, p := range proto.ParamTypeIdxs {
		t, err := r.Type(int(p))
		if err != nil {
			return MethodRef{}, err
		}
		params = append(params, t)
	}

	return MethodRef{
		ClassName:  className,
		MethodName: name,
		Params:     params,
		Return:     ret,
	}, nil
}

// Field resolves a field index to (declaring class, name, type).
func (r *Resolver) Field(idx int) (class, name, typ string, err error) {
	if idx < 0 || idx >= len(r.dex.Fields) {
		return "", "", "", &apk.Error{
			Kind:   apk.ErrNotFound,
			Detail: fmt.Sprintf("%s: field index %d out of range (%d entries)", r.dex.Name, idx, len(r.dex.Fields)),
		}
	}
	f := r.dex.Fields[idx]
	if class, err = r.Type(int(f.ClassIdx)); err != nil {
		return "", "", "", err
	}
	if name, err = r.String(int(f.NameIdx)); err != nil {
		return "", "", "", err
	}
	if typ, err = r.Type(int(f.TypeIdx)); err != nil {
		return "", "", "", err
	}
	return class, name, typ, nil
}
