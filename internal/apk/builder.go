package apk

import "fmt"

// DexBuilder assembles a well-formed Dex programmatically, interning strings,
// types, protos and method ids into the shared arenas the same way dx does.
// Collaborators that synthesize snapshots (and the test suite) use it so the
// arena invariants hold by construction.
type DexBuilder struct {
	dex       Dex
	stringIdx map[string]uint32
	typeIdx   map[string]uint32
	protoIdx  map[string]uint32
	methodIdx map[string]uint32
	classIdx  map[string]int
}

// NewDexBuilder creates a builder for a DEX file with the given name
// (e.g. "classes.dex").
func NewDexBuilder(name string) *DexBuilder {
	return &DexBuilder{
		dex:       Dex{Name: name},
		stringIdx: make(map[string]uint32),
		typeIdx:   make(map[string]uint32),
		protoIdx:  make(map[string]uint32),
		methodIdx: make(map[string]uint32),
		classIdx:  make(map[string]int),
	}
}

// String interns s into the string arena and returns its index.
func (b *DexBuilder) String(s string) uint32 {
	if idx, ok := b.stringIdx[s]; ok {
		return idx
	}
	idx := uint32(len(b.dex.Strings))
	b.dex.Strings = append(b.dex.Strings, s)
	b.stringIdx[s] = idx
	return idx
}

// Type interns a type descriptor (e.g. "Landroid/webkit/WebView;") and
// returns its index in the type arena.
func (b *DexBuilder) Type(descriptor string) uint32 {
	if idx, ok := b.typeIdx[descriptor]; ok {
		return idx
	}
	idx := uint32(len(b.dex.Types))
	b.dex.Types = append(b.dex.Types, descriptor)
	b.typeIdx[descriptor] = idx
	return idx
}

// Proto interns a method prototype and returns its proto index.
func (b *DexBuilder) Proto(returnDesc string, paramDescs ...string) uint32 {
	key := returnDesc
	for _, p := range paramDescs {
		key += "|" + p
	}
	if idx, ok := b.protoIdx[key]; ok {
		return idx
	}

	proto := Proto{ReturnTypeIdx: b.Type(returnDesc)}
	for _, p := range paramDescs {
		proto.ParamTypeIdxs = append(proto.ParamTypeIdxs, b.Type(p))
	}
	idx := uint32(len(b.dex.Protos))
	b.dex.Protos = append(b.dex.Protos, proto)
	b.protoIdx[key] = idx
	return idx
}

// Method interns a method id and returns its index in the method table. The
// class is a type descriptor; params and ret are type descriptors too.
func (b *DexBuilder) Method(classDesc, name, ret string, params ...string) uint32 {
	key := classDesc + "->" + name + "(" + fmt.Sprint(params) + ")" + ret
	if idx, ok := b.methodIdx[key]; ok {
		return idx
	}
	m := MethodID{
		ClassIdx: b.Type(classDesc),
		ProtoIdx: b.Proto(ret, params...),
		NameIdx:  b.String(name),
	}
	idx := uint32(len(b.dex.Methods))
	b.dex.Methods = append(b.dex.Methods, m)
	b.methodIdx[key] = idx
	return idx
}

// Field interns a field id and returns its index in the field table.
func (b *DexBuilder) Field(classDesc, name, typeDesc string) uint32 {
	f := FieldID{
		ClassIdx: b.Type(classDesc),
		TypeIdx:  b.Type(typeDesc),
		NameIdx:  b.String(name),
	}
	idx := uint32(len(b.dex.Fields))
	b.dex.Fields = append(b.dex.Fields, f)
	return idx
}

// Class adds (or returns) a class definition for the descriptor and returns a
// handle for attaching methods and fields.
func (b *DexBuilder) Class(classDesc string, accessFlags uint32) *ClassBuilder {
	if i, ok := b.classIdx[classDesc]; ok {
		return &ClassBuilder{dex: b, index: i}
	}
	def := ClassDef{
		ClassIdx:      b.Type(classDesc),
		SuperclassIdx: NoIndex,
		AccessFlags:   accessFlags,
	}
	b.dex.Classes = append(b.dex.Classes, def)
	i := len(b.dex.Classes) - 1
	b.classIdx[classDesc] = i
	return &ClassBuilder{dex: b, index: i}
}

// Build returns the assembled Dex. The builder must not be reused afterwards:
// the returned arenas are meant to be immutable.
func (b *DexBuilder) Build() Dex {
	return b.dex
}

// ClassBuilder attaches members to one class definition.
type ClassBuilder struct {
	dex   *DexBuilder
	index int
}

func (c *ClassBuilder) def() *ClassDef { return &c.dex.dex.Classes[c.index] }

// Super sets the superclass descriptor.
func (c *ClassBuilder) Super(descriptor string) *ClassBuilder {
	c.def().SuperclassIdx = c.dex.Type(descriptor)
	return c
}

// Interface adds an implemented interface descriptor.
func (c *ClassBuilder) Interface(descriptor string) *ClassBuilder {
	c.def().InterfaceIdxs = append(c.def().InterfaceIdxs, c.dex.Type(descriptor))
	return c
}

// Method adds a method with raw code units. Pass nil code for abstract or
// native methods. Returns the method index for use in invoke operands.
func (c *ClassBuilder) Method(name, ret string, params []string, accessFlags uint32, code []uint16) uint32 {
	classDesc := c.dex.dex.Types[c.def().ClassIdx]
	idx := c.dex.Method(classDesc, name, ret, params...)
	c.def().Methods = append(c.def().Methods, EncodedMethod{
		MethodIdx:   idx,
		AccessFlags: accessFlags,
		Code:        code,
	})
	return idx
}

// Field adds a field definition to the class.
func (c *ClassBuilder) Field(name, typeDesc string, accessFlags uint32) uint32 {
	classDesc := c.dex.dex.Types[c.def().ClassIdx]
	idx := c.dex.Field(classDesc, name, typeDesc)
	c.def().Fields = append(c.def().Fields, EncodedField{
		FieldIdx:    idx,
		AccessFlags: accessFlags,
	})
	return idx
}
