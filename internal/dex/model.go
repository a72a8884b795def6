// Package dex holds the bytecode model and decoder: classes, methods, fields,
// typed instructions and method-reference resolution over the immutable arenas
// of one package snapshot.
package dex

import "strings"

// Access flags as defined by the DEX format.
const (
	AccPublic     = 0x0001
	AccPrivate    = 0x0002
	AccProtected  = 0x0004
	AccStatic     = 0x0008
	AccFinal      = 0x0010
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccNative     = 0x0100
	AccEnum       = 0x4000
)

// MethodRef is a resolved method reference: the label of call-graph nodes and
// edges, and the unit sink patterns are matched against. Identity is the full
// signature; overloads are never collapsed by name alone.
type MethodRef struct {
	ClassName  string
	MethodName string
	Params     []string
	Return     string
}

// Signature renders the full human-readable signature,
// e.g. "android.webkit.WebView.loadUrl(java.lang.String): void".
func (m MethodRef) Signature() string {
	var sb strings.Builder
	sb.WriteString(m.ClassName)
	sb.WriteByte('.')
	sb.WriteString(m.MethodName)
	sb.WriteByte('(')
	sb.WriteString(strings.Join(m.Params, ", "))
	sb.WriteString("): ")
	sb.WriteString(m.Return)
	return sb.String()
}

// SimpleClassName returns the last component of the class name.
func (m MethodRef) SimpleClassName() string {
	if i := strings.LastIndex(m.ClassName, "."); i >= 0 {
		return m.ClassName[i+1:]
	}
	return m.ClassName
}

// Field is one field of a class.
type Field struct {
	Name           string
	Type           string
	DeclaringClass string
	AccessFlags    uint32
}

func (f *Field) IsPublic() bool  { return f.AccessFlags&AccPublic != 0 }
func (f *Field) IsPrivate() bool { return f.AccessFlags&AccPrivate != 0 }
func (f *Field) IsStatic() bool  { return f.AccessFlags&AccStatic != 0 }
func (f *Field) IsFinal() bool   { return f.AccessFlags&AccFinal != 0 }

// Method is one method of a class. Code holds the raw 16-bit code units and is
// empty for abstract and native methods. DexIndex names the DEX file whose
// arenas resolve the method indices appearing in Code.
type Method struct {
	Name           string
	DeclaringClass string
	Params         []string
	Return         string
	AccessFlags    uint32
	Code           []uint16
	DexIndex       int
}

func (m *Method) IsPublic() bool    { return m.AccessFlags&AccPublic != 0 }
func (m *Method) IsPrivate() bool   { return m.AccessFlags&AccPrivate != 0 }
func (m *Method) IsProtected() bool { return m.AccessFlags&AccProtected != 0 }
func (m *Method) IsStatic() bool    { return m.AccessFlags&AccStatic != 0 }
func (m *Method) IsFinal() bool     { return m.AccessFlags&AccFinal != 0 }
func (m *Method) IsAbstract() bool  { return m.AccessFlags&AccAbstract != 0 }
func (m *Method) IsNative() bool    { return m.AccessFlags&AccNative != 0 }

// IsConstructor reports whether this is an instance constructor.
func (m *Method) IsConstructor() bool { return m.Name == "<init>" }

// IsStaticInitializer reports whether this is the class initializer.
func (m *Method) IsStaticInitializer() bool { return m.Name == "<clinit>" }

// HasCode reports whether bytecode is present.
func (m *Method) HasCode() bool { return len(m.Code) > 0 }

// Ref returns the method's own reference.
func (m *Method) Ref() MethodRef {
	return MethodRef{
		ClassName:  m.DeclaringClass,
		MethodName: m.Name,
		Params:     m.Params,
		Return:     m.Return,
	}
}

// Class is one class of the snapshot. Immutable once extracted.
type Class struct {
	ClassName   string
	PackageName string
	SimpleName  string
	Superclass  string
	Interfaces  []string
	AccessFlags uint32
	Methods     []Method
	Fields      []Field
}

func (c *Class) IsPublic() bool    { return c.AccessFlags&AccPublic != 0 }
func (c *Class) IsFinal() bool     { return c.AccessFlags&AccFinal != 0 }
func (c *Class) IsAbstract() bool  { return c.AccessFlags&AccAbstract != 0 }
func (c *Class) IsInterface() bool { return c.AccessFlags&AccInterface != 0 }
func (c *Class) IsEnum() bool      { return c.AccessFlags&AccEnum != 0 }

// Method returns the first method with the given name, or nil.
func (c *Class) Method(name string) *Method {
	for i := range c.Methods {
		if c.Methods[i].Name == name {
			return &c.Methods[i]
		}
	}
	return nil
}

// MethodsNamed returns every overload with the given name.
func (c *Class) MethodsNamed(name string) []*Method {
	var out []*Method
	for i := range c.Methods {
		if c.Methods[i].Name == name {
			out = append(out, &c.Methods[i])
		}
	}
	return out
}

// ClassTable is the class set of one snapshot keyed by fully qualified name.
type ClassTable struct {
	classes map[string]*Class
	ordered []*Class
}

// NewClassTable builds a table from extracted classes. Later duplicates of the
// same class name (multidex overlap) are ignored: the first definition wins,
// matching runtime resolution order.
func NewClassTable(classes []Class) *ClassTable {
	t := &ClassTable{classes: make(map[string]*Class, len(classes))}
	for i := range classes {
		c := &classes[i]
		if _, ok := t.classes[c.ClassName]; ok {
			continue
		}
		t.classes[c.ClassName] = c
		t.ordered = append(t.ordered, c)
	}
	return t
}

// Lookup returns the class with the given fully qualified name.
func (t *ClassTable) Lookup(className string) (*Class, bool) {
	c, ok := t.classes[className]
	return c, ok
}

// All returns the classes in extraction order.
func (t *ClassTable) All() []*Class { return t.ordered }

// Len returns the number of distinct classes.
func (t *ClassTable) Len() int { return len(t.ordered) }

// SplitClassName splits a fully qualified class name into package and simple
// name. Accepts both dotted names and DEX descriptors ("Lcom/example/App;").
func SplitClassName(className string) (pkg, simple string) {
	clean := HumanType(className)
	if i := strings.LastIndex(clean, "."); i >= 0 {
		return clean[:i], clean[i+1:]
	}
	return "", clean
}

// HumanType converts a DEX type descriptor to a Java-style type name:
// "Landroid/webkit/WebView;" becomes "android.webkit.WebView",
// "[I" becomes "int[]". Names already in dotted form pass through.
func HumanType(descriptor string) string {
	dims := 0
	for strings.HasPrefix(descriptor, "[") {
		dims++
		descriptor = descriptor[1:]
	}

	var base string
	switch {
	case descriptor == "V":
		base = "void"
	case descriptor == "Z":
		base = "boolean"
	case descriptor == "B":
		base = "byte"
	case descriptor == "S":
		base = "short"
	case descriptor == "C":
		base = "char"
	case descriptor == "I":
		base = "int"
	case descriptor == "J":
		base = "long"
	case descriptor == "F":
		base = "float"
	case descriptor == "D":
		base = "double"
	case strings.HasPrefix(descriptor, "L") && strings.HasSuffix(descriptor, ";"):
		base = strings.ReplaceAll(descriptor[1:len(descriptor)-1], "/", ".")
	default:
		base = strings.ReplaceAll(descriptor, "/", ".")
	}

	return base + strings.Repeat("[]", dims)
}
