package dex

import "strings"

// ClassFilter selects classes by package prefix, name substring and access
// flags. The zero value matches every class.
type ClassFilter struct {
	Packages        []string
	ExcludePackages []string
	ClassName       string
	Modifiers       uint32
}

// Matches reports whether the class passes every set criterion.
func (f *ClassFilter) Matches(c *Class) bool {
	if len(f.Packages) > 0 {
		hit := false
		for _, pkg := range f.Packages {
			if strings.HasPrefix(c.PackageName, pkg) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, pkg := range f.ExcludePackages {
		if strings.HasPrefix(c.PackageName, pkg) {
			return false
		}
	}
	if f.ClassName != "" && !strings.Contains(c.ClassName, f.ClassName) && !strings.Contains(c.SimpleName, f.ClassName) {
		return false
	}
	if f.Modifiers != 0 && c.AccessFlags&f.Modifiers != f.Modifiers {
		return false
	}
	return true
}

// MethodFilter selects methods by name substring, signature shape and access
// flags. The zero value matches every method; ParamCount uses -1 for "any".
type MethodFilter struct {
	Name       string
	ParamCount int
	ParamTypes []string
	ReturnType string
	Modifiers  uint32
}

// NewMethodFilter returns a filter that matches every method.
func NewMethodFilter() MethodFilter {
	return MethodFilter{ParamCount: -1}
}

// Matches reports whether the method passes every set criterion.
func (f *MethodFilter) Matches(m *Method) bool {
	if f.Name != "" && !strings.Contains(m.Name, f.Name) {
		return false
	}
	if f.ParamCount >= 0 && len(m.Params) != f.ParamCount {
		return false
	}
	if len(f.ParamTypes) > 0 {
		if len(m.Params) != len(f.ParamTypes) {
			return false
		}
		for i, want := range f.ParamTypes {
			if !strings.Contains(m.Params[i], want) {
				return false
			}
		}
	}
	if f.ReturnType != "" && !strings.Contains(m.Return, f.ReturnType) {
		return false
	}
	if f.Modifiers != 0 && m.AccessFlags&f.Modifiers != f.Modifiers {
		return false
	}
	return true
}
