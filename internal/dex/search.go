package dex

// Searcher finds classes and methods of an extracted snapshot. Results come
// back in table order, so repeated searches over the same table are stable.
type Searcher struct {
	table *ClassTable
}

// NewSearcher creates a searcher over the given class table.
func NewSearcher(table *ClassTable) *Searcher {
	return &Searcher{table: table}
}

// FindClass returns the first class matching the filter, or nil.
func (s *Searcher) FindClass(filter *ClassFilter) *Class {
	for _, c := range s.table.All() {
		if filter.Matches(c) {
			return c
		}
	}
	return nil
}

// FindClasses returns every class matching the filter, up to limit.
// A limit of 0 means unlimited.
func (s *Searcher) FindClasses(filter *ClassFilter, limit int) []*Class {
	var out []*Class
	for _, c := range s.table.All() {
		if filter.Matches(c) {
			out = append(out, c)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// FindMethod returns the first method matching both filters, or nil.
func (s *Searcher) FindMethod(classFilter *ClassFilter, methodFilter *MethodFilter) *Method {
	for _, c := range s.table.All() {
		if !classFilter.Matches(c) {
			continue
		}
		for i := range c.Methods {
			if methodFilter.Matches(&c.Methods[i]) {
				return &c.Methods[i]
			}
		}
	}
	return nil
}

// FindMethods returns every method matching both filters, up to limit.
// A limit of 0 means unlimited.
func (s *Searcher) FindMethods(classFilter *ClassFilter, methodFilter *MethodFilter, limit int) []*Method {
	var out []*Method
	for _, c := range s.table.All() {
		if !classFilter.Matches(c) {
			continue
		}
		for i := range c.Methods {
			if methodFilter.Matches(&c.Methods[i]) {
				out = append(out, &c.Methods[i])
				if limit > 0 && len(out) >= limit {
					return out
				}
			}
		}
	}
	return out
}
