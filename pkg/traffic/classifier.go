package traffic

import "sort"

// TargetCount is a target with its packets summed over one category.
type TargetCount struct {
	Target  string `json:"target"`
	Packets int64  `json:"packets"`
}

// orderedSet keeps first-insertion order, which drives every tie-break.
type orderedSet struct {
	order []string
	index map[string]int
}

func newOrderedSet() *orderedSet {
	return &orderedSet{index: make(map[string]int)}
}

func (s *orderedSet) add(v string) int {
	if i, ok := s.index[v]; ok {
		return i
	}
	s.index[v] = len(s.order)
	s.order = append(s.order, v)
	return len(s.order) - 1
}

func (s *orderedSet) has(v string) bool {
	_, ok := s.index[v]
	return ok
}

func (s *orderedSet) len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Classification is the classifier output: per-source connectivity and
// per-category target aggregates. It is read-only once built.
type Classification struct {
	sources *orderedSet
	conn    map[string]map[Category]*orderedSet
	targets map[Category]*orderedSet
	packets map[Category][]int64 // parallel to targets[c].order
	records int
	skipped int
}

// Classify groups records by source and by category. Records with a category
// outside the taxonomy are skipped, not rejected.
func Classify(records []Record) *Classification {
	c := &Classification{
		sources: newOrderedSet(),
		conn:    make(map[string]map[Category]*orderedSet),
		targets: make(map[Category]*orderedSet, len(Categories)),
		packets: make(map[Category][]int64, len(Categories)),
	}
	for _, cat := range Categories {
		c.targets[cat] = newOrderedSet()
	}

	for _, r := range records {
		if !r.Category.Valid() {
			c.skipped++
			continue
		}
		c.records++

		c.sources.add(r.Source)
		byCat, ok := c.conn[r.Source]
		if !ok {
			byCat = make(map[Category]*orderedSet)
			c.conn[r.Source] = byCat
		}
		set, ok := byCat[r.Category]
		if !ok {
			set = newOrderedSet()
			byCat[r.Category] = set
		}
		set.add(r.Target)

		idx := c.targets[r.Category].add(r.Target)
		if idx == len(c.packets[r.Category]) {
			c.packets[r.Category] = append(c.packets[r.Category], 0)
		}
		c.packets[r.Category][idx] += r.Packets
	}
	return c
}

// Sources returns unique sources in first-appearance order.
func (c *Classification) Sources() []string {
	return append([]string(nil), c.sources.order...)
}

// SourceIndex returns the first-appearance rank of a source.
func (c *Classification) SourceIndex(source string) (int, bool) {
	i, ok := c.sources.index[source]
	return i, ok
}

// Targets returns the targets a source reached within a category, in the
// order they were first observed.
func (c *Classification) Targets(source string, cat Category) []string {
	set := c.conn[source][cat]
	if set == nil {
		return nil
	}
	return append([]string(nil), set.order...)
}

// FullTargets returns every target observed in a category.
func (c *Classification) FullTargets(cat Category) []string {
	set := c.targets[cat]
	if set == nil {
		return nil
	}
	return append([]string(nil), set.order...)
}

// Aggregates returns each target of a category with its summed packets, in
// first-seen order.
func (c *Classification) Aggregates(cat Category) []TargetCount {
	set := c.targets[cat]
	if set == nil {
		return nil
	}
	out := make([]TargetCount, len(set.order))
	for i, t := range set.order {
		out[i] = TargetCount{Target: t, Packets: c.packets[cat][i]}
	}
	return out
}

// TopTargets returns up to k targets of a category ordered by summed packets,
// highest first. Ties keep first-seen order. Targets without packets are not
// ranked.
func (c *Classification) TopTargets(cat Category, k int) []TargetCount {
	ranked := make([]TargetCount, 0)
	for _, tc := range c.Aggregates(cat) {
		if tc.Packets > 0 {
			ranked = append(ranked, tc)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Packets > ranked[j].Packets
	})
	if k >= 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// Covers reports the full-coverage condition: the source's target set for
// the category equals the category's full target set.
func (c *Classification) Covers(source string, cat Category) bool {
	observed := c.conn[source][cat]
	full := c.targets[cat]
	if observed.len() == 0 || observed.len() != full.len() {
		return false
	}
	for _, t := range full.order {
		if !observed.has(t) {
			return false
		}
	}
	return true
}

// Records is the number of records that were classified.
func (c *Classification) Records() int { return c.records }

// Skipped is the number of records dropped for an unknown category.
func (c *Classification) Skipped() int { return c.skipped }
