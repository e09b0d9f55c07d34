package annotations

// Set is the immutable record collection built from one parse. A new parse
// replaces the whole set.
type Set struct {
	records []Record
	byID    map[ID]int
	maxPage int
}

// NewSet indexes records by id. When ids repeat, the first record wins the
// lookup while every record stays listed.
func NewSet(records []Record) Set {
	s := Set{
		records: append([]Record(nil), records...),
		byID:    make(map[ID]int, len(records)),
	}
	for idx, rec := range s.records {
		if _, ok := s.byID[rec.ID]; !ok {
			s.byID[rec.ID] = idx
		}
		if rec.Page > s.maxPage {
			s.maxPage = rec.Page
		}
	}
	return s
}

// Len returns the number of records.
func (s Set) Len() int {
	return len(s.records)
}

// MaxPage returns the highest page number referenced by any record.
func (s Set) MaxPage() int {
	return s.maxPage
}

// OnPage filters the set down to one page, preserving file order.
func (s Set) OnPage(page int) []Record {
	out := []Record{}
	for _, rec := range s.records {
		if rec.Page == page {
			out = append(out, rec)
		}
	}
	return out
}

// Lookup finds a record by id.
func (s Set) Lookup(id ID) (Record, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return Record{}, false
	}
	return s.records[idx], true
}
