package antibodies

import "sort"

// Sorted returns a copy of the table ordered by (cycle, channel) ascending.
// Acquisition software emits rows in arbitrary order, but the index built
// from the table must fold rows deterministically, so sorting is the first
// step of every reconciliation run.
//
// Every channel_id must parse; the first malformed value aborts with a
// ChannelIDError rather than producing a silently misordered table.
func (t *Table) Sorted() (*Table, error) {
	if t == nil {
		return nil, nil
	}

	type keyed struct {
		rec     Record
		cycle   int
		channel int
	}
	keys := make([]keyed, 0, len(t.records))
	for _, rec := range t.records {
		cycle, channel, err := rec.CycleChannel()
		if err != nil {
			return nil, err
		}
		keys = append(keys, keyed{rec: rec, cycle: cycle, channel: channel})
	}

	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].cycle != keys[j].cycle {
			return keys[i].cycle < keys[j].cycle
		}
		return keys[i].channel < keys[j].channel
	})

	sorted := &Table{path: t.path, records: make([]Record, len(keys))}
	for i, k := range keys {
		sorted.records[i] = k.rec
	}
	return sorted, nil
}
