package store

import (
	"sort"
	"time"
)

// OrderPage applies a subscription query to a full collection read. Documents
// without the order field are left out, the way the provider's ordered
// queries behave; present but unreadable values sort after readable ones.
func OrderPage(docs []Document, q Query) []Document {
	if q.OrderBy == "" {
		out := append([]Document(nil), docs...)
		if q.Limit > 0 && len(out) > q.Limit {
			out = out[:q.Limit]
		}
		return out
	}

	type keyed struct {
		doc Document
		at  time.Time
		ok  bool
	}
	rows := make([]keyed, 0, len(docs))
	for _, d := range docs {
		v := DateField(d, q.OrderBy)
		if !v.Present() {
			continue
		}
		at, ok := v.Resolve(time.UTC)
		rows = append(rows, keyed{doc: d, at: at, ok: ok})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ok != b.ok {
			return a.ok
		}
		if q.Desc {
			return a.at.After(b.at)
		}
		return a.at.Before(b.at)
	})
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	out := make([]Document, len(rows))
	for i, r := range rows {
		out[i] = r.doc
	}
	return out
}
