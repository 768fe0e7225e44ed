package core

// DedupResult is the outcome of collapsing records by natural key.
type DedupResult struct {
	Records    []CanonicalRecord // Survivors and keyless records, in first-seen order
	Duplicates int               // Records folded into a survivor
}

// Deduplicate groups records of the same kind by natural key. The record
// with the most filled fields survives, ties going to the first seen, and
// its empty fields are backfilled from the others in input order. Records
// without a natural key pass through untouched.
func Deduplicate(records []CanonicalRecord) DedupResult {
	type group struct {
		pos     int // Position of the group's slot in out
		members []CanonicalRecord
	}

	var out []CanonicalRecord
	groups := make(map[string]*group)
	var order []string

	for _, rec := range records {
		key := NaturalKey(rec)
		if key == "" {
			out = append(out, rec)
			continue
		}
		gk := string(rec.Kind) + "\x00" + key
		g, ok := groups[gk]
		if !ok {
			g = &group{pos: len(out)}
			groups[gk] = g
			order = append(order, gk)
			out = append(out, rec)
		}
		g.members = append(g.members, rec)
	}

	dups := 0
	for _, gk := range order {
		g := groups[gk]
		if len(g.members) == 1 {
			continue
		}
		dups += len(g.members) - 1
		out[g.pos] = collapse(g.members)
	}
	return DedupResult{Records: out, Duplicates: dups}
}

func collapse(members []CanonicalRecord) CanonicalRecord {
	best := 0
	for i := 1; i < len(members); i++ {
		if members[i].FilledCount() > members[best].FilledCount() {
			best = i
		}
	}

	fields := members[best].Fields.Clone()
	for i, m := range members {
		if i == best {
			continue
		}
		for k, v := range m.Fields {
			if v != "" && fields[k] == "" {
				fields[k] = v
			}
		}
	}
	return members[best].WithFields(fields)
}

// NaturalKey returns the record's natural key value, or "".
func NaturalKey(rec CanonicalRecord) string {
	def, ok := Get(rec.Kind)
	if !ok {
		return ""
	}
	return def.Key(rec.Fields)
}

// MergeFields overlays the non-empty incoming fields on existing. Incoming
// wins on conflict except for protected fields, which keep an existing
// non-empty value.
func MergeFields(existing, incoming Fields, protected ...string) Fields {
	out := existing.Clone()
	for k, v := range incoming {
		if v == "" {
			continue
		}
		out[k] = v
	}
	for _, p := range protected {
		if v := existing[p]; v != "" {
			out[p] = v
		}
	}
	return out
}
