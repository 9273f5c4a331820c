package reconcile

// Pair is a reference aggregate and the system aggregate sharing its NIF.
type Pair struct {
	Excel     ExcelRecord
	Extracted ExtractedRecord
}

// Buckets is the matcher's partition of both inputs.
type Buckets struct {
	Pairs   []Pair
	Missing []ExcelRecord
	Extra   []ExtractedRecord
}

type mergeable[R any] interface {
	Record
	merged(R) R
}

// collapse merges records sharing a NIF, keeping first-appearance order.
func collapse[R mergeable[R]](records []R) []R {
	index := make(map[string]int, len(records))
	out := make([]R, 0, len(records))
	for _, r := range records {
		nif := r.Common().NIF
		if i, ok := index[nif]; ok {
			out[i] = out[i].merged(r)
			continue
		}
		index[nif] = len(out)
		out = append(out, r)
	}
	return out
}

// Match joins reference and system records by NIF. Records sharing a NIF
// on the same side are summed first, so the join is one-to-one and compares
// totals per taxpayer. Pairs and Missing follow the order in which NIFs
// first appear in excel; Extra follows extracted.
func Match(excel []ExcelRecord, extracted []ExtractedRecord) Buckets {
	refs := collapse(excel)
	sys := collapse(extracted)

	byNIF := make(map[string]int, len(sys))
	for i, r := range sys {
		byNIF[r.NIF] = i
	}

	b := Buckets{
		Pairs:   []Pair{},
		Missing: []ExcelRecord{},
		Extra:   []ExtractedRecord{},
	}
	used := make([]bool, len(sys))
	for _, ref := range refs {
		i, ok := byNIF[ref.NIF]
		if !ok {
			b.Missing = append(b.Missing, ref)
			continue
		}
		used[i] = true
		b.Pairs = append(b.Pairs, Pair{Excel: ref, Extracted: sys[i]})
	}
	for i, r := range sys {
		if !used[i] {
			b.Extra = append(b.Extra, r)
		}
	}
	return b
}
