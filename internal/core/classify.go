package core

// Classification is the outcome of scoring one mapped table.
type Classification struct {
	Kind   EntityKind
	Score  int
	Scores map[EntityKind]int
}

// Classify picks the entity kind whose signature fields are most present in
// fields. Ties go to the higher-priority kind; a best score of zero is
// KindUnknown.
func Classify(fields []string) Classification {
	present := make(map[string]bool, len(fields))
	for _, f := range fields {
		present[f] = true
	}

	result := Classification{Kind: KindUnknown, Scores: make(map[EntityKind]int)}
	// All is ordered by priority, so strict > keeps the tie-break.
	for _, def := range All() {
		score := 0
		for _, sig := range def.Signature {
			if present[sig] {
				score++
			}
		}
		result.Scores[def.Kind] = score
		if score > result.Score {
			result.Kind, result.Score = def.Kind, score
		}
	}
	return result
}
