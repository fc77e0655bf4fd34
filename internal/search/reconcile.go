package search

// Reconcile joins judgments back to the records they were made about, keeping the
// judgments' order. Judgments whose (segment, original id) matches no record are
// skipped; the number skipped is returned as dropped.
func Reconcile(judgments []Judgment, records []Record) (results []Result, dropped int) {
	results = make([]Result, 0, len(judgments))

	for _, j := range judgments {
		idx := -1
		for i := range records {
			if records[i].Segment == j.Segment && records[i].OriginalID == j.OriginalID {
				idx = i
				break
			}
		}
		if idx < 0 {
			dropped++
			continue
		}

		results = append(results, Result{
			OriginalID:      j.OriginalID,
			Segment:         j.Segment,
			RelevanceScore:  j.RelevanceScore,
			RelevanceReason: j.RelevanceReason,
			Payload:         records[idx].Payload,
		})
	}

	return results, dropped
}
