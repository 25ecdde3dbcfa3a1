package strategy

import "PairSentinel/internal/model"

const dayLayout = "2006-01-02"

// AlignByDate keeps only the points whose calendar date appears in both series,
// preserving the order of s1.
func AlignByDate(s1, s2 model.PriceSeries) (model.PriceSeries, model.PriceSeries) {
	byDate := make(map[string]model.PricePoint, len(s2))
	for _, p := range s2 {
		byDate[p.Date.UTC().Format(dayLayout)] = p
	}

	out1 := make(model.PriceSeries, 0, min(len(s1), len(s2)))
	out2 := make(model.PriceSeries, 0, min(len(s1), len(s2)))
	for _, p := range s1 {
		if q, ok := byDate[p.Date.UTC().Format(dayLayout)]; ok {
			out1 = append(out1, p)
			out2 = append(out2, q)
		}
	}
	return out1, out2
}
