package pairs

import "PairSentinel/internal/model"

// Enumerate returns every unordered pair of instruments that share a sector.
// Sectors are visited in slice order and symbols in list order, so the result is
// deterministic for a fixed input. A symbol belongs to the first sector that
// lists it; later repeats are ignored.
func Enumerate(sectors []model.Sector) []model.Pair {
	var pairs []model.Pair
	placed := make(map[string]bool)
	for _, sector := range sectors {
		var symbols []string
		for _, sym := range sector.Symbols {
			if placed[sym] {
				continue
			}
			placed[sym] = true
			symbols = append(symbols, sym)
		}
		for i := 0; i < len(symbols); i++ {
			for j := i + 1; j < len(symbols); j++ {
				pairs = append(pairs, model.Pair{
					Sector:  sector.Name,
					Symbol1: symbols[i],
					Symbol2: symbols[j],
				})
			}
		}
	}
	return pairs
}
