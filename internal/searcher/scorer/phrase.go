package scorer

// postingsFunc returns url → positions for a term in one field.
type postingsFunc func(term string) map[string][]int

// exactMatch reports whether tokens occur in order at consecutive positions
// p, p+1, ... of the field for url. A single token matches when it occurs
// anywhere in the field.
func exactMatch(postings postingsFunc, tokens []string, url string) bool {
	if len(tokens) == 0 {
		return false
	}
	first := postings(tokens[0])[url]
	if len(first) == 0 {
		return false
	}
	if len(tokens) == 1 {
		return true
	}

	rest := make([]map[int]struct{}, len(tokens)-1)
	for i, token := range tokens[1:] {
		positions := postings(token)[url]
		if len(positions) == 0 {
			return false
		}
		set := make(map[int]struct{}, len(positions))
		for _, p := range positions {
			set[p] = struct{}{}
		}
		rest[i] = set
	}

	for _, start := range first {
		matched := true
		for i, set := range rest {
			if _, ok := set[start+i+1]; !ok {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}
