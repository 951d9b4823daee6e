package brand

// editDistance computes the classic Levenshtein distance between two
// strings: insertions, deletions and substitutions each cost 1. Computed
// over the full strings with no early termination, so it is deterministic
// and symmetric regardless of argument order.
func editDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			ins := prev[j] + 1
			del := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min(ins, del, sub)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// similarityRatio converts an edit distance to a normalized 0-100 ratio:
// ((len(a)+len(b)) - distance) * 100 / (len(a)+len(b)), truncated.
func similarityRatio(a, b string, distance int) int {
	lensum := len([]rune(a)) + len([]rune(b))
	if lensum == 0 {
		return 100
	}
	return (lensum - distance) * 100 / lensum
}
