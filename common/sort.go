package common

import "sort"

func sortHashesLarge(hs []ChangeHash) {
	sort.Slice(hs, func(i, j int) bool {
		return hs[i].Compare(hs[j]) < 0
	})
}
