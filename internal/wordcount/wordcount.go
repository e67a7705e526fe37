// Package wordcount centralizes whole-word occurrence counting so that
// no analyzer reinvents \bword\b matching. DeadCode and
// UnusedImports both rely on this to avoid substring false positives
// such as "user" matching inside "username".
package wordcount

import (
	"regexp"
	"sync"
)

var (
	mu    sync.Mutex
	cache = map[string]*regexp.Regexp{}
)

func compiled(word string) *regexp.Regexp {
	mu.Lock()
	defer mu.Unlock()
	if re, ok := cache[word]; ok {
		return re
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	cache[word] = re
	return re
}

// Count returns the number of whole-word occurrences of word in src.
func Count(src, word string) int {
	if word == "" {
		return 0
	}
	return len(compiled(word).FindAllStringIndex(src, -1))
}
