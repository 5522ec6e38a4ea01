// Package lru provides a small generic least-recently-used cache.
//
//	patterns := lru.New[string, *regexp.Regexp](256)
//	if re, ok := patterns.Get(p); ok {
//		return re.MatchString(v)
//	}
package lru
