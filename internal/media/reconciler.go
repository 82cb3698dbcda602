// Package media converts between the stored shape of a session's videos (a
// primary URL plus ordered child rows) and the single ordered list used
// everywhere else.
package media

import "strings"

// Compose builds the ordered video list from the primary URL and the child
// URLs in their stored order. Blank entries are dropped and duplicates collapse
// to their first occurrence. A blank primary is omitted.
func Compose(primary string, children []string) []string {
	out := make([]string, 0, len(children)+1)
	seen := make(map[string]struct{}, len(children)+1)
	add := func(u string) {
		if strings.TrimSpace(u) == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	add(primary)
	for _, u := range children {
		add(u)
	}
	return out
}

// Decompose splits an ordered list into the primary URL and the child URLs.
// Callers ensure the list is non-empty; an empty list yields "" and nil.
func Decompose(urls []string) (string, []string) {
	if len(urls) == 0 {
		return "", nil
	}
	children := make([]string, len(urls)-1)
	copy(children, urls[1:])
	return urls[0], children
}

// Normalize removes blanks and duplicates keeping first occurrences.
func Normalize(urls []string) []string {
	return Compose("", urls)
}
