package services

import "regexp"

var repeatedSlashes = regexp.MustCompile(`([^:])/{2,}`)

// NormalizeImageURL collapses runs of "/" into one, except directly after a
// ":" so scheme separators like "https://" survive. Applying it twice is a no-op.
func NormalizeImageURL(raw string) string {
	return repeatedSlashes.ReplaceAllString(raw, "$1/")
}

// NormalizeImageURLs returns a new slice with every URL normalized. nil stays nil.
func NormalizeImageURLs(urls []string) []string {
	if urls == nil {
		return nil
	}
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = NormalizeImageURL(u)
	}
	return out
}
