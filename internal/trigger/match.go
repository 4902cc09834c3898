package trigger

import (
	"fmt"
	"hash/maphash"
	"strings"
)

// Match reports the first phrase, in declaration order, that appears in body.
// Matching is a case-insensitive substring test.
func (t *Table) Match(body string) (string, bool) {
	lower := strings.ToLower(body)
	for _, tr := range t.triggers {
		if strings.Contains(lower, strings.ToLower(tr.Phrase)) {
			return tr.Phrase, true
		}
	}
	return "", false
}

// ChooseResponse picks responses[seed % len(responses)] for phrase.
func (t *Table) ChooseResponse(phrase string, seed uint64) (string, error) {
	responses, ok := t.Responses(phrase)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPhrase, phrase)
	}
	return responses[seed%uint64(len(responses))], nil
}

// processSeed is chosen once per process. Seed values are therefore stable
// for the lifetime of the process and differ between restarts.
var processSeed = maphash.MakeSeed()

// Seed hashes an identifier into a selection seed.
func Seed(id string) uint64 {
	return maphash.String(processSeed, id)
}
