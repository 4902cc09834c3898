package trigger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPhrase is returned when a response is requested for a phrase
// that is not part of the table.
var ErrUnknownPhrase = errors.New("unknown trigger phrase")

// Trigger pairs a phrase with the responses the bot may post for it.
type Trigger struct {
	Phrase    string   `yaml:"phrase"`
	Responses []string `yaml:"responses"`
}

// Table is an ordered set of triggers. Declaration order decides which
// phrase wins when a comment contains more than one.
type Table struct {
	triggers []Trigger
	index    map[string]int
}

// NewTable validates triggers and builds a table preserving their order.
func NewTable(triggers []Trigger) (*Table, error) {
	if len(triggers) == 0 {
		return nil, fmt.Errorf("trigger table is empty")
	}

	t := &Table{
		triggers: make([]Trigger, 0, len(triggers)),
		index:    make(map[string]int, len(triggers)),
	}
	for i, tr := range triggers {
		if strings.TrimSpace(tr.Phrase) == "" {
			return nil, fmt.Errorf("trigger %d: phrase is empty", i)
		}
		if len(tr.Responses) == 0 {
			return nil, fmt.Errorf("trigger %q: at least one response is required", tr.Phrase)
		}
		key := strings.ToLower(tr.Phrase)
		if _, dup := t.index[key]; dup {
			return nil, fmt.Errorf("trigger %q: duplicate phrase", tr.Phrase)
		}
		responses := make([]string, len(tr.Responses))
		copy(responses, tr.Responses)

		t.index[key] = len(t.triggers)
		t.triggers = append(t.triggers, Trigger{Phrase: tr.Phrase, Responses: responses})
	}
	return t, nil
}

// DefaultTable returns the phrases and responses the bot ships with.
func DefaultTable() *Table {
	t, err := NewTable([]Trigger{
		{
			Phrase: "jankie",
			Responses: []string{
				"WE'RE VIBING!",
				"J-A-N! K-I-E! JANKIE! JANKIE! LET'S PARTY!",
				"Ice cream, pizza, so much fun!",
				"I love having fun! Do you like having F-U-N fun?",
				"I am sooooo excited!",
			},
		},
		{
			Phrase: "hey everyone!",
			Responses: []string{
				"Hey, I'm Jankie! Let's have some fun!",
				"It's so fun to have friends!",
				"Hi there! I am sooooooooo excited to meet you!",
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// Triggers returns a copy of the table in declaration order.
func (t *Table) Triggers() []Trigger {
	out := make([]Trigger, len(t.triggers))
	copy(out, t.triggers)
	return out
}

// Responses returns the responses configured for phrase.
func (t *Table) Responses(phrase string) ([]string, bool) {
	i, ok := t.index[strings.ToLower(phrase)]
	if !ok {
		return nil, false
	}
	return t.triggers[i].Responses, true
}

// Len returns the number of phrases in the table.
func (t *Table) Len() int {
	return len(t.triggers)
}
