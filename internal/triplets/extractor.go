// Package triplets turns REBEL-style tagged text into (head, relation, tail)
// facts and provides the backends that produce such text.
package triplets

import (
	"strings"
)

// Control tokens of the linearized triplet format.
const (
	TokenTriplet = "<triplet>"
	TokenSubj    = "<subj>"
	TokenObj     = "<obj>"
)

// Tokens removed before parsing.
var noiseTokens = []string{"<s>", "</s>", "<pad>"}

// Triplet is a relation between two entities.
type Triplet struct {
	Head     string `json:"head"`
	Relation string `json:"type"`
	Tail     string `json:"tail"`
}

type state int

const (
	stateIdle state = iota
	stateHead
	stateTail
	stateRelation
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateHead:
		return "head"
	case stateTail:
		return "tail-target"
	case stateRelation:
		return "relation"
	}
	return "unknown"
}

type parser struct {
	state    state
	head     strings.Builder
	relation strings.Builder
	tail     strings.Builder
	out      []Triplet
}

func appendWord(b *strings.Builder, word string) {
	b.WriteByte(' ')
	b.WriteString(word)
}

func (p *parser) flush() {
	p.out = append(p.out, Triplet{
		Head:     strings.TrimSpace(p.head.String()),
		Relation: strings.TrimSpace(p.relation.String()),
		Tail:     strings.TrimSpace(p.tail.String()),
	})
}

func (p *parser) token(tok string) {
	switch tok {
	case TokenTriplet:
		if p.relation.Len() > 0 {
			p.flush()
			p.relation.Reset()
		}
		p.head.Reset()
		p.state = stateHead
	case TokenSubj:
		if p.relation.Len() > 0 {
			p.flush()
		}
		p.tail.Reset()
		p.state = stateTail
	case TokenObj:
		p.relation.Reset()
		p.state = stateRelation
	default:
		switch p.state {
		case stateHead:
			appendWord(&p.head, tok)
		case stateTail:
			appendWord(&p.tail, tok)
		case stateRelation:
			appendWord(&p.relation, tok)
		}
	}
}

// Extract parses tagged text into triplets in order of appearance.
//
// The stream has the form
//
//	<triplet> head <subj> tail <obj> relation [<subj> tail <obj> relation ...]
//
// where each further <subj> starts another fact about the same head.
// Malformed streams never fail: buffers that are never completed are
// dropped.
func Extract(tagged string) []Triplet {
	for _, t := range noiseTokens {
		tagged = strings.ReplaceAll(tagged, t, "")
	}

	p := &parser{}
	for _, tok := range strings.Fields(tagged) {
		p.token(tok)
	}
	if strings.TrimSpace(p.head.String()) != "" &&
		strings.TrimSpace(p.relation.String()) != "" &&
		strings.TrimSpace(p.tail.String()) != "" {
		p.flush()
	}
	return p.out
}
