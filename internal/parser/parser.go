package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/revisa/internal/domain"
)

const (
	separator        = "---"
	suspendDirective = "!suspend"
)

type field int

const (
	fieldNone field = iota
	fieldQuestion
	fieldAnswer
	fieldContext
)

var prefixes = []struct {
	prefix string
	field  field
}{
	{"Q:", fieldQuestion},
	{"A:", fieldAnswer},
	{"C:", fieldContext},
}

// ParseFile reads a deck file and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse extracts cards from a deck. A card starts at a "Q:" line and may
// carry "A:" and "C:" blocks, each continuing over following lines until the
// next prefix. "---" ends a card; text outside a card is ignored.
func Parse(r io.Reader) ([]domain.Card, error) {
	p := &deckParser{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.line(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	p.finishCard()
	return p.cards, nil
}

type deckParser struct {
	cards   []domain.Card
	current domain.Card
	active  field
	block   []string
}

func (p *deckParser) line(line string) {
	if line == separator {
		p.finishCard()
		return
	}
	if strings.TrimSpace(line) == suspendDirective && p.active != fieldNone {
		p.current.Suspended = true
		return
	}

	for _, pf := range prefixes {
		rest, ok := strings.CutPrefix(line, pf.prefix)
		if !ok {
			continue
		}
		if pf.field == fieldQuestion && p.active != fieldNone {
			p.finishCard()
		}
		p.flushBlock()
		p.active = pf.field
		p.block = append(p.block, strings.TrimPrefix(rest, " "))
		return
	}

	if p.active != fieldNone {
		p.block = append(p.block, line)
	}
}

// flushBlock stores the lines gathered so far into the active field.
func (p *deckParser) flushBlock() {
	if len(p.block) == 0 {
		return
	}
	content := strings.TrimRight(strings.Join(p.block, "\n"), "\n")
	switch p.active {
	case fieldQuestion:
		p.current.Question = content
	case fieldAnswer:
		p.current.Answer = content
	case fieldContext:
		p.current.Context = content
	}
	p.block = nil
}

func (p *deckParser) finishCard() {
	p.flushBlock()
	if p.current.Question != "" {
		p.cards = append(p.cards, p.current)
	}
	p.current = domain.Card{}
	p.active = fieldNone
}
