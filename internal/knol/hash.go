package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/conorfennell/revisa/internal/domain"
)

// Normalize renders the card's content in the canonical form that is hashed.
// Each field is lowercased, CRLF becomes LF, runs of spaces or tabs inside a
// line collapse to one space and surrounding whitespace is trimmed. Fields are
// joined by newlines so "question"+"answer" never hashes like "questionanswer".
func Normalize(card domain.Card) string {
	parts := []string{card.Question, card.Answer, card.Context}
	for i, part := range parts {
		parts[i] = normalizePart(part)
	}
	return strings.Join(parts, "\n")
}

func normalizePart(part string) string {
	lines := strings.Split(strings.ReplaceAll(strings.ToLower(part), "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Hash is the card's identity: the hex SHA-256 of its normalized content.
// Editing a card's wording therefore makes it a new card.
func Hash(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return hex.EncodeToString(sum[:])
}
