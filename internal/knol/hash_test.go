package knol

import (
	"testing"

	"github.com/conorfennell/revisa/internal/domain"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name string
		card domain.Card
		want string
	}{
		{
			name: "trims, lowercases and converts line endings",
			card: domain.Card{
				Question: "  What is HTMX? \r\n",
				Answer:   "A library for AJAX.",
				Context:  "Web Development",
			},
			want: "what is htmx?\na library for ajax.\nweb development",
		},
		{
			name: "collapses inner whitespace per line",
			card: domain.Card{
				Question: "What\tis   Go?",
				Answer:   "A  compiled\r\nlanguage ",
			},
			want: "what is go?\na compiled\nlanguage\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.card); got != tc.want {
				t.Errorf("Normalize() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHash(t *testing.T) {
	t.Run("generates correct hash", func(t *testing.T) {
		card := domain.Card{Question: "Q", Answer: "A", Context: "C"}
		// sha256("q\na\nc")
		expectedHash := "eb2456c1ee4f36305069dd0f63a30e92d5443129f5e8fd9a5ec490fbc4d4d8a2"
		if hash := Hash(card); hash != expectedHash {
			t.Errorf("Expected hash '%s', but got '%s'", expectedHash, hash)
		}
	})

	t.Run("empty context still separated", func(t *testing.T) {
		card := domain.Card{Question: "What is  Go?", Answer: "A language."}
		// sha256("what is go?\na language.\n")
		expectedHash := "d76208bba58cfed9cdd92270e6f0179cdf63ae175296711ab751de5069b9eceb"
		if hash := Hash(card); hash != expectedHash {
			t.Errorf("Expected hash '%s', but got '%s'", expectedHash, hash)
		}
	})

	t.Run("normalization produces same hash", func(t *testing.T) {
		card1 := domain.Card{Question: "  what is go? ", Answer: "A programming language."}
		card2 := domain.Card{Question: "What Is Go?", Answer: "A   programming language."}
		if Hash(card1) != Hash(card2) {
			t.Error("Expected hashes to be the same after normalization, but they were different.")
		}
	})

	t.Run("suspension does not change identity", func(t *testing.T) {
		card1 := domain.Card{Question: "Test"}
		card2 := domain.Card{Question: "Test", Suspended: true}
		if Hash(card1) != Hash(card2) {
			t.Error("Expected suspended flag to be ignored by the hash")
		}
	})

	t.Run("different cards have different hashes", func(t *testing.T) {
		card1 := domain.Card{Question: "Card 1"}
		card2 := domain.Card{Question: "Card 2"}
		if Hash(card1) == Hash(card2) {
			t.Error("Expected hashes for different cards to be different")
		}
	})
}
