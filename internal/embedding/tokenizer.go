package embedding

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs, used when no vocabulary
// file is configured.
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	words := strings.Fields(text)
	ids := make([]int64, 0, len(words))
	for _, w := range words {
		ids = append(ids, int64(HashString(w)%30000))
	}
	return frame(ids, 101, 102, 0, maxTokens)
}

// WordPieceTokenizer implements greedy longest-match WordPiece over a vocab.txt file, the format
// shipped with BERT and MPNet sentence-transformer exports.
type WordPieceTokenizer struct {
	vocab     map[string]int64
	cls, sep  int64
	pad, unk  int64
	lowercase bool
}

const maxWordRunes = 100

// LoadWordPieceTokenizer reads a vocabulary with one token per line; the line number is the id.
// Special tokens are detected in BERT ([CLS]) or RoBERTa/MPNet (<s>) style.
func LoadWordPieceTokenizer(path string) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	var id int64
	for sc.Scan() {
		tok := strings.TrimRight(sc.Text(), "\r")
		if _, dup := vocab[tok]; !dup {
			vocab[tok] = id
		}
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}

	t := &WordPieceTokenizer{vocab: vocab, lowercase: true}
	for _, style := range [][4]string{{"[CLS]", "[SEP]", "[PAD]", "[UNK]"}, {"<s>", "</s>", "<pad>", "<unk>"}} {
		cls, ok1 := vocab[style[0]]
		sep, ok2 := vocab[style[1]]
		pad, ok3 := vocab[style[2]]
		unk, ok4 := vocab[style[3]]
		if ok1 && ok2 && ok3 && ok4 {
			t.cls, t.sep, t.pad, t.unk = cls, sep, pad, unk
			return t, nil
		}
	}
	return nil, fmt.Errorf("vocabulary %s has no recognizable special tokens", path)
}

// Tokenize lowercases, splits on whitespace and punctuation, and maps each word to WordPiece ids.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if t.lowercase {
		text = strings.ToLower(text)
	}
	var ids []int64
	for _, word := range splitPunct(text) {
		ids = append(ids, t.wordPiece(word)...)
		if len(ids) >= maxTokens {
			break
		}
	}
	return frame(ids, t.cls, t.sep, t.pad, maxTokens)
}

func (t *WordPieceTokenizer) wordPiece(word string) []int64 {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []int64{t.unk}
	}
	var out []int64
	for start := 0; start < len(runes); {
		end := len(runes)
		found := int64(-1)
		for ; end > start; end-- {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := t.vocab[piece]; ok {
				found = id
				break
			}
		}
		if found < 0 {
			return []int64{t.unk}
		}
		out = append(out, found)
		start = end
	}
	return out
}

// splitPunct splits on whitespace and makes every punctuation rune its own word.
func splitPunct(text string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

// frame wraps ids in cls/sep, truncates to maxTokens and pads with pad.
func frame(ids []int64, cls, sep, pad int64, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = 256
	}
	if len(ids) > maxTokens-2 {
		ids = ids[:maxTokens-2]
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)
	for i := range inputIDs {
		inputIDs[i] = pad
	}
	inputIDs[0], attentionMask[0] = cls, 1
	for i, id := range ids {
		inputIDs[i+1], attentionMask[i+1] = id, 1
	}
	inputIDs[len(ids)+1], attentionMask[len(ids)+1] = sep, 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// HashString returns a deterministic non-negative hash of s.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}

// TruncateText keeps the first maxWords whitespace-separated words of text.
// A non-positive maxWords returns text unchanged.
func TruncateText(text string, maxWords int) string {
	if maxWords <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ")
}
