// Package chunker splits text into ordered chunks that fit a token ceiling.
package chunker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/youyaku/internal/models"
	"github.com/hyperjump/youyaku/internal/tokenizer"
)

const (
	paragraphSep = "\n\n"
	sentenceSep  = " "
)

// Chunker packs paragraphs, then sentences, into chunks of at most maxTokens.
type Chunker struct {
	counter tokenizer.Counter
}

// NewChunker creates a chunker that measures text with counter.
func NewChunker(counter tokenizer.Counter) *Chunker {
	return &Chunker{counter: counter}
}

// Split returns text as ordered chunks whose token count is at most maxTokens.
// Paragraph boundaries are preferred, then sentence boundaries, then runs of
// whole words. Every word reaches some chunk; only a single word that alone
// exceeds maxTokens is cut. Empty input yields no chunks.
func (c *Chunker) Split(ctx context.Context, text string, maxTokens int) ([]models.Chunk, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", maxTokens)
	}
	b := &packer{ctx: ctx, counter: c.counter, max: maxTokens}
	for _, para := range Paragraphs(text) {
		n, err := b.count(para)
		if err != nil {
			return nil, err
		}
		if n <= maxTokens {
			if err := b.add(para, n, paragraphSep, false); err != nil {
				return nil, err
			}
			continue
		}
		for i, sentence := range Sentences(para) {
			sep := sentenceSep
			if i == 0 {
				sep = paragraphSep
			}
			n, err := b.count(sentence)
			if err != nil {
				return nil, err
			}
			if n <= maxTokens {
				if err := b.add(sentence, n, sep, false); err != nil {
					return nil, err
				}
				continue
			}
			windows, err := c.wordWindows(ctx, sentence, maxTokens)
			if err != nil {
				return nil, err
			}
			for j, w := range windows {
				wsep := sentenceSep
				if j == 0 {
					wsep = sep
				}
				if err := b.add(w.text, w.tokens, wsep, w.truncated); err != nil {
					return nil, err
				}
			}
		}
	}
	b.flush()
	return b.chunks, nil
}

// window is a run of consecutive words that fits the ceiling.
type window struct {
	text      string
	tokens    int
	truncated bool
}

// wordWindows splits s into consecutive runs of whole words, each as long as
// maxTokens allows. A word that alone exceeds maxTokens is cut and its window
// marked truncated.
func (c *Chunker) wordWindows(ctx context.Context, s string, maxTokens int) ([]window, error) {
	words := strings.Fields(s)
	var out []window
	for i := 0; i < len(words); {
		rest := words[i:]
		// every word costs at least one token
		if len(rest) > maxTokens {
			rest = rest[:maxTokens]
		}
		var countErr error
		k := sort.Search(len(rest), func(j int) bool {
			if countErr != nil {
				return true
			}
			n, err := tokenizer.Count(ctx, c.counter, strings.Join(rest[:j+1], " "))
			if err != nil {
				countErr = err
				return true
			}
			return n > maxTokens
		})
		if countErr != nil {
			return nil, countErr
		}
		if k == 0 {
			cut, n, err := c.truncate(ctx, rest[0], maxTokens)
			if err != nil {
				return nil, err
			}
			if cut != "" {
				out = append(out, window{text: cut, tokens: n, truncated: true})
			}
			i++
			continue
		}
		text := strings.Join(rest[:k], " ")
		n, err := tokenizer.Count(ctx, c.counter, text)
		if err != nil {
			return nil, err
		}
		out = append(out, window{text: text, tokens: n})
		i += k
	}
	return out, nil
}

// truncate keeps the longest word prefix of s that fits maxTokens. If even the
// first word does not fit, that word is cut rune by rune.
func (c *Chunker) truncate(ctx context.Context, s string, maxTokens int) (string, int, error) {
	words := strings.Fields(s)
	var countErr error
	fits := func(text string) bool {
		if countErr != nil {
			return false
		}
		n, err := tokenizer.Count(ctx, c.counter, text)
		if err != nil {
			countErr = err
			return false
		}
		return n <= maxTokens
	}
	k := sort.Search(len(words), func(i int) bool {
		return !fits(strings.Join(words[:i+1], " "))
	})
	if countErr != nil {
		return "", 0, countErr
	}
	if k > 0 {
		out := strings.Join(words[:k], " ")
		n, err := tokenizer.Count(ctx, c.counter, out)
		return out, n, err
	}
	if len(words) == 0 {
		return "", 0, nil
	}
	runes := []rune(words[0])
	k = sort.Search(len(runes), func(i int) bool {
		return !fits(string(runes[:i+1]))
	})
	if countErr != nil {
		return "", 0, countErr
	}
	if k == 0 {
		return "", 0, nil
	}
	out := string(runes[:k])
	n, err := tokenizer.Count(ctx, c.counter, out)
	return out, n, err
}

// packer accumulates units into the current chunk until the next one would overflow.
type packer struct {
	ctx       context.Context
	counter   tokenizer.Counter
	max       int
	chunks    []models.Chunk
	cur       string
	tokens    int
	truncated bool
}

func (b *packer) count(text string) (int, error) {
	return tokenizer.Count(b.ctx, b.counter, text)
}

// add appends unit (already known to fit on its own) to the current chunk,
// closing the chunk first when the combined text would exceed the ceiling.
func (b *packer) add(unit string, unitTokens int, sep string, truncated bool) error {
	if b.cur == "" {
		b.cur, b.tokens, b.truncated = unit, unitTokens, truncated
		return nil
	}
	candidate := b.cur + sep + unit
	n, err := b.count(candidate)
	if err != nil {
		return err
	}
	if n <= b.max {
		b.cur, b.tokens = candidate, n
		b.truncated = b.truncated || truncated
		return nil
	}
	b.flush()
	b.cur, b.tokens, b.truncated = unit, unitTokens, truncated
	return nil
}

func (b *packer) flush() {
	if b.cur == "" {
		return
	}
	b.chunks = append(b.chunks, models.Chunk{
		Index:     len(b.chunks),
		Text:      b.cur,
		Tokens:    b.tokens,
		Truncated: b.truncated,
	})
	b.cur, b.tokens, b.truncated = "", 0, false
}

// Halve splits text, known to hold tokens tokens, into at most two pieces of
// about half that size. Paragraph and sentence boundaries are used when they
// allow it, runs of words otherwise. No words are dropped.
func (c *Chunker) Halve(ctx context.Context, text string, tokens int) ([]models.Chunk, error) {
	half := (tokens + 1) / 2
	if half < 1 {
		half = 1
	}
	pieces, err := c.Split(ctx, text, half)
	if err != nil {
		return nil, err
	}
	if len(pieces) <= 2 {
		return pieces, nil
	}
	cut, acc := 1, pieces[0].Tokens
	for cut < len(pieces)-1 && acc+pieces[cut].Tokens <= half {
		acc += pieces[cut].Tokens
		cut++
	}
	out := make([]models.Chunk, 0, 2)
	for i, group := range [][]models.Chunk{pieces[:cut], pieces[cut:]} {
		parts := make([]string, len(group))
		truncated := false
		for j, p := range group {
			parts[j] = p.Text
			truncated = truncated || p.Truncated
		}
		s := strings.Join(parts, paragraphSep)
		n, err := tokenizer.Count(ctx, c.counter, s)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Chunk{Index: i, Text: s, Tokens: n, Truncated: truncated})
	}
	return out, nil
}
