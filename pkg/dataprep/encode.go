package dataprep

import (
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// OneHot maps categorical values to indicator vectors. Categories are
// numbered in order of first appearance in the fitting data; unseen values
// encode as all zeros.
type OneHot struct {
	Categories []string

	once  sync.Once
	index map[string]int
}

// FitOneHot learns the vocabulary of data.
func FitOneHot(data []string) *OneHot {
	seen := make(map[string]struct{})
	var cats []string
	for _, v := range data {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			cats = append(cats, v)
		}
	}
	return &OneHot{Categories: cats}
}

func (o *OneHot) lookup() map[string]int {
	o.once.Do(func() {
		o.index = make(map[string]int, len(o.Categories))
		for i, c := range o.Categories {
			o.index[c] = i
		}
	})
	return o.index
}

// Width is the number of indicator columns.
func (o *OneHot) Width() int { return len(o.Categories) }

// EncodeInto writes the indicator vector of v into dst, which must have Width elements.
func (o *OneHot) EncodeInto(dst []float64, v string) {
	clear(dst)
	if i, ok := o.lookup()[v]; ok {
		dst[i] = 1
	}
}

// HashText writes token counts of s into len(dst) buckets using FNV-1a.
// Tokens are lower-cased runs of letters and digits.
func HashText(dst []float64, s string) {
	clear(dst)
	if len(dst) == 0 {
		return
	}
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		dst[h.Sum32()%uint32(len(dst))]++
	}
}
