package dictionary

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// DefaultAlphabet is the Russian alphabet the game was written for. Words
// containing any rune outside the configured alphabet never enter the
// dictionary and are rejected at guess time.
const DefaultAlphabet = "абвгдеёжзийклмнопрстуфхцчшщъыьэюя"

const DefaultCommonLimit = 20000

var (
	ErrNoEntries   = errors.New("dictionary: no valid entries parsed")
	ErrNotInScript = errors.New("word contains runes outside the alphabet")
	ErrEmptyWord   = errors.New("empty word")
)

// Entry is one dictionary word with its frequency rank. Lower rank means
// more common; rank is the 1-based position in the source list.
type Entry struct {
	Word string
	Rank int
}

// Dictionary is an immutable frequency-ranked word index. Built once by
// Load, then shared read-only across every session; only the per-root
// derivation cache mutates after load, behind its own lock.
type Dictionary struct {
	alphabet    map[rune]bool
	commonLimit int
	excluded    map[string]bool

	entries map[string]Entry
	common  []Entry // common entries ordered by rank

	// signature index: sorted-letter signature -> words sharing it.
	// Derivability is a property of the signature, so one multiset check
	// covers every word in the bucket.
	signatures map[string][]string

	mu      sync.RWMutex
	derived map[derivedKey]*derivations
}

type derivedKey struct {
	root   string
	minLen int
	maxLen int
}

type derivations struct {
	common []string
	extra  []string
}

type Option func(*loadOptions)

type loadOptions struct {
	alphabet    string
	commonLimit int
	exclusions  string
}

// WithAlphabet overrides the accepted script.
func WithAlphabet(alphabet string) Option {
	return func(o *loadOptions) { o.alphabet = alphabet }
}

// WithCommonLimit sets the rank threshold below which a word counts as
// common and can appear in a solution set.
func WithCommonLimit(limit int) Option {
	return func(o *loadOptions) { o.commonLimit = limit }
}

// WithExclusions points at an operator-curated file of words to demote from
// the common set. Excluded words stay valid guesses but never appear in a
// solution set.
func WithExclusions(path string) Option {
	return func(o *loadOptions) { o.exclusions = path }
}

// Load reads a ranked word list, one word per line, most frequent first.
// Duplicate words keep their best rank. It fails when the file is missing
// or when not a single valid entry parses; a dictionary that cannot load is
// a configuration error the process must not start with.
func Load(path string, opts ...Option) (*Dictionary, error) {
	o := loadOptions{
		alphabet:    DefaultAlphabet,
		commonLimit: DefaultCommonLimit,
	}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary: %w", err)
	}
	defer f.Close()

	d := &Dictionary{
		alphabet:    make(map[rune]bool, len(o.alphabet)),
		commonLimit: o.commonLimit,
		excluded:    make(map[string]bool),
		entries:     make(map[string]Entry),
		signatures:  make(map[string][]string),
		derived:     make(map[derivedKey]*derivations),
	}
	for _, r := range o.alphabet {
		d.alphabet[r] = true
	}

	rank := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word, err := d.Normalize(scanner.Text())
		if err != nil {
			continue
		}
		rank++
		if _, seen := d.entries[word]; seen {
			continue
		}
		d.entries[word] = Entry{Word: word, Rank: rank}
		sig := Signature(word)
		d.signatures[sig] = append(d.signatures[sig], word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	if len(d.entries) == 0 {
		return nil, ErrNoEntries
	}

	if o.exclusions != "" {
		if err := d.loadExclusions(o.exclusions); err != nil {
			return nil, err
		}
	}

	for _, e := range d.entries {
		if d.isCommonEntry(e) {
			d.common = append(d.common, e)
		}
	}
	sort.Slice(d.common, func(i, j int) bool { return d.common[i].Rank < d.common[j].Rank })

	return d, nil
}

func (d *Dictionary) loadExclusions(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening exclusions: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word, err := d.Normalize(scanner.Text())
		if err != nil {
			continue
		}
		d.excluded[word] = true
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading exclusions: %w", err)
	}
	return nil
}

// Normalize lowercases and trims raw input and verifies every rune belongs
// to the alphabet. User guesses pass through here before anything else.
func (d *Dictionary) Normalize(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", ErrEmptyWord
	}
	for _, r := range s {
		if !d.alphabet[r] {
			return "", ErrNotInScript
		}
	}
	return s, nil
}

func (d *Dictionary) IsWord(word string) bool {
	_, ok := d.entries[word]
	return ok
}

// IsCommon reports whether the word ranks within the common threshold and
// has not been excluded by the operator.
func (d *Dictionary) IsCommon(word string) bool {
	e, ok := d.entries[word]
	return ok && d.isCommonEntry(e)
}

func (d *Dictionary) isCommonEntry(e Entry) bool {
	return e.Rank <= d.commonLimit && !d.excluded[e.Word]
}

// Rank returns the word's frequency rank, or 0 if the word is unknown.
func (d *Dictionary) Rank(word string) int {
	return d.entries[word].Rank
}

func (d *Dictionary) Len() int { return len(d.entries) }

// Common returns the common entries ordered by rank. Callers must not
// modify the returned slice.
func (d *Dictionary) Common() []Entry { return d.common }

// DerivableFrom returns every common word within the length bounds whose
// letter multiset is contained in root's. Computed once per (root, bounds)
// by scanning the signature index, then cached for the process lifetime.
// Callers must not modify the returned slice.
func (d *Dictionary) DerivableFrom(root string, minLen, maxLen int) []string {
	return d.derivationsFor(root, minLen, maxLen).common
}

// ExtraDerivations returns the valid-but-uncommon derivations in the same
// bounds: accepted guesses that never gate completion.
func (d *Dictionary) ExtraDerivations(root string, minLen, maxLen int) []string {
	return d.derivationsFor(root, minLen, maxLen).extra
}

func (d *Dictionary) derivationsFor(root string, minLen, maxLen int) *derivations {
	key := derivedKey{root: root, minLen: minLen, maxLen: maxLen}

	d.mu.RLock()
	cached, ok := d.derived[key]
	d.mu.RUnlock()
	if ok {
		return cached
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if cached, ok := d.derived[key]; ok {
		return cached
	}

	rootCounts := Counts(root)
	result := &derivations{}
	for sig, words := range d.signatures {
		n := len([]rune(sig))
		if n < minLen || n > maxLen {
			continue
		}
		if !SubsetOf(Counts(sig), rootCounts) {
			continue
		}
		for _, word := range words {
			if d.IsCommon(word) {
				result.common = append(result.common, word)
			} else {
				result.extra = append(result.extra, word)
			}
		}
	}
	sort.Strings(result.common)
	sort.Strings(result.extra)

	d.derived[key] = result
	return result
}
