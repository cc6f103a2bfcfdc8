package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/hashtable"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/tokenizer"
)

// WordPostings holds every document a word occurs in, keyed by document ID,
// with the word's positions in insertion order.
type WordPostings struct {
	Word string
	Docs *hashtable.Table[[]int]
}

func (w *WordPostings) Count(docID uint64) int {
	positions, _ := w.Docs.Lookup(docID)
	return len(positions)
}

// MemIndex maps words to postings. Words are keyed by their FNV-1a hash; the
// chain stored under a key holds every word sharing that hash.
type MemIndex struct {
	mu        sync.RWMutex
	words     *hashtable.Table[[]*WordPostings]
	numWords  int
	positions int64
}

func NewMemIndex() *MemIndex {
	return &MemIndex{
		words: hashtable.New[[]*WordPostings](hashtable.DefaultBuckets),
	}
}

func (m *MemIndex) AddPosition(word string, docID uint64, pos int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLocked(word, docID, pos)
}

func (m *MemIndex) AddDocument(docID uint64, tokens []tokenizer.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tok := range tokens {
		m.addLocked(tok.Term, docID, tok.Position)
	}
}

func (m *MemIndex) addLocked(word string, docID uint64, pos int) {
	key := hashtable.HashString(word)
	chain, _ := m.words.Lookup(key)

	var wp *WordPostings
	for _, candidate := range chain {
		if candidate.Word == word {
			wp = candidate
			break
		}
	}
	if wp == nil {
		wp = &WordPostings{
			Word: word,
			Docs: hashtable.New[[]int](hashtable.DefaultBuckets),
		}
		m.words.Insert(key, append(chain, wp))
		m.numWords++
	}

	positions, _ := wp.Docs.Lookup(docID)
	wp.Docs.Insert(docID, append(positions, pos))
	m.positions++
}

func (m *MemIndex) Lookup(word string) *WordPostings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chain, _ := m.words.Lookup(hashtable.HashString(word))
	for _, wp := range chain {
		if wp.Word == word {
			return wp
		}
	}
	return nil
}

func (m *MemIndex) NumWords() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.numWords
}

func (m *MemIndex) NumPositions() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.positions
}

// Table exposes the hash-keyed word table for serialization.
func (m *MemIndex) Table() *hashtable.Table[[]*WordPostings] {
	return m.words
}

// Words returns every indexed word in sorted order.
func (m *MemIndex) Words() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, m.numWords)
	for _, chain := range m.words.All() {
		for _, wp := range chain {
			out = append(out, wp.Word)
		}
	}
	sort.Strings(out)
	return out
}
