package core

// bank.go holds the in-memory question bank the merge engine reconciles
// against.
//
// The bank is an ordered collection with two lookup indexes: by id and by
// normalized question text. Matching tries id first, then text; the first
// record with a given text wins the text index, so force-imported duplicates
// never shadow the original. A Bank is not safe for concurrent use; callers
// serialize access (the service holds a single-writer lock).

import (
	"strconv"
	"strings"
	"time"
)

// BankVersion is the envelope format version written on save.
const BankVersion = "1.0"

// BankEnvelope is the serialized form of a bank.
type BankEnvelope struct {
	Version   string            `json:"version"`
	Generated time.Time         `json:"generated"`
	Meta      map[string]string `json:"meta,omitempty"`
	Questions []*Record         `json:"questions"`
}

// Bank is the canonical question collection.
type Bank struct {
	Version   string
	Generated time.Time
	Meta      map[string]string
	Questions []*Record

	byID   map[string]*Record
	byText map[string]*Record
	maxID  int64
}

// NewBank returns an empty bank.
func NewBank() *Bank {
	return &Bank{
		Version: BankVersion,
		byID:    make(map[string]*Record),
		byText:  make(map[string]*Record),
	}
}

// FromEnvelope rebuilds a bank and its indexes from its serialized form.
func FromEnvelope(env BankEnvelope) *Bank {
	b := NewBank()
	if env.Version != "" {
		b.Version = env.Version
	}
	b.Generated = env.Generated
	b.Meta = env.Meta
	for _, rec := range env.Questions {
		if rec == nil {
			continue
		}
		b.Questions = append(b.Questions, rec)
		b.index(rec)
	}
	return b
}

// Envelope returns the serialized form of the bank.
func (b *Bank) Envelope() BankEnvelope {
	return BankEnvelope{
		Version:   b.Version,
		Generated: b.Generated,
		Meta:      b.Meta,
		Questions: b.Questions,
	}
}

// Len returns the number of questions in the bank.
func (b *Bank) Len() int { return len(b.Questions) }

// Get returns the record with the given id.
func (b *Bank) Get(id string) (*Record, bool) {
	rec, ok := b.byID[id]
	return rec, ok
}

// FindMatch locates the existing record a candidate duplicates, trying id
// equality first and normalized question text second.
func (b *Bank) FindMatch(rec *Record) (*Record, bool) {
	if rec.ID != "" {
		if existing, ok := b.byID[rec.ID]; ok {
			return existing, true
		}
	}
	if key := NormalizeQuestionText(rec.Question); key != "" {
		if existing, ok := b.byText[key]; ok {
			return existing, true
		}
	}
	return nil, false
}

// Insert appends a new record, allocating an id when the record has none.
func (b *Bank) Insert(rec *Record) {
	if rec.ID == "" {
		rec.ID = b.NextID()
	}
	b.Questions = append(b.Questions, rec)
	b.index(rec)
	b.touch()
}

// InsertForced appends a record under a freshly allocated id, ignoring any
// id it arrived with. Used by the force strategy, which allows duplicates.
func (b *Bank) InsertForced(rec *Record) {
	rec.ID = b.NextID()
	b.Questions = append(b.Questions, rec)
	b.index(rec)
	b.touch()
}

// Update copies the incoming record into the existing one, keeping its
// position in the collection. The caller has already settled id and
// analytics preservation; Update only maintains the indexes.
func (b *Bank) Update(existing, incoming *Record) {
	oldID := existing.ID
	oldKey := NormalizeQuestionText(existing.Question)

	*existing = *incoming

	if existing.ID != oldID {
		delete(b.byID, oldID)
	}
	newKey := NormalizeQuestionText(existing.Question)
	if newKey != oldKey {
		b.releaseTextKey(oldKey, existing)
	}
	b.index(existing)
	b.touch()
}

// Remove deletes the record with the given id. Imports never call this;
// deletion is a separate operation.
func (b *Bank) Remove(id string) bool {
	rec, ok := b.byID[id]
	if !ok {
		return false
	}
	for i, q := range b.Questions {
		if q == rec {
			b.Questions = append(b.Questions[:i], b.Questions[i+1:]...)
			break
		}
	}
	delete(b.byID, id)
	b.releaseTextKey(NormalizeQuestionText(rec.Question), rec)
	b.touch()
	return true
}

// NextID allocates the next id: one past the largest numeric id seen.
func (b *Bank) NextID() string {
	b.maxID++
	return strconv.FormatInt(b.maxID, 10)
}

func (b *Bank) index(rec *Record) {
	if rec.ID != "" {
		if _, exists := b.byID[rec.ID]; !exists {
			b.byID[rec.ID] = rec
		}
		if n, err := strconv.ParseInt(rec.ID, 10, 64); err == nil && n > b.maxID {
			b.maxID = n
		}
	}
	if key := NormalizeQuestionText(rec.Question); key != "" {
		if _, exists := b.byText[key]; !exists {
			b.byText[key] = rec
		}
	}
}

// releaseTextKey drops rec's claim on a text key and repoints the key at the
// earliest remaining record with the same text, if any.
func (b *Bank) releaseTextKey(key string, rec *Record) {
	if key == "" || b.byText[key] != rec {
		return
	}
	delete(b.byText, key)
	for _, q := range b.Questions {
		if q != rec && NormalizeQuestionText(q.Question) == key {
			b.byText[key] = q
			return
		}
	}
}

func (b *Bank) touch() {
	b.Generated = time.Now().UTC()
}

// QuestionFilter selects questions for listing and export. Zero-valued
// fields match everything.
type QuestionFilter struct {
	Category   string
	Difficulty Difficulty
	Type       QuestionType
	Tag        string
	Query      string // case-insensitive substring of the question text
}

func (f QuestionFilter) matches(rec *Record) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, rec.Category) {
		return false
	}
	if f.Difficulty != "" && f.Difficulty != rec.Difficulty {
		return false
	}
	if f.Type != "" && f.Type != rec.Type {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, t := range rec.Tags {
			if strings.EqualFold(f.Tag, t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(rec.Question), strings.ToLower(f.Query)) {
		return false
	}
	return true
}

// Filter returns the questions matching f, in bank order.
func (b *Bank) Filter(f QuestionFilter) []*Record {
	var out []*Record
	for _, rec := range b.Questions {
		if f.matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// BankStats summarizes the bank for dashboards and exports.
type BankStats struct {
	Total        int            `json:"total"`
	ByCategory   map[string]int `json:"by_category"`
	ByDifficulty map[string]int `json:"by_difficulty"`
	ByType       map[string]int `json:"by_type"`
	Generated    time.Time      `json:"generated"`
}

// Stats counts questions by category, difficulty, and type.
func (b *Bank) Stats() BankStats {
	stats := BankStats{
		Total:        len(b.Questions),
		ByCategory:   make(map[string]int),
		ByDifficulty: make(map[string]int),
		ByType:       make(map[string]int),
		Generated:    b.Generated,
	}
	for _, rec := range b.Questions {
		if rec.Category != "" {
			stats.ByCategory[rec.Category]++
		}
		stats.ByDifficulty[string(rec.Difficulty)]++
		stats.ByType[string(rec.Type)]++
	}
	return stats
}
