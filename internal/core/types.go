package core

import (
	"strconv"
	"time"
)

// QuestionType enumerates the canonical question formats.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeEssay          QuestionType = "essay"
	TypeFillBlank      QuestionType = "fill_blank"
	TypeMatching       QuestionType = "matching"
)

// questionTypes is the set of accepted type values.
var questionTypes = map[QuestionType]bool{
	TypeMultipleChoice: true,
	TypeTrueFalse:      true,
	TypeShortAnswer:    true,
	TypeEssay:          true,
	TypeFillBlank:      true,
	TypeMatching:       true,
}

// Known reports whether t is one of the canonical question types.
func (t QuestionType) Known() bool { return questionTypes[t] }

// IsChoice reports whether the type carries an options list that the
// correct answer must resolve into.
func (t QuestionType) IsChoice() bool {
	return t == TypeMultipleChoice || t == TypeTrueFalse
}

// Difficulty is one of the four canonical difficulty levels.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
	DifficultyExpert Difficulty = "Expert"
)

// Known reports whether d is one of the canonical levels.
func (d Difficulty) Known() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert:
		return true
	}
	return false
}

// Source records where a question came from.
type Source struct {
	UploadID  string    `json:"upload_id,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Line      int       `json:"line,omitempty"` // 1-based line in the source file
	Owner     string    `json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Analytics tracks usage counters for a question.
// Imports never reset these; overwrite and merge both carry them forward.
type Analytics struct {
	TimesAsked   int `json:"times_asked"`
	TimesCorrect int `json:"times_correct"`
	TimesWrong   int `json:"times_wrong"`
}

// MediaRef is a structured attachment reference.
type MediaRef struct {
	Kind string `json:"kind"` // image, audio, video
	URL  string `json:"url"`
}

// Record is one canonical question. Records are created by BuildRecord and
// mutated only by the merge engine; everything else treats them as read-only.
type Record struct {
	ID            string        `json:"id"`
	Question      string        `json:"question"`
	Type          QuestionType  `json:"type"`
	Options       []string      `json:"options,omitempty"`
	CorrectAnswer string        `json:"correct_answer"`
	Category      string        `json:"category,omitempty"`
	Difficulty    Difficulty    `json:"difficulty"`
	Points        float64       `json:"points"`
	TimeLimit     int           `json:"time_limit"` // seconds
	Explanation   string        `json:"explanation,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	Prerequisites []string      `json:"prerequisites,omitempty"`
	Objectives    []string      `json:"learning_objectives,omitempty"`
	Media         []MediaRef    `json:"media,omitempty"`
	Source        Source        `json:"source"`
	Analytics     Analytics     `json:"analytics"`
	Custom        *CustomFields `json:"custom_fields,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Options = append([]string(nil), r.Options...)
	cp.Tags = append([]string(nil), r.Tags...)
	cp.Prerequisites = append([]string(nil), r.Prerequisites...)
	cp.Objectives = append([]string(nil), r.Objectives...)
	cp.Media = append([]MediaRef(nil), r.Media...)
	if r.Custom != nil {
		cp.Custom = r.Custom.Clone()
	}
	return &cp
}

// AnswerValue returns the option text the correct answer resolves to.
// ok is false when the answer does not resolve to any option.
func (r *Record) AnswerValue() (string, bool) {
	idx := answerIndex(r.CorrectAnswer, r.Options)
	if idx < 0 {
		return "", false
	}
	return r.Options[idx], true
}

// RowIssue describes one problem found while processing a row. Issues are
// returned as data on results, never raised as errors, so callers can always
// inspect partial success.
type RowIssue struct {
	Line     int    `json:"line"`
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
	Question string `json:"question,omitempty"` // related question text, when known
}

func (i RowIssue) String() string {
	s := ""
	if i.Line > 0 {
		s = "line " + strconv.Itoa(i.Line) + ": "
	}
	if i.Field != "" {
		s += i.Field + ": "
	}
	return s + i.Message
}

// HeaderMode selects how missing required columns are treated.
type HeaderMode string

const (
	// HeaderLenient records a header error but still processes the file.
	HeaderLenient HeaderMode = "lenient"
	// HeaderStrict makes a file with missing required columns contribute
	// zero records.
	HeaderStrict HeaderMode = "strict"
)

// Defaults applied by Options.withDefaults and the record builder.
const (
	DefaultBatchSize        = 500
	DefaultYieldEvery       = 4
	DefaultSnapshotRowLimit = 50
	DefaultPoints           = 1
	DefaultTimeLimit        = 30 // seconds
)

// Options controls one import run.
type Options struct {
	Strategy         Strategy          // skip | overwrite | force | merge
	Strict           bool              // abort the run on the first row validation failure
	AutoCorrect      bool              // fix common authoring mistakes before validation
	DropCustom       bool              // discard unrecognized columns instead of keeping them
	BatchSize        int               // rows per chunk
	YieldEvery       int               // chunks between cooperative yields
	SnapshotRowLimit int               // cap on compact error/warning samples
	HeaderOverrides  map[string]string // raw header → canonical field, wins over built-in aliases
	Preset           string            // named required-field profile
	HeaderMode       HeaderMode
	UploadID         string
	Owner            string
	Tags             []string // stamped onto every imported record
}

// withDefaults fills zero-valued knobs.
func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = StrategySkip
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.YieldEvery <= 0 {
		o.YieldEvery = DefaultYieldEvery
	}
	if o.SnapshotRowLimit <= 0 {
		o.SnapshotRowLimit = DefaultSnapshotRowLimit
	}
	if o.Preset == "" {
		o.Preset = DefaultPreset
	}
	if o.HeaderMode == "" {
		o.HeaderMode = HeaderLenient
	}
	return o
}

// Collections holds the distinct filter values seen across accepted records.
type Collections struct {
	Categories   []string `json:"categories"`
	Difficulties []string `json:"difficulties"`
	Tags         []string `json:"tags"`
}

// Summary counts row outcomes for one run.
type Summary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Errors     int `json:"errors"`
	Warnings   int `json:"warnings"`
}

// MergeSummary counts reconciliation outcomes for one run.
type MergeSummary struct {
	Processed int `json:"processed"`
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
}

// ConflictAction is what the merge engine did with a matched candidate.
type ConflictAction string

const (
	ActionSkip   ConflictAction = "skip"
	ActionUpdate ConflictAction = "update"
	ActionAdd    ConflictAction = "add"
)

// Conflict records how one incoming record reconciled against an existing one.
type Conflict struct {
	ExistingID string         `json:"existing_id"`
	IncomingID string         `json:"incoming_id,omitempty"`
	Question   string         `json:"question,omitempty"`
	Strategy   Strategy       `json:"strategy"`
	Action     ConflictAction `json:"action"`
}

// IncomingFile is one uploaded payload handed to the engine.
type IncomingFile struct {
	Name string
	Text string
}

// FileReport is the per-file breakdown of a multi-file run.
type FileReport struct {
	Filename    string       `json:"filename"`
	Summary     Summary      `json:"summary"`
	Merge       MergeSummary `json:"merge"`
	HeaderError string       `json:"header_error,omitempty"`
	Error       string       `json:"error,omitempty"` // catastrophic failure for this file only
}

// ImportPhase tags a progress event with the stage a run is in.
type ImportPhase string

const (
	PhaseStarting   ImportPhase = "starting"
	PhaseParsing    ImportPhase = "parsing"
	PhaseValidating ImportPhase = "validating"
	PhaseMerging    ImportPhase = "merging"
	PhaseSaving     ImportPhase = "saving"
	PhaseComplete   ImportPhase = "complete"
	PhaseFailed     ImportPhase = "failed"
	PhaseCancelled  ImportPhase = "cancelled"
)

// Progress is a point-in-time view of a running import.
type Progress struct {
	ImportID  string      `json:"import_id"`
	Phase     ImportPhase `json:"phase"`
	Processed int         `json:"processed"`
	Total     int         `json:"total"`
	Message   string      `json:"message,omitempty"`
}

// Percent returns completion as 0-100. Terminal phases report 100.
func (p Progress) Percent() int {
	switch p.Phase {
	case PhaseComplete, PhaseFailed, PhaseCancelled:
		return 100
	}
	if p.Total <= 0 {
		return 0
	}
	pct := p.Processed * 100 / p.Total
	if pct > 100 {
		pct = 100
	}
	return pct
}

// ImportResult is the full outcome of one import run.
type ImportResult struct {
	ImportID    string        `json:"import_id"`
	Filename    string        `json:"filename,omitempty"`
	Strategy    Strategy      `json:"strategy"`
	Questions   []*Record     `json:"questions"`
	Summary     Summary       `json:"summary"`
	Merge       MergeSummary  `json:"merge"`
	Errors      []RowIssue    `json:"errors"`
	Warnings    []RowIssue    `json:"warnings"`
	Collections Collections   `json:"collections"`
	Conflicts   []Conflict    `json:"conflicts,omitempty"`
	Snapshot    *Snapshot     `json:"snapshot,omitempty"`
	Files       []FileReport  `json:"files,omitempty"`
	Preview     bool          `json:"preview,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}
