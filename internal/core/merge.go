package core

// merge.go reconciles candidate records against the existing bank.
//
// Matching tries id equality first, then normalized question text. What
// happens on a match depends on the strategy:
//
//	skip       keep the existing record unchanged; count as skipped
//	overwrite  incoming replaces existing under the existing id, keeping
//	           its analytics; count as updated
//	force      always insert incoming as a new record under a fresh id,
//	           duplicates allowed; count as added
//	merge      field by field: non-empty incoming wins, lists union,
//	           options overlay per position; id and analytics stay with
//	           the existing record; count as updated
//
// Unmatched candidates are always inserted as new. The bank is mutated in
// place and the engine assumes exclusive access for the duration of one
// call; the service's single-writer lock provides that.

import (
	"fmt"
	"strings"
)

// Strategy names the policy for reconciling a matched candidate.
type Strategy string

const (
	StrategySkip      Strategy = "skip"
	StrategyOverwrite Strategy = "overwrite"
	StrategyForce     Strategy = "force"
	StrategyMerge     Strategy = "merge"
)

// Valid reports whether s is a supported strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategySkip, StrategyOverwrite, StrategyForce, StrategyMerge:
		return true
	}
	return false
}

// ParseStrategy resolves a strategy name. The empty string means the default
// (skip); any other unknown name is a configuration error.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	if s == "" {
		return StrategySkip, nil
	}
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return s, nil
}

// Merge reconciles candidates against the bank under the given strategy.
// The bank is modified in place. An unknown strategy fails fast before any
// candidate is touched.
func Merge(bank *Bank, candidates []*Record, strategy Strategy) (MergeSummary, []Conflict, error) {
	if !strategy.Valid() {
		return MergeSummary{}, nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	var (
		summary   MergeSummary
		conflicts []Conflict
	)

	for _, cand := range candidates {
		summary.Processed++

		existing, ok := bank.FindMatch(cand)
		if !ok {
			bank.Insert(cand)
			summary.Added++
			continue
		}

		conflict := Conflict{
			ExistingID: existing.ID,
			IncomingID: cand.ID,
			Question:   existing.Question,
			Strategy:   strategy,
		}

		switch strategy {
		case StrategySkip:
			summary.Skipped++
			conflict.Action = ActionSkip
		case StrategyOverwrite:
			overwriteRecord(bank, existing, cand)
			summary.Updated++
			conflict.Action = ActionUpdate
		case StrategyForce:
			bank.InsertForced(cand)
			summary.Added++
			conflict.Action = ActionAdd
		case StrategyMerge:
			mergeRecord(bank, existing, cand)
			summary.Updated++
			conflict.Action = ActionUpdate
		}

		conflicts = append(conflicts, conflict)
	}

	return summary, conflicts, nil
}

// DryRun classifies candidates against the bank without modifying it,
// reporting what Merge would do under the given strategy. Duplicates within
// the candidate set itself are matched against each other the same way a
// real run would match them after insertion.
func DryRun(bank *Bank, candidates []*Record, strategy Strategy) (MergeSummary, []Conflict, error) {
	if !strategy.Valid() {
		return MergeSummary{}, nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	var (
		summary   MergeSummary
		conflicts []Conflict
	)
	simID := make(map[string]*Record)
	simText := make(map[string]*Record)

	find := func(cand *Record) (*Record, bool) {
		if existing, ok := bank.FindMatch(cand); ok {
			return existing, true
		}
		if cand.ID != "" {
			if m, ok := simID[cand.ID]; ok {
				return m, true
			}
		}
		if key := NormalizeQuestionText(cand.Question); key != "" {
			if m, ok := simText[key]; ok {
				return m, true
			}
		}
		return nil, false
	}

	admit := func(cand *Record) {
		if cand.ID != "" {
			if _, ok := simID[cand.ID]; !ok {
				simID[cand.ID] = cand
			}
		}
		if key := NormalizeQuestionText(cand.Question); key != "" {
			if _, ok := simText[key]; !ok {
				simText[key] = cand
			}
		}
	}

	for _, cand := range candidates {
		summary.Processed++

		existing, ok := find(cand)
		if !ok {
			admit(cand)
			summary.Added++
			continue
		}

		conflict := Conflict{
			ExistingID: existing.ID,
			IncomingID: cand.ID,
			Question:   existing.Question,
			Strategy:   strategy,
		}

		switch strategy {
		case StrategySkip:
			summary.Skipped++
			conflict.Action = ActionSkip
		case StrategyOverwrite, StrategyMerge:
			summary.Updated++
			conflict.Action = ActionUpdate
		case StrategyForce:
			summary.Added++
			conflict.Action = ActionAdd
		}

		conflicts = append(conflicts, conflict)
	}

	return summary, conflicts, nil
}

// overwriteRecord replaces the existing record's fields wholesale, keeping
// the existing id, analytics, and original creation time.
func overwriteRecord(bank *Bank, existing, incoming *Record) {
	updated := incoming.Clone()
	updated.ID = existing.ID
	updated.Analytics = existing.Analytics
	if !existing.Source.CreatedAt.IsZero() {
		updated.Source.CreatedAt = existing.Source.CreatedAt
	}
	bank.Update(existing, updated)
}

// mergeRecord combines incoming into existing: scalar fields take the
// non-empty incoming value, list fields union, options overlay by position,
// and custom fields union per key. Id and analytics always come from the
// existing record.
func mergeRecord(bank *Bank, existing, incoming *Record) {
	merged := existing.Clone()

	if incoming.Question != "" {
		merged.Question = incoming.Question
	}
	if incoming.Type != "" {
		merged.Type = incoming.Type
	}
	merged.Options = overlayOptions(existing.Options, incoming.Options)
	if incoming.CorrectAnswer != "" {
		merged.CorrectAnswer = incoming.CorrectAnswer
	}
	if incoming.Category != "" {
		merged.Category = incoming.Category
	}
	if incoming.Difficulty != "" {
		merged.Difficulty = incoming.Difficulty
	}
	if incoming.Points != 0 {
		merged.Points = incoming.Points
	}
	if incoming.TimeLimit != 0 {
		merged.TimeLimit = incoming.TimeLimit
	}
	if incoming.Explanation != "" {
		merged.Explanation = incoming.Explanation
	}
	merged.Tags = unionList(existing.Tags, incoming.Tags)
	merged.Prerequisites = unionList(existing.Prerequisites, incoming.Prerequisites)
	merged.Objectives = unionList(existing.Objectives, incoming.Objectives)
	merged.Media = unionMedia(existing.Media, incoming.Media)
	merged.Custom = existing.Custom.Union(incoming.Custom)
	merged.Source = unionSource(existing.Source, incoming.Source)

	merged.ID = existing.ID
	merged.Analytics = existing.Analytics

	bank.Update(existing, merged)
}

// overlayOptions keeps the existing options and lets non-empty incoming
// values win at their position.
func overlayOptions(existing, incoming []string) []string {
	if len(incoming) == 0 {
		return append([]string(nil), existing...)
	}
	size := len(existing)
	if len(incoming) > size {
		size = len(incoming)
	}
	out := make([]string, size)
	copy(out, existing)
	for i, opt := range incoming {
		if opt != "" {
			out[i] = opt
		}
	}
	return out
}

// unionList appends incoming items that the existing list does not already
// contain, compared case-insensitively.
func unionList(existing, incoming []string) []string {
	out := append([]string(nil), existing...)
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[strings.ToLower(v)] = true
	}
	for _, v := range incoming {
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// unionMedia appends incoming refs whose URL is not already attached.
func unionMedia(existing, incoming []MediaRef) []MediaRef {
	out := append([]MediaRef(nil), existing...)
	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		seen[m.URL] = true
	}
	for _, m := range incoming {
		if m.URL == "" || seen[m.URL] {
			continue
		}
		seen[m.URL] = true
		out = append(out, m)
	}
	return out
}

// unionSource overlays incoming provenance per key. The creation timestamp
// is the one field that sticks with the existing record: it records when the
// question was first introduced.
func unionSource(existing, incoming Source) Source {
	out := existing
	if incoming.UploadID != "" {
		out.UploadID = incoming.UploadID
	}
	if incoming.Filename != "" {
		out.Filename = incoming.Filename
	}
	if incoming.Line != 0 {
		out.Line = incoming.Line
	}
	if incoming.Owner != "" {
		out.Owner = incoming.Owner
	}
	if !incoming.UpdatedAt.IsZero() {
		out.UpdatedAt = incoming.UpdatedAt
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = incoming.CreatedAt
	}
	return out
}
