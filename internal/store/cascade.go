package store

import (
	"fmt"

	"github.com/starford/vitrine/internal/storage"
)

// Step is one delete operation inside a cascade plan.
type Step struct {
	Kind storage.Kind `json:"kind"`
	ID   string       `json:"id"`
}

// CascadeError reports a cascade that failed partway. Completed steps
// stay committed (there is no rollback); Pending lists the steps still
// to run, starting with the one that failed, so the caller can resume
// deterministically.
type CascadeError struct {
	Completed []Step
	Pending   []Step
	Err       error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("store: cascade stopped after %d of %d steps: %v",
		len(e.Completed), len(e.Completed)+len(e.Pending), e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }

// CollectionDeletePlan collects, without mutating anything, the ordered
// delete steps for a collection: items before their types, types before
// their sections, sections before the collection. Executing the plan in
// order never leaves an item referencing a missing type.
func (s *Store) CollectionDeletePlan(collectionID string) []Step {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var plan []Step
	for _, sec := range s.snap.Sections {
		if sec.CollectionID != collectionID {
			continue
		}
		plan = append(plan, s.sectionStepsLocked(sec.ID)...)
		plan = append(plan, Step{Kind: storage.KindSections, ID: sec.ID})
	}
	return append(plan, Step{Kind: storage.KindCollections, ID: collectionID})
}

// SectionDeletePlan collects the ordered delete steps for a section and
// everything beneath it.
func (s *Store) SectionDeletePlan(sectionID string) []Step {
	s.mu.RLock()
	plan := s.sectionStepsLocked(sectionID)
	s.mu.RUnlock()
	return append(plan, Step{Kind: storage.KindSections, ID: sectionID})
}

// sectionStepsLocked returns item and type steps under one section.
// Caller holds mu.
func (s *Store) sectionStepsLocked(sectionID string) []Step {
	var plan []Step
	for _, t := range s.snap.ItemTypes {
		if t.SectionID != sectionID {
			continue
		}
		for _, it := range s.snap.Items {
			if it.TypeID == t.ID {
				plan = append(plan, Step{Kind: storage.KindItems, ID: it.ID})
			}
		}
		plan = append(plan, Step{Kind: storage.KindTypes, ID: t.ID})
	}
	return plan
}

// DeleteCollection cascades through sections, types, and items in strict
// child-before-parent order, each step fully persisted before the next.
// On failure the returned *CascadeError carries the committed and
// pending step lists.
func (s *Store) DeleteCollection(collectionID string) error {
	return s.ExecutePlan(s.CollectionDeletePlan(collectionID))
}

// DeleteSectionCascade removes a section together with its types and
// items.
func (s *Store) DeleteSectionCascade(sectionID string) error {
	return s.ExecutePlan(s.SectionDeletePlan(sectionID))
}

// ExecutePlan runs delete steps sequentially. Accepting a plan (rather
// than recomputing it) lets a caller resume a previously failed cascade
// from its Pending list.
func (s *Store) ExecutePlan(plan []Step) error {
	for i, step := range plan {
		if err := s.deleteOne(step.Kind, step.ID); err != nil {
			return &CascadeError{
				Completed: plan[:i],
				Pending:   plan[i:],
				Err:       err,
			}
		}
	}
	return nil
}
