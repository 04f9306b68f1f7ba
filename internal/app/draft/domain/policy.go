package domain

import (
	"sort"
	"time"
)

// Event editor field names.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldMarket      = "market"
	FieldVenue       = "venue"
	FieldCategory    = "category"
	FieldTags        = "tags"
	FieldDates       = "dates"
	FieldImages      = "images"
	FieldTicketURL   = "ticket_url"
	FieldPrice       = "price"
)

// Newsletter (eScoop) builder field names.
const (
	FieldSubject        = "subject"
	FieldPreheader      = "preheader"
	FieldSections       = "sections"
	FieldFeaturedEvents = "featured_events"
	FieldSendAt         = "send_at"
)

const (
	// DefaultDebounce is the window used for unregistered fields and for an empty dirty set.
	DefaultDebounce = 2000 * time.Millisecond

	// UrgentDebounceCap bounds the window while any urgent field is dirty.
	UrgentDebounceCap = 1500 * time.Millisecond

	// UrgentPriority is the highest priority value still treated as urgent.
	UrgentPriority = 1
)

// SensitivityClass groups fields by how their edits arrive.
type SensitivityClass string

const (
	// ClassText is free-form typing; keystrokes arrive in bursts.
	ClassText SensitivityClass = "text"

	// ClassSelect is a discrete choice such as a dropdown.
	ClassSelect SensitivityClass = "select"

	// ClassComplex is a structured value such as a tag list or date set.
	ClassComplex SensitivityClass = "complex"
)

// Valid reports whether c is one of the known classes.
func (c SensitivityClass) Valid() bool {
	switch c {
	case ClassText, ClassSelect, ClassComplex:
		return true
	}
	return false
}

// FieldPolicy controls how quickly edits to a field are flushed.
// Lower Priority values are more urgent.
type FieldPolicy struct {
	Class    SensitivityClass
	Debounce time.Duration
	Priority int
}

// DefaultPolicy is the policy applied to any field missing from a registry.
func DefaultPolicy() FieldPolicy {
	return FieldPolicy{Class: ClassText, Debounce: DefaultDebounce, Priority: 1}
}

// Urgent reports whether the policy caps the debounce window.
func (p FieldPolicy) Urgent() bool {
	return p.Priority <= UrgentPriority
}

// PolicyRegistry is an immutable field name -> FieldPolicy lookup.
// A nil registry resolves every field to DefaultPolicy.
type PolicyRegistry struct {
	policies map[string]FieldPolicy
}

// NewPolicyRegistry copies the given policies into a new registry.
func NewPolicyRegistry(policies map[string]FieldPolicy) *PolicyRegistry {
	cp := make(map[string]FieldPolicy, len(policies))
	for field, p := range policies {
		cp[field] = p
	}
	return &PolicyRegistry{policies: cp}
}

// PolicyFor returns the policy registered for field, or DefaultPolicy.
func (r *PolicyRegistry) PolicyFor(field string) FieldPolicy {
	if r == nil {
		return DefaultPolicy()
	}
	if p, ok := r.policies[field]; ok {
		return p
	}
	return DefaultPolicy()
}

// Registered reports whether field has an explicit policy.
func (r *PolicyRegistry) Registered(field string) bool {
	if r == nil {
		return false
	}
	_, ok := r.policies[field]
	return ok
}

// Fields returns the registered field names in sorted order.
func (r *PolicyRegistry) Fields() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.policies))
	for field := range r.policies {
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}

func textPolicy(priority int) FieldPolicy {
	return FieldPolicy{Class: ClassText, Debounce: 2000 * time.Millisecond, Priority: priority}
}

func selectPolicy(priority int) FieldPolicy {
	return FieldPolicy{Class: ClassSelect, Debounce: 1500 * time.Millisecond, Priority: priority}
}

func complexPolicy(priority int) FieldPolicy {
	return FieldPolicy{Class: ClassComplex, Debounce: 1000 * time.Millisecond, Priority: priority}
}

// EventEditorPolicies is the registry used by the multi-step event editor.
func EventEditorPolicies() *PolicyRegistry {
	return NewPolicyRegistry(map[string]FieldPolicy{
		FieldTitle:       textPolicy(2),
		FieldDescription: textPolicy(3),
		FieldMarket:      selectPolicy(1),
		FieldVenue:       selectPolicy(1),
		FieldCategory:    selectPolicy(1),
		FieldTags:        complexPolicy(1),
		FieldDates:       complexPolicy(1),
		FieldImages:      complexPolicy(2),
		FieldTicketURL:   textPolicy(2),
		FieldPrice:       textPolicy(2),
	})
}

// NewsletterPolicies is the registry used by the eScoop newsletter builder.
func NewsletterPolicies() *PolicyRegistry {
	return NewPolicyRegistry(map[string]FieldPolicy{
		FieldSubject:        textPolicy(2),
		FieldPreheader:      textPolicy(3),
		FieldSections:       complexPolicy(1),
		FieldFeaturedEvents: complexPolicy(1),
		FieldMarket:         selectPolicy(1),
		FieldSendAt:         selectPolicy(1),
	})
}
