// Package eligibility decides whether an entry's content may be submitted
// for analysis. The decision is an explicit tagged rule rather than a bare
// boolean so hosts can plug in per-entry logic.
package eligibility

// EntryContext is what a predicate may inspect when deciding.
type EntryContext struct {
	EntryID    int64
	SiteID     int64
	Channel    string
	Attributes map[string]string
}

// Rule is evaluated before every submission; content whose rule returns
// false is never sent.
type Rule interface {
	Eligible(ctx EntryContext) bool
}

type alwaysRule bool

func (r alwaysRule) Eligible(EntryContext) bool { return bool(r) }

// AlwaysEnabled admits every entry.
func AlwaysEnabled() Rule { return alwaysRule(true) }

// AlwaysDisabled admits nothing.
func AlwaysDisabled() Rule { return alwaysRule(false) }

type predicateRule func(EntryContext) bool

func (r predicateRule) Eligible(ctx EntryContext) bool { return r(ctx) }

// Predicate wraps a host-supplied decision function.
func Predicate(fn func(EntryContext) bool) Rule { return predicateRule(fn) }
