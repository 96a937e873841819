// Package battery holds the built-in test definitions. Each test is a
// session.TestPlan: a trial generator plus optional stopping rule and
// summarizer. New tests register themselves here so frontends can look
// them up by name.
package battery

import (
	"sort"

	"github.com/dshills/cogtest-go/session"
)

var plans = map[string]session.TestPlan{}

func register(plan session.TestPlan) {
	plans[plan.Name] = plan
}

// Lookup returns the test plan registered under name.
func Lookup(name string) (session.TestPlan, bool) {
	plan, ok := plans[name]
	return plan, ok
}

// Names returns the registered test names in sorted order.
func Names() []string {
	names := make([]string, 0, len(plans))
	for name := range plans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
