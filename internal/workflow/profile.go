package workflow

import (
	"hash/fnv"
	"math/rand"
)

// Behavior patterns for the simulated tester. Each profile in the catalog
// reproduces one failure mode the real browser harness would observe.
const (
	patternClean       = "clean"
	patternMinorIssues = "minor-issues"
	patternA11yBroken  = "a11y-broken"
	patternSlow        = "slow"
	patternLeaky       = "leaky"
)

var patterns = []string{patternClean, patternMinorIssues, patternA11yBroken, patternSlow, patternLeaky}

// componentProfile describes one discoverable component and how it behaves
// under test. fixes is how many fix attempts the accessibility issues need
// before the component tests clean; a value above the configured attempt
// budget means the component ends up skipped.
type componentProfile struct {
	name    string
	path    string
	pattern string
	fixes   int
}

var catalog = []componentProfile{
	{name: "NavBar", path: "src/components/NavBar.tsx", pattern: patternClean},
	{name: "LoginForm", path: "src/components/LoginForm.tsx", pattern: patternA11yBroken, fixes: 2},
	{name: "DataTable", path: "src/components/DataTable.tsx", pattern: patternSlow},
	{name: "UserCard", path: "src/components/UserCard.tsx", pattern: patternMinorIssues},
	{name: "ModalDialog", path: "src/components/ModalDialog.tsx", pattern: patternLeaky},
	{name: "DatePicker", path: "src/components/DatePicker.tsx", pattern: patternA11yBroken, fixes: 5},
	{name: "SearchBar", path: "src/components/SearchBar.tsx", pattern: patternClean},
	{name: "Toast", path: "src/components/Toast.tsx", pattern: patternMinorIssues},
}

// discover resolves the component set for a run. Explicitly requested names
// are honored in order: known names take their catalog profile, unknown ones
// get a synthesized profile whose pattern is keyed off the name so the same
// request always behaves the same way. Without a request a slate of 3-5
// catalog entries is chosen, anchored on the repo path so repeated runs
// against one repo test the same components.
func discover(repoPath string, requested []string, rng *rand.Rand) []componentProfile {
	if len(requested) > 0 {
		out := make([]componentProfile, 0, len(requested))
		for _, name := range requested {
			if name == "" {
				continue
			}
			out = append(out, profileFor(name))
		}
		return out
	}

	n := 3 + rng.Intn(3)
	if n > len(catalog) {
		n = len(catalog)
	}
	start := int(hash64(repoPath) % uint64(len(catalog)))
	out := make([]componentProfile, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, catalog[(start+i)%len(catalog)])
	}
	return out
}

// profileFor returns the catalog profile for name, or a synthesized one for
// components the catalog does not know.
func profileFor(name string) componentProfile {
	for _, p := range catalog {
		if p.name == name {
			return p
		}
	}
	p := componentProfile{
		name:    name,
		path:    "src/components/" + name + ".tsx",
		pattern: patterns[hash64(name)%uint64(len(patterns))],
	}
	if p.pattern == patternA11yBroken {
		p.fixes = 1 + int(hash64(name)%3)
	}
	return p
}

func hash64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
