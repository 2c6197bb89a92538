package orchestrator

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"go.yaml.in/yaml/v3"
)

// DefaultCapabilityKeywords maps well-known capabilities to words that
// signal them in a task description. A capability's own name always
// matches, so it is not repeated here.
var DefaultCapabilityKeywords = map[string][]string{
	"code": {
		"implement", "refactor", "bug", "compile", "function",
		"unit test", "pull request", "debug",
	},
	"browser": {
		"website", "web page", "webpage", "url", "click", "scrape",
		"navigate", "screenshot",
	},
	"research": {
		"investigate", "summarize", "compare", "find out", "look up",
	},
	"writing": {
		"draft", "blog post", "article", "copy edit", "proofread",
	},
}

// rulesFile is the structure of a distribution rules YAML file:
//
//	capabilities:
//	  code: [implement, refactor]
//	  browser: [website, click]
type rulesFile struct {
	Capabilities map[string][]string `yaml:"capabilities"`
}

// Matcher infers the capabilities a task description requires.
type Matcher struct {
	mu       sync.RWMutex
	keywords map[string][]string
}

// NewMatcher creates a Matcher seeded with DefaultCapabilityKeywords.
func NewMatcher() *Matcher {
	m := &Matcher{keywords: make(map[string][]string)}
	for capability, words := range DefaultCapabilityKeywords {
		m.keywords[capability] = append([]string{}, words...)
	}
	return m
}

// AddKeyword registers a keyword for a capability.
func (m *Matcher) AddKeyword(capability, keyword string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	capability = strings.ToLower(strings.TrimSpace(capability))
	m.keywords[capability] = append(m.keywords[capability], strings.ToLower(keyword))
}

// LoadRules merges keyword rules from a YAML file.
func (m *Matcher) LoadRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}

	var rules rulesFile
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return fmt.Errorf("parse rules file: %w", err)
	}

	for capability, words := range rules.Capabilities {
		for _, w := range words {
			m.AddKeyword(capability, w)
		}
	}
	return nil
}

// Requirements returns the sorted set of capabilities the description
// asks for. Candidates are the capabilities with keyword rules plus the
// extra names given, typically every capability advertised by an agent.
// An empty result means the description carries no filtering signal.
func (m *Matcher) Requirements(description string, known []string) []string {
	lower := strings.ToLower(description)
	words := wordSet(lower)

	m.mu.RLock()
	defer m.mu.RUnlock()

	found := make(map[string]bool)
	check := func(capability string) {
		if capability == "" || found[capability] {
			return
		}
		if matchesKeyword(lower, words, capability) {
			found[capability] = true
			return
		}
		for _, kw := range m.keywords[capability] {
			if matchesKeyword(lower, words, kw) {
				found[capability] = true
				return
			}
		}
	}

	for capability := range m.keywords {
		check(capability)
	}
	for _, capability := range known {
		check(strings.ToLower(strings.TrimSpace(capability)))
	}

	reqs := make([]string, 0, len(found))
	for capability := range found {
		reqs = append(reqs, capability)
	}
	sort.Strings(reqs)
	return reqs
}

// matchesKeyword matches single words against the description's word set
// and phrases as substrings.
func matchesKeyword(lower string, words map[string]bool, keyword string) bool {
	if strings.ContainsFunc(keyword, unicode.IsSpace) {
		return strings.Contains(lower, keyword)
	}
	return words[keyword]
}

// wordSet splits text on anything that is not a letter, digit, '-' or '_'.
func wordSet(text string) map[string]bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// compatible reports whether the agent capabilities intersect reqs.
func compatible(capabilities, reqs []string) bool {
	for _, c := range capabilities {
		c = strings.ToLower(c)
		for _, r := range reqs {
			if c == r {
				return true
			}
		}
	}
	return false
}
