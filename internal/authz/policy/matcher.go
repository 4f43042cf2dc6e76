package policy

import (
	"regexp"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ScopeMatcher matches a requested scope against one policy scope entry.
type ScopeMatcher interface {
	Matches(scope string) bool
}

type regexpMatcher struct {
	re *regexp.Regexp
}

func (m regexpMatcher) Matches(scope string) bool {
	return m.re.MatchString(scope)
}

// matcherCache caches compiled regexp matchers keyed by pattern, so a policy
// set evaluated on every token request does not recompile its patterns.
type matcherCache struct {
	c *gocache.Cache
}

func newMatcherCache(ttl time.Duration) *matcherCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &matcherCache{c: gocache.New(ttl, 10*time.Minute)}
}

// regexpFor returns the cached matcher for the pattern, compiling it on the
// first request. A pattern that does not compile is an operator error on the
// stored policy and surfaces to the caller.
func (mc *matcherCache) regexpFor(pattern string) (ScopeMatcher, error) {
	if v, ok := mc.c.Get(pattern); ok {
		return v.(ScopeMatcher), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	m := regexpMatcher{re: re}
	mc.c.SetDefault(pattern, ScopeMatcher(m))
	return m, nil
}
