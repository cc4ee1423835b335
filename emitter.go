package ingest

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// regexCacheSize bounds the number of compiled regular expressions the
// PatternEmitter keeps warm. It mirrors the "fast path may cache compiled
// regexes by canonical key" note: unbounded growth is never allowed.
const regexCacheSize = 512

// Pattern is a regular expression together with the flags it was declared
// with, mirroring a JavaScript RegExp literal. The only two flags the
// framework gives meaning to are "i" (case-insensitive) and "g" (global:
// collect every match in the trigger instead of only the first).
type Pattern struct {
	Body  string
	Flags string
}

// String returns the canonical "/body/flags" form of the p. This exact
// string is what PatternEmitter uses as the listener-table key for a regex
// pattern, and what Router.Match returns as a pattern-key.
func (p Pattern) String() string {
	return "/" + p.Body + "/" + p.Flags
}

// Global reports whether the p carries the "g" flag.
func (p Pattern) Global() bool {
	return strings.Contains(p.Flags, "g")
}

// ParsePattern recovers a Pattern from its canonical "/body/flags" string.
// Parsing uses the first '/' and the last '/' as delimiters, which is lossy
// for a body containing unescaped '/' characters -- callers are expected to
// pass real Pattern values, never hand-assembled key strings, for exactly
// this reason.
func ParsePattern(key string) (Pattern, bool) {
	if len(key) < 2 || key[0] != '/' {
		return Pattern{}, false
	}

	last := strings.LastIndex(key, "/")
	if last <= 0 {
		return Pattern{}, false
	}

	return Pattern{Body: key[1:last], Flags: key[last+1:]}, true
}

// compile turns the p into a *regexp.Regexp, translating the "i" flag into
// Go's inline case-insensitive modifier. The "g" flag has no bearing on
// compilation; it only changes how many times Match scans the trigger.
func (p Pattern) compile() (*regexp.Regexp, error) {
	body := p.Body
	if strings.Contains(p.Flags, "i") {
		body = "(?i)" + body
	}
	return regexp.Compile(body)
}

// Match is what PatternEmitter.Match reports for one pattern that matched a
// trigger: the trigger itself, positional capture groups (Args), and, for a
// router-registered pattern, the capture groups mapped to their param names.
type Match struct {
	Pattern string
	Trigger string
	Args    []string
	Params  map[string]string
}

// listenerEntry is one registered Task together with the bookkeeping Unbind
// needs to remove it by identity.
type listenerEntry struct {
	id       uint64
	task     Task
	priority int
}

// UnbindFilter selects which listeners PatternEmitter.Unbind removes. The
// zero value removes every listener of every event.
type UnbindFilter struct {
	// Pattern restricts removal to one event key (a literal string or a
	// Pattern). A nil Pattern matches every event.
	Pattern interface{}

	// ID restricts removal to the listener with this identity, as
	// returned from On. A zero ID matches every listener.
	ID uint64
}

// PatternEmitter maps literal strings and regular expressions to sets of
// prioritized Tasks. Given a trigger string it reports which patterns match
// and, through Tasks, a ready-to-run PriorityQueue of the matching listeners.
type PatternEmitter struct {
	mu        sync.RWMutex
	listeners map[string][]listenerEntry
	regexSet  map[string]struct{}
	regexLRU  *lru.Cache[string, *regexp.Regexp]
	nextID    uint64

	// patternOrder records, for every pattern key ever registered, the
	// sequence number it was first seen at. Tasks uses it to fire
	// matched patterns in registration order.
	patternOrder map[string]int
	nextOrder    int

	// matchFn performs the actual trigger -> []Match resolution. It
	// defaults to e.matchPatterns; NewRouter replaces it with Router's
	// version that additionally maps captures to route params,
	// instead of Router overriding every method that calls it.
	matchFn func(trigger string) map[string]Match

	// Before and After, when set, run around every shimmed Task that
	// Tasks produces, regardless of which pattern matched.
	Before func(Args, Match)
	After  func(Args, Match)
}

// NewPatternEmitter returns a pointer to a new, empty PatternEmitter.
func NewPatternEmitter() *PatternEmitter {
	cache, _ := lru.New[string, *regexp.Regexp](regexCacheSize)
	e := &PatternEmitter{
		listeners:    map[string][]listenerEntry{},
		regexSet:     map[string]struct{}{},
		regexLRU:     cache,
		patternOrder: map[string]int{},
	}
	e.matchFn = e.matchPatterns
	return e
}

// On registers the task at the priority against event, which must be a
// string, a Pattern, or a []interface{} mixing either. It returns an opaque
// listener ID usable with Unbind.
func (e *PatternEmitter) On(event interface{}, task Task, priority int) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID

	for _, key := range eventKeys(event) {
		if _, seen := e.patternOrder[key]; !seen {
			e.patternOrder[key] = e.nextOrder
			e.nextOrder++
		}

		e.listeners[key] = append(e.listeners[key], listenerEntry{
			id:       id,
			task:     task,
			priority: priority,
		})

		if _, ok := ParsePattern(key); ok {
			e.regexSet[key] = struct{}{}
		}
	}

	return id
}

// eventKeys normalizes event into its canonical listener-table keys.
func eventKeys(event interface{}) []string {
	switch v := event.(type) {
	case string:
		return []string{v}
	case Pattern:
		return []string{v.String()}
	case []interface{}:
		keys := make([]string, 0, len(v))
		for _, item := range v {
			keys = append(keys, eventKeys(item)...)
		}
		return keys
	default:
		panic(fmt.Sprintf("ingest: unsupported event key type %T", event))
	}
}

// Unbind removes listeners matching the filter and returns how many were
// removed.
func (e *PatternEmitter) Unbind(filter UnbindFilter) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	var keys []string
	if filter.Pattern != nil {
		keys = eventKeys(filter.Pattern)
	} else {
		for k := range e.listeners {
			keys = append(keys, k)
		}
	}

	removed := 0
	for _, key := range keys {
		entries, ok := e.listeners[key]
		if !ok {
			continue
		}

		if filter.ID == 0 {
			removed += len(entries)
			delete(e.listeners, key)
			delete(e.regexSet, key)
			continue
		}

		kept := entries[:0:0]
		for _, en := range entries {
			if en.id == filter.ID {
				removed++
				continue
			}
			kept = append(kept, en)
		}

		if len(kept) == 0 {
			delete(e.listeners, key)
			delete(e.regexSet, key)
		} else {
			e.listeners[key] = kept
		}
	}

	return removed
}

// Use imports the other emitter's regex set and listener table into e.
// Listener sets for the same event are unioned, deduplicated by listener ID.
func (e *PatternEmitter) Use(other *PatternEmitter) {
	other.mu.RLock()
	defer other.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	for key, entries := range other.listeners {
		existing := map[uint64]bool{}
		for _, en := range e.listeners[key] {
			existing[en.id] = true
		}

		for _, en := range entries {
			if existing[en.id] {
				continue
			}
			e.listeners[key] = append(e.listeners[key], en)
		}
	}

	for key := range other.regexSet {
		e.regexSet[key] = struct{}{}
	}
}

// compiledRegex returns the compiled *regexp.Regexp for the canonical key,
// serving it from the LRU cache when present.
func (e *PatternEmitter) compiledRegex(key string) (*regexp.Regexp, error) {
	cacheKey := strconv.FormatUint(xxhash.Sum64String(key), 16)

	if re, ok := e.regexLRU.Get(cacheKey); ok {
		return re, nil
	}

	p, ok := ParsePattern(key)
	if !ok {
		return nil, fmt.Errorf("ingest: %q is not a valid pattern key", key)
	}

	re, err := p.compile()
	if err != nil {
		return nil, err
	}

	e.regexLRU.Add(cacheKey, re)
	return re, nil
}

// Match reports every registered pattern that matches the trigger, using
// e.matchFn (the generic implementation by default, or Router's route-aware
// one when e belongs to a Router).
func (e *PatternEmitter) Match(trigger string) map[string]Match {
	return e.matchFn(trigger)
}

// matchPatterns is the default, route-agnostic implementation of Match.
func (e *PatternEmitter) matchPatterns(trigger string) map[string]Match {
	e.mu.RLock()
	defer e.mu.RUnlock()

	matches := map[string]Match{}

	if _, ok := e.listeners[trigger]; ok {
		matches[trigger] = Match{Pattern: trigger, Trigger: trigger}
	}

	for key := range e.regexSet {
		p, ok := ParsePattern(key)
		if !ok {
			continue
		}

		re, err := e.compiledRegex(key)
		if err != nil {
			continue
		}

		if p.Global() {
			all := re.FindAllStringSubmatch(trigger, -1)
			if len(all) == 0 {
				continue
			}

			var args []string
			for _, groups := range all {
				args = groups[1:]
			}

			matches[key] = Match{Pattern: key, Trigger: trigger, Args: args}
		} else {
			groups := re.FindStringSubmatch(trigger)
			if groups == nil {
				continue
			}

			matches[key] = Match{
				Pattern: key,
				Trigger: trigger,
				Args:    groups[1:],
			}
		}
	}

	return matches
}

// Tasks returns a fresh PriorityQueue containing, for every pattern that
// matches event, every listener task registered against it. Each task is
// wrapped in a shim that merges the match's Params (never overwriting an
// existing Request.Data key) and Args into the Request before the
// underlying task runs, and that invokes Before/After around it.
func (e *PatternEmitter) Tasks(event string) *PriorityQueue {
	matches := e.Match(event)

	// Patterns fire in registration order; within a pattern its listeners
	// keep their own relative order. The final priority sort in Run is
	// what actually determines execution order across the composite set.
	var keys []string
	e.mu.RLock()
	for key := range matches {
		keys = append(keys, key)
	}
	order := e.patternOrder
	e.mu.RUnlock()
	sort.SliceStable(keys, func(i, j int) bool {
		return order[keys[i]] < order[keys[j]]
	})

	q := NewPriorityQueue()

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, key := range keys {
		m := matches[key]
		for _, en := range e.listeners[key] {
			task, priority := e.shim(en, m), en.priority
			q.Add(task, priority)
		}
	}

	return q
}

// shim wraps the entry's task so that, before it runs, the match's params
// and args are merged into the request carried by Args, and the emitter's
// Before/After hooks fire around it.
func (e *PatternEmitter) shim(en listenerEntry, m Match) Task {
	return func(args Args) (interface{}, error) {
		if args.Request != nil {
			if args.Request.Data == nil {
				args.Request.Data = map[string]interface{}{}
			}
			for name, value := range m.Params {
				if _, exists := args.Request.Data[name]; !exists {
					args.Request.Data[name] = value
				}
			}
			if len(m.Args) > 0 {
				args.Request.Data["args"] = m.Args
			}
		}

		if e.Before != nil {
			e.Before(args, m)
		}

		result, err := en.task(args)

		if e.After != nil {
			e.After(args, m)
		}

		return result, err
	}
}
