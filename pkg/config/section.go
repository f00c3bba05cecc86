package config

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Section is one [name] block. Every getter records the option as read, so
// CheckUnusedOptions can report typos.
type Section struct {
	name    string
	options map[string]string // keys lower-cased

	mu   sync.Mutex
	read map[string]bool
}

func newSection(name string, options map[string]string) *Section {
	opts := make(map[string]string, len(options))
	for k, v := range options {
		opts[strings.ToLower(k)] = v
	}
	return &Section{name: name, options: opts, read: make(map[string]bool)}
}

// GetName returns the section name.
func (s *Section) GetName() string {
	return s.name
}

// HasOption reports whether option is set. It does not count as a read.
func (s *Section) HasOption(option string) bool {
	_, ok := s.options[strings.ToLower(option)]
	return ok
}

// OptionNames returns the option names in sorted order without marking
// them read.
func (s *Section) OptionNames() []string {
	names := make([]string, 0, len(s.options))
	for k := range s.options {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// GetUnusedOptions returns the options no getter has read, sorted.
func (s *Section) GetUnusedOptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for opt := range s.options {
		if !s.read[opt] {
			out = append(out, opt)
		}
	}
	sort.Strings(out)
	return out
}

// lookup marks option read and converts its raw value with parse. An
// absent option yields the first fallback, or a CONFIG_OPTION error.
func lookup[T any](s *Section, option string, fallback []T, parse func(raw string) (T, error)) (T, error) {
	key := strings.ToLower(option)
	s.mu.Lock()
	s.read[key] = true
	s.mu.Unlock()

	if raw, ok := s.options[key]; ok {
		return parse(raw)
	}
	if len(fallback) > 0 {
		return fallback[0], nil
	}
	var zero T
	return zero, ErrMissingOption(s.name, option)
}

// Get returns the raw string value.
func (s *Section) Get(option string, fallback ...string) (string, error) {
	return lookup(s, option, fallback, func(raw string) (string, error) {
		return raw, nil
	})
}

// GetFloat returns a finite number.
func (s *Section) GetFloat(option string, fallback ...float64) (float64, error) {
	return lookup(s, option, fallback, func(raw string) (float64, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, ErrInvalidValue(s.name, option, raw, "a finite number")
		}
		return f, nil
	})
}

// Bound is a constraint on a number. It returns the violated condition,
// or "" when v satisfies it.
type Bound func(v float64) string

// AtLeast requires v >= min.
func AtLeast(min float64) Bound {
	return func(v float64) string {
		if v < min {
			return "must be at least " + formatBound(min)
		}
		return ""
	}
}

// AtMost requires v <= max.
func AtMost(max float64) Bound {
	return func(v float64) string {
		if v > max {
			return "must be at most " + formatBound(max)
		}
		return ""
	}
}

// Above requires v > min.
func Above(min float64) Bound {
	return func(v float64) string {
		if v <= min {
			return "must be above " + formatBound(min)
		}
		return ""
	}
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// GetFloatIn returns a number that satisfies every bound, defaulting to
// fallback. The fallback itself is not checked.
func (s *Section) GetFloatIn(option string, fallback float64, bounds ...Bound) (float64, error) {
	if !s.HasOption(option) {
		return s.GetFloat(option, fallback)
	}
	v, err := s.GetFloat(option)
	if err != nil {
		return 0, err
	}
	for _, b := range bounds {
		if msg := b(v); msg != "" {
			return 0, ErrOutOfRange(s.name, option, v, msg)
		}
	}
	return v, nil
}

// GetBool accepts 1/0, true/false, yes/no and on/off.
func (s *Section) GetBool(option string, fallback ...bool) (bool, error) {
	return lookup(s, option, fallback, func(raw string) (bool, error) {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "1", "true", "yes", "on":
			return true, nil
		case "0", "false", "no", "off":
			return false, nil
		}
		return false, ErrInvalidValue(s.name, option, raw, "a boolean")
	})
}

// GetChoice returns the choice matching the value case-insensitively, in
// the spelling given by choices.
func (s *Section) GetChoice(option string, choices []string, fallback ...string) (string, error) {
	v, err := s.Get(option, fallback...)
	if err != nil {
		return "", err
	}
	for _, c := range choices {
		if strings.EqualFold(strings.TrimSpace(v), c) {
			return c, nil
		}
	}
	return "", ErrInvalidChoice(s.name, option, v, choices)
}

// GetList splits the value on sep, trimming items and dropping empty ones.
func (s *Section) GetList(option, sep string, fallback ...[]string) ([]string, error) {
	return lookup(s, option, fallback, func(raw string) ([]string, error) {
		out := []string{}
		for _, item := range strings.Split(raw, sep) {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	})
}
