package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gcode-inject/pkg/errors"
)

// Config provides access to a configuration file with access tracking.
type Config struct {
	mu       sync.RWMutex
	sections map[string]*Section
	order    []string // Maintains section order

	// Access tracking for sections
	accessedSections map[string]struct{}
}

// New creates a new empty Config.
func New() *Config {
	return &Config{
		sections:         make(map[string]*Section),
		accessedSections: make(map[string]struct{}),
	}
}

// Load reads a configuration file and returns a Config. Files ending in
// .yaml or .yml are read as YAML profiles with top-level scalars placed in
// defaultSection; everything else uses the INI dialect, which supports
// [include path] directives.
func Load(path, defaultSection string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigSection, "unable to open "+path)
		}
		return LoadYAML(data, defaultSection)
	}

	c := New()
	visited := make(map[string]bool)
	if err := c.parseFile(path, visited); err != nil {
		return nil, err
	}
	return c, nil
}

// parseFile parses a config file and handles include directives.
func (c *Config) parseFile(path string, visited map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfigSection, "invalid path "+path)
	}

	// Check for recursive includes
	if visited[abs] {
		return errors.New(errors.ErrConfigSection, "recursive include: "+path)
	}
	visited[abs] = true
	defer func() { visited[abs] = false }()

	f, err := os.Open(abs)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfigSection, "unable to open "+path)
	}
	defer f.Close()

	include := func(pattern string) error {
		glob := filepath.Join(filepath.Dir(abs), pattern)
		matches, err := filepath.Glob(glob)
		if err != nil {
			return errors.Wrap(err, errors.ErrConfigSection, fmt.Sprintf("invalid include pattern %q", pattern))
		}
		sort.Strings(matches)
		if len(matches) == 0 && !hasGlobMeta(glob) {
			return errors.New(errors.ErrConfigSection, "include file does not exist: "+glob)
		}
		for _, m := range matches {
			if err := c.parseFile(m, visited); err != nil {
				return err
			}
		}
		return nil
	}
	return c.parse(f, path, include)
}

// hasGlobMeta returns true if the path contains glob metacharacters.
func hasGlobMeta(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

// LoadString parses a configuration from a string. Include directives are
// rejected since there is no directory to resolve them against.
func LoadString(data string) (*Config, error) {
	c := New()
	noInclude := func(pattern string) error {
		return errors.New(errors.ErrConfigSection, "include not supported here: "+pattern)
	}
	if err := c.parse(strings.NewReader(data), "<string>", noInclude); err != nil {
		return nil, err
	}
	return c, nil
}

// parse reads the INI dialect: [section] headers, "key: value" or
// "key = value" options, indented continuation lines, and "#" or ";"
// comments. Only "#" starts a trailing comment.
func (c *Config) parse(r io.Reader, name string, include func(pattern string) error) error {
	var (
		currentSection string
		currentOptions map[string]string
		lastKey        string
	)
	flush := func() {
		if currentSection != "" {
			c.addSection(currentSection, currentOptions)
		}
		currentSection, currentOptions, lastKey = "", nil, ""
	}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if line == "" {
			continue
		}

		// Indented lines continue the previous option's value verbatim, so
		// multi-line templates may hold ";" comments.
		if lastKey != "" && (raw[0] == ' ' || raw[0] == '\t') {
			if currentOptions[lastKey] == "" {
				currentOptions[lastKey] = line
			} else {
				currentOptions[lastKey] += "\n" + line
			}
			continue
		}

		if line[0] == '#' || line[0] == ';' {
			continue
		}
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
			if line == "" {
				continue
			}
		}

		// Section header
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			flush()

			header := strings.TrimSpace(line[1 : len(line)-1])
			if header == "" {
				return errors.New(errors.ErrConfigSection,
					fmt.Sprintf("empty section header at line %d in %s", lineNum, name))
			}

			if strings.HasPrefix(header, "include ") {
				pattern := strings.TrimSpace(header[8:])
				if pattern == "" {
					return errors.New(errors.ErrConfigSection,
						fmt.Sprintf("empty include at line %d in %s", lineNum, name))
				}
				if err := include(pattern); err != nil {
					return err
				}
				continue
			}

			currentSection = header
			currentOptions = make(map[string]string)
			continue
		}

		// Skip options before first section
		if currentSection == "" {
			continue
		}

		key, value, ok := splitOption(line)
		if !ok {
			return errors.New(errors.ErrConfigOption,
				fmt.Sprintf("malformed line %d in %s: %q", lineNum, name, line))
		}
		currentOptions[key] = value
		lastKey = key
	}
	flush()

	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, errors.ErrConfigSection, "error reading "+name)
	}
	return nil
}

// splitOption splits on whichever of ':' and '=' comes first.
func splitOption(line string) (string, string, bool) {
	idx := strings.IndexAny(line, ":=")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.ToLower(strings.TrimSpace(line[:idx]))
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}

// addSection adds a section to the config.
func (c *Config) addSection(name string, options map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// If section already exists, merge options
	if existing, ok := c.sections[name]; ok {
		for k, v := range options {
			existing.options[strings.ToLower(k)] = v
		}
		return
	}

	c.sections[name] = newSection(name, options)
	c.order = append(c.order, name)
}

// GetSection returns a Section by name, or error if not found.
func (c *Config) GetSection(name string) (*Section, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sec, ok := c.sections[name]
	if !ok {
		return nil, ErrMissingSection(name)
	}
	c.accessedSections[name] = struct{}{}
	return sec, nil
}

// GetSectionOptional returns a Section if it exists, or nil if not.
func (c *Config) GetSectionOptional(name string) *Section {
	c.mu.Lock()
	defer c.mu.Unlock()

	sec, ok := c.sections[name]
	if ok {
		c.accessedSections[name] = struct{}{}
	}
	return sec
}

// HasSection checks if a section exists.
func (c *Config) HasSection(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sections[name]
	return ok
}

// GetSectionNames returns all section names in order.
func (c *Config) GetSectionNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]string, len(c.order))
	copy(result, c.order)
	return result
}

// GetPrefixSections returns all sections that start with the given prefix.
func (c *Config) GetPrefixSections(prefix string) []*Section {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result []*Section
	for _, name := range c.order {
		if strings.HasPrefix(name, prefix) {
			result = append(result, c.sections[name])
			c.accessedSections[name] = struct{}{}
		}
	}
	return result
}

// GetUnusedSections returns a list of sections that were not accessed.
func (c *Config) GetUnusedSections() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []string
	for name := range c.sections {
		if _, ok := c.accessedSections[name]; !ok {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}

// CheckUnusedOptions returns an error if any section has unused options.
func (c *Config) CheckUnusedOptions() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var problems []string
	for name, sec := range c.sections {
		unused := sec.GetUnusedOptions()
		if len(unused) > 0 {
			sort.Strings(unused)
			problems = append(problems, fmt.Sprintf("[%s]: unused options %v", name, unused))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return errors.New(errors.ErrConfigOption, strings.Join(problems, "; "))
	}
	return nil
}

// Merge combines another Config into this one.
// Sections and options from other override this Config.
func (c *Config) Merge(other *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	other.mu.RLock()
	defer other.mu.RUnlock()

	for _, name := range other.order {
		otherSec := other.sections[name]
		if existing, ok := c.sections[name]; ok {
			for k, v := range otherSec.options {
				existing.options[k] = v
			}
			continue
		}
		c.sections[name] = newSection(name, otherSec.options)
		c.order = append(c.order, name)
	}
}
