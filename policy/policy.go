// Package policy decides which functions and source files are
// eligible for mutation, based on allowlists of regular expressions.
package policy

import (
	"regexp"

	"github.com/lwagner94/wasmut-sub000/config"
)

// regexList is a set of compiled patterns; Any reports whether at
// least one matches the given name.
type regexList struct {
	patterns []*regexp.Regexp
}

func compileList(patterns []string) (regexList, error) {
	var list regexList
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return regexList{}, err
		}
		list.patterns = append(list.patterns, re)
	}
	return list, nil
}

func (l regexList) any(name string) bool {
	for _, re := range l.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// MutationPolicy decides, for a given source file and function name,
// whether a candidate mutation location there is in scope.
type MutationPolicy struct {
	allowedFunctions regexList
	allowedFiles     regexList
}

// Builder incrementally assembles a MutationPolicy.
type Builder struct {
	functions []string
	files     []string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AllowFunction adds a function-name pattern to the allowlist.
func (b *Builder) AllowFunction(pattern string) *Builder {
	b.functions = append(b.functions, pattern)
	return b
}

// AllowFile adds a file-path pattern to the allowlist.
func (b *Builder) AllowFile(pattern string) *Builder {
	b.files = append(b.files, pattern)
	return b
}

// Build compiles every registered pattern into a MutationPolicy.
func (b *Builder) Build() (*MutationPolicy, error) {
	functions, err := compileList(b.functions)
	if err != nil {
		return nil, err
	}
	files, err := compileList(b.files)
	if err != nil {
		return nil, err
	}
	return &MutationPolicy{allowedFunctions: functions, allowedFiles: files}, nil
}

// FromConfig builds the MutationPolicy a configuration's filter
// section describes: AllowAll when neither allowlist is set, else the
// compiled file/function patterns.
func FromConfig(cfg *config.Config) (*MutationPolicy, error) {
	filter := cfg.FilterOrDefault()
	if len(filter.AllowedFunctions) == 0 && len(filter.AllowedFiles) == 0 {
		return AllowAll(), nil
	}

	b := NewBuilder()
	for _, f := range filter.AllowedFunctions {
		b.AllowFunction(f)
	}
	for _, f := range filter.AllowedFiles {
		b.AllowFile(f)
	}
	return b.Build()
}

// AllowAll returns a policy that matches every function and file, by
// registering the empty-string pattern, which matches any string.
func AllowAll() *MutationPolicy {
	p, err := NewBuilder().AllowFunction("").AllowFile("").Build()
	if err != nil {
		// The empty pattern always compiles.
		panic(err)
	}
	return p
}

// CheckFunction reports whether name is permitted by the function
// allowlist.
func (p *MutationPolicy) CheckFunction(name string) bool {
	return p.allowedFunctions.any(name)
}

// CheckFile reports whether name is permitted by the file allowlist.
func (p *MutationPolicy) CheckFile(name string) bool {
	return p.allowedFiles.any(name)
}

// Check reports whether a candidate mutation location at the given
// file and function is in scope. An empty/unknown file or function
// name (no debug information resolved it) is treated as always
// in-scope, since there is nothing more specific to filter against.
func (p *MutationPolicy) Check(file string, hasFile bool, function string, hasFunction bool) bool {
	if hasFile && !p.CheckFile(file) {
		return false
	}
	if hasFunction && !p.CheckFunction(function) {
		return false
	}
	return true
}
