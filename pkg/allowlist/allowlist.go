// Package allowlist decides which tenant API URLs may register the app.
package allowlist

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/open-policy-agent/opa/rego"
	"gopkg.in/yaml.v3"
)

// Rule allows an API URL.
type Rule interface {
	Allows(ctx context.Context, apiURL string) bool
}

// Exact allows a single API URL.
type Exact string

func (e Exact) Allows(_ context.Context, apiURL string) bool { return string(e) == apiURL }

// Func adapts a predicate.
type Func func(apiURL string) bool

func (f Func) Allows(_ context.Context, apiURL string) bool { return f(apiURL) }

// Prefix allows every API URL starting with the given string.
func Prefix(p string) Rule {
	return Func(func(apiURL string) bool { return strings.HasPrefix(apiURL, p) })
}

// RegoQuery is the rule evaluated in Rego modules. The input document is
// {"api_url": "<url>"}.
const RegoQuery = "data.holiapp.allow.allow"

// RegoRule evaluates a Rego module; the URL is allowed when the query
// yields true. Evaluation errors deny.
type RegoRule struct {
	query rego.PreparedEvalQuery
}

func NewRegoRule(ctx context.Context, module string) (*RegoRule, error) {
	pq, err := rego.New(
		rego.Query(RegoQuery),
		rego.Module("allow.rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("allowlist: compile rego: %w", err)
	}
	return &RegoRule{query: pq}, nil
}

func (r *RegoRule) Allows(ctx context.Context, apiURL string) bool {
	rs, err := r.query.Eval(ctx, rego.EvalInput(map[string]any{"api_url": apiURL}))
	if err != nil {
		return false
	}
	return rs.Allowed()
}

// Validate reports whether apiURL is allowed. No rules allows everything;
// otherwise any single matching rule is enough.
func Validate(ctx context.Context, apiURL string, rules []Rule) bool {
	if len(rules) == 0 {
		return true
	}
	for _, r := range rules {
		if r != nil && r.Allows(ctx, apiURL) {
			return true
		}
	}
	return false
}

// File is the YAML layout read by LoadFile:
//
//	exact:
//	  - https://shop.example.com/graphql/
//	prefixes:
//	  - https://staging.
//	rego: |
//	  package holiapp.allow
//	  default allow = false
//	  allow { endswith(input.api_url, ".example.com/graphql/") }
type File struct {
	Exact    []string `yaml:"exact"`
	Prefixes []string `yaml:"prefixes"`
	Rego     string   `yaml:"rego"`
}

// Rules builds the rules described by f.
func (f File) Rules(ctx context.Context) ([]Rule, error) {
	var out []Rule
	for _, e := range f.Exact {
		out = append(out, Exact(e))
	}
	for _, p := range f.Prefixes {
		out = append(out, Prefix(p))
	}
	if strings.TrimSpace(f.Rego) != "" {
		r, err := NewRegoRule(ctx, f.Rego)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// LoadFile parses the YAML rule file at path.
func LoadFile(ctx context.Context, path string) ([]Rule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("allowlist: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("allowlist: decode %s: %w", path, err)
	}
	return f.Rules(ctx)
}

// FromConfig merges exact URLs from the environment with the optional rule file.
func FromConfig(ctx context.Context, exact []string, file string) ([]Rule, error) {
	var out []Rule
	for _, e := range exact {
		out = append(out, Exact(e))
	}
	if file == "" {
		return out, nil
	}
	fromFile, err := LoadFile(ctx, file)
	if err != nil {
		return nil, err
	}
	return append(out, fromFile...), nil
}
