// SPDX-License-Identifier: AGPL-3.0-or-later

// Package redact strips sensitive material from diff text before it is sent
// anywhere near an exam backend or persisted in a transcript.
package redact

import (
	"fmt"
	"regexp"

	"github.com/bartekus/gitexam/internal/policy"
)

// Placeholder replaces every match. It intentionally matches none of the
// built-in patterns so a second pass produces zero new hits.
const Placeholder = "[REDACTED]"

// Hit reports one pattern that matched at least once, in application order.
type Hit struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Count   int    `json:"count" yaml:"count"`
}

type namedPattern struct {
	name string
	re   *regexp.Regexp
}

// Conservative built-ins, applied before any policy-supplied patterns.
var builtins = []namedPattern{
	{"private_key_block", regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`)},
	{"aws_access_key_id", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"github_pat", regexp.MustCompile(`ghp_[A-Za-z0-9]{20,}`)},
	{"bearer_token", regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-\._=]+`)},
}

// Diff applies the built-in patterns plus the policy's custom patterns, in
// declaration order. An invalid custom pattern is a configuration error; it
// aborts before any replacement happens.
func Diff(p policy.Policy, diff string) (string, []Hit, error) {
	patterns := make([]namedPattern, 0, len(builtins)+len(p.Redactions))
	patterns = append(patterns, builtins...)
	for i, pat := range p.Redactions {
		re, err := regexp.Compile(pat)
		if err != nil {
			return "", nil, fmt.Errorf("invalid redaction pattern %d (%q): %w", i, pat, err)
		}
		patterns = append(patterns, namedPattern{fmt.Sprintf("policy_redaction_%d", i), re})
	}

	redacted := diff
	var hits []Hit
	for _, np := range patterns {
		count := 0
		redacted = np.re.ReplaceAllStringFunc(redacted, func(string) string {
			count++
			return Placeholder
		})
		if count > 0 {
			hits = append(hits, Hit{Pattern: np.name, Count: count})
		}
	}
	return redacted, hits, nil
}
