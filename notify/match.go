// Package notify is the notification routing and delivery subsystem:
// a pure pattern matcher deciding which log events are relevant to
// which outbound channel, and queue-backed channels that deliver
// matched events to external destinations with per-channel rate
// limiting and failure isolation.
package notify

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/wb-go/wbf/zlog"

	logvault "github.com/dm112-tadbox/log-vault"
)

// MessageMatcher tests the stringified event message.
type MessageMatcher interface {
	MatchMessage(s string) bool
}

type regexpMatcher struct{ re *regexp.Regexp }

func (m regexpMatcher) MatchMessage(s string) bool { return m.re.MatchString(s) }

type substringMatcher string

func (m substringMatcher) MatchMessage(s string) bool { return strings.Contains(s, string(m)) }

// Regex matches the message against a compiled regular expression.
func Regex(re *regexp.Regexp) MessageMatcher { return regexpMatcher{re: re} }

// Substring matches messages containing the literal substring.
func Substring(s string) MessageMatcher { return substringMatcher(s) }

// Expr compiles expr and returns a regex matcher, mirroring the
// common case of a pattern written as a plain string.
func Expr(expr string) (MessageMatcher, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return regexpMatcher{re: re}, nil
}

// Condition is one side of a pattern: meta equality plus an optional
// message matcher.
type Condition struct {
	Meta    logvault.Meta
	Message MessageMatcher
}

// MatchPattern is a declarative filter attached to a channel. Within
// one pattern, Level, Match and Exclude are ANDed, except that a
// matching Exclude rejects the pattern outright. Patterns are
// immutable once handed to a channel.
type MatchPattern struct {
	// Level, when set, must equal the event's level exactly. No
	// threshold semantics.
	Level logvault.Level
	// Match must hold in full: every meta key equal, message matching.
	Match *Condition
	// Exclude wins over Match: a single meta coincidence or a message
	// hit discards the event for this pattern.
	Exclude *Condition
}

// Matches reports whether the event is relevant per the pattern list.
// An empty list matches everything; otherwise any one matching pattern
// suffices. The matcher is a filter, not a critical path: it never
// panics out, a broken pattern simply does not match.
func Matches(event logvault.LogEvent, patterns []MatchPattern) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if matchOne(event, p) {
			return true
		}
	}
	return false
}

func matchOne(event logvault.LogEvent, p MatchPattern) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Logger.Error().Interface("panic", r).Msg("recovered panic during pattern evaluation")
			matched = false
		}
	}()

	if p.Exclude != nil {
		if anyMetaEqual(p.Exclude.Meta, event.Meta) {
			return false
		}
		if p.Exclude.Message != nil && messageMatches(p.Exclude.Message, event.Message) {
			return false
		}
	}

	if p.Level != "" && event.Level != p.Level {
		return false
	}

	if p.Match != nil {
		if !allMetaEqual(p.Match.Meta, event.Meta) {
			return false
		}
		if p.Match.Message != nil && !messageMatches(p.Match.Message, event.Message) {
			return false
		}
	}

	return true
}

// anyMetaEqual reports whether any key of want has an equal value in
// got. A single coincidence is enough (exclusion semantics).
func anyMetaEqual(want, got logvault.Meta) bool {
	for k, v := range want {
		if gv, ok := got[k]; ok && gv == v {
			return true
		}
	}
	return false
}

// allMetaEqual reports whether every key of want has an equal value in
// got. A missing key rejects.
func allMetaEqual(want, got logvault.Meta) bool {
	for k, v := range want {
		gv, ok := got[k]
		if !ok || gv != v {
			return false
		}
	}
	return true
}

func messageMatches(m MessageMatcher, message any) bool {
	s, err := stringifyMessage(message)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to stringify message for matching")
		return false
	}
	// An absent message never satisfies a message requirement.
	if s == "" {
		return false
	}
	return m.MatchMessage(s)
}

// stringifyMessage passes strings through and serializes everything
// else to stable JSON before matching.
func stringifyMessage(message any) (string, error) {
	if message == nil {
		return "", nil
	}
	if s, ok := message.(string); ok {
		return s, nil
	}
	body, err := json.Marshal(message)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
