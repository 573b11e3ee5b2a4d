// Package match evaluates routing rule conditions against pull request
// attributes. All evaluators are pure: they never mutate their inputs and
// never fail. An unusable condition (bad regex, unknown timezone) degrades
// to a non-match.
package match

import (
	"regexp"
	"strings"
	"time"

	ruleModel "github.com/reviewflow/reviewflow/internal/rule/model"
)

// Context carries the pull request attributes conditions are tested against.
type Context struct {
	Author       string
	ChangedFiles []string
	HeadBranch   string
	BaseBranch   string
	Labels       []string
	// Now is the evaluation instant for time_window conditions.
	Now time.Time
}

// ConditionResult records the outcome of one condition for diagnostics.
type ConditionResult struct {
	Type    string
	Matched bool
}

// Result is the outcome of evaluating a rule's condition list.
type Result struct {
	Matched    bool
	Conditions []ConditionResult
}

// Evaluate tests all conditions against the context with AND semantics,
// short-circuiting on the first failure. An empty condition list matches.
func Evaluate(conditions []ruleModel.Condition, prCtx Context) Result {
	result := Result{Matched: true}

	for _, cond := range conditions {
		matched := evaluateCondition(cond, prCtx)
		result.Conditions = append(result.Conditions, ConditionResult{
			Type:    cond.Type,
			Matched: matched,
		})
		if !matched {
			result.Matched = false
			break
		}
	}

	return result
}

// evaluateCondition dispatches on the condition type tag. Unknown types do
// not match.
func evaluateCondition(cond ruleModel.Condition, prCtx Context) bool {
	switch cond.Type {
	case ruleModel.ConditionFilePattern:
		return evaluateFilePattern(cond, prCtx.ChangedFiles)
	case ruleModel.ConditionAuthor:
		return evaluateAuthor(cond, prCtx.Author)
	case ruleModel.ConditionBranch:
		return evaluateBranch(cond, prCtx.HeadBranch, prCtx.BaseBranch)
	case ruleModel.ConditionLabel:
		return evaluateLabel(cond, prCtx.Labels)
	case ruleModel.ConditionTimeWindow:
		return evaluateTimeWindow(cond, prCtx.Now)
	default:
		return false
	}
}

// evaluateFilePattern tests changed file paths against regex patterns.
// "any" requires at least one file to match at least one pattern; "all"
// requires every changed file to match at least one pattern.
func evaluateFilePattern(cond ruleModel.Condition, files []string) bool {
	if len(files) == 0 || len(cond.Patterns) == 0 {
		return false
	}

	compiled := compilePatterns(cond.Patterns)
	if len(compiled) == 0 {
		return false
	}

	if cond.MatchMode == ruleModel.MatchAll {
		for _, file := range files {
			if !anyPatternMatches(compiled, file) {
				return false
			}
		}
		return true
	}

	for _, file := range files {
		if anyPatternMatches(compiled, file) {
			return true
		}
	}
	return false
}

// evaluateAuthor tests PR author membership in a username list,
// case-insensitively. "exclude" inverts the test.
func evaluateAuthor(cond ruleModel.Condition, author string) bool {
	present := false
	for _, username := range cond.Usernames {
		if strings.EqualFold(username, author) {
			present = true
			break
		}
	}

	if cond.Mode == ruleModel.ModeExclude {
		return !present
	}
	return present
}

// evaluateBranch tests the head or base branch name against regex patterns;
// any match wins.
func evaluateBranch(cond ruleModel.Condition, headBranch, baseBranch string) bool {
	branch := headBranch
	if cond.Target == ruleModel.TargetBase {
		branch = baseBranch
	}

	compiled := compilePatterns(cond.Patterns)
	return anyPatternMatches(compiled, branch)
}

// evaluateLabel tests PR labels against a required label list,
// case-insensitively. "any" requires overlap; "all" requires every required
// label to be present on the PR.
func evaluateLabel(cond ruleModel.Condition, prLabels []string) bool {
	if len(cond.Labels) == 0 {
		return false
	}

	has := func(label string) bool {
		for _, prLabel := range prLabels {
			if strings.EqualFold(prLabel, label) {
				return true
			}
		}
		return false
	}

	if cond.MatchMode == ruleModel.MatchAll {
		for _, label := range cond.Labels {
			if !has(label) {
				return false
			}
		}
		return true
	}

	for _, label := range cond.Labels {
		if has(label) {
			return true
		}
	}
	return false
}

// evaluateTimeWindow tests whether now, converted to the condition's
// timezone, falls on a configured weekday and within [start_hour, end_hour).
// Windows where start_hour > end_hour wrap past midnight. Unresolvable
// timezones fall back to UTC.
func evaluateTimeWindow(cond ruleModel.Condition, now time.Time) bool {
	loc := time.UTC
	if cond.Timezone != "" {
		if parsed, err := time.LoadLocation(cond.Timezone); err == nil {
			loc = parsed
		}
	}

	local := now.In(loc)

	if len(cond.Weekdays) > 0 {
		weekday := int(local.Weekday())
		found := false
		for _, day := range cond.Weekdays {
			if day == weekday {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	hour := local.Hour()
	start, end := cond.StartHour, cond.EndHour
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	// Wrap-around window, e.g. 22:00-06:00.
	return hour >= start || hour < end
}

// compilePatterns compiles pattern strings, dropping ones that do not parse.
func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

func anyPatternMatches(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
