// Package invocation extracts tool-invocation requests from model output.
// The wire protocol is tag markers: a model requests a tool by writing
// <tool_name>input</tool_name> in its reply.
package invocation

import (
	"regexp"

	"github.com/parleyhq/parley/tools"
)

// Invocation is one parsed request: which tool, and the raw text between
// the markers. Invocations live only for the turn that parsed them.
type Invocation struct {
	ToolName  string
	ToolInput string
}

// Find extracts every invocation of the configured tools from a completion.
// Tools are scanned one at a time, in configured order, and the result
// keeps that grouping: all matches for the first tool, then all matches for
// the second, and so on, regardless of where the markers sit in the text.
// Execution order therefore follows tool configuration, not text position.
// Markers naming an unconfigured tool are invisible. Marker bodies may span
// multiple lines; matching is non-greedy so back-to-back markers of the
// same tool stay separate.
func Find(completion string, active []tools.Tool) []Invocation {
	var found []Invocation
	for _, t := range active {
		name := regexp.QuoteMeta(t.Name())
		re := regexp.MustCompile("(?s)<" + name + ">(.*?)</" + name + ">")
		for _, match := range re.FindAllStringSubmatch(completion, -1) {
			found = append(found, Invocation{ToolName: t.Name(), ToolInput: match[1]})
		}
	}
	return found
}
