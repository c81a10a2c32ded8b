package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var timeParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseAt reads an --at value: RFC 3339 or natural language such as
// "yesterday 8am" or "2 hours ago". An empty value means now and yields nil.
func parseAt(text string, now time.Time) (*time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return &t, nil
	}

	r, err := timeParser.Parse(text, now)
	if err != nil {
		return nil, fmt.Errorf("parse time %q: %w", text, err)
	}
	if r == nil {
		return nil, fmt.Errorf("could not understand time %q", text)
	}
	if r.Time.After(now) {
		return nil, fmt.Errorf("time %q is in the future", text)
	}
	t := r.Time
	return &t, nil
}
