package filtermap

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/beanpipe/beanpipe/ast"
)

// operation is one fully resolved apply entry: its compiled filters and the
// actions to run on every matching transaction.
type operation struct {
	directive *ast.Custom

	timeRange *timeRange
	account   *regexp.Regexp
	pattern   *regexp.Regexp

	addTags      []ast.Tag
	addMeta      []*ast.Metadata
	setPayee     string
	setNarration string

	applied int
}

func newOperation(directive *ast.Custom, params parameters) (*operation, error) {
	op := &operation{directive: directive}

	if spec, ok := params["time"]; ok {
		r, err := parseTimeSpec(spec)
		if err != nil {
			return nil, err
		}
		op.timeRange = r
	}
	if spec, ok := params["account"]; ok {
		re, err := regexp.Compile(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid account pattern %q: %w", spec, err)
		}
		op.account = re
	}
	if spec, ok := params["filter"]; ok {
		re, err := regexp.Compile(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", spec, err)
		}
		op.pattern = re
	}

	if spec, ok := params["addTags"]; ok {
		for _, name := range strings.Fields(strings.ReplaceAll(spec, "#", "")) {
			op.addTags = append(op.addTags, ast.Tag(name))
		}
	}
	if spec, ok := params["addMeta"]; ok {
		meta, err := parseMetaMapping(spec)
		if err != nil {
			return nil, err
		}
		op.addMeta = meta
	}
	op.setPayee = params["setPayee"]
	op.setNarration = params["setNarration"]

	return op, nil
}

func (op *operation) matches(txn *ast.Transaction) bool {
	if op.timeRange != nil && !op.timeRange.contains(txn.Dated) {
		return false
	}

	if op.account != nil {
		matched := false
		for _, posting := range txn.Postings {
			if op.account.MatchString(string(posting.Account)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if op.pattern != nil {
		matched := op.pattern.MatchString(txn.Payee) || op.pattern.MatchString(txn.Narration)
		for _, tag := range txn.Tags {
			if matched {
				break
			}
			matched = op.pattern.MatchString(string(tag))
		}
		if !matched {
			return false
		}
	}

	return true
}

func (op *operation) apply(txn *ast.Transaction) {
	op.applied++

	for _, tag := range op.addTags {
		if !txn.HasTag(tag) {
			txn.Tags = append(txn.Tags, tag)
		}
	}
	txn.AddMetadata(op.addMeta...)

	if op.setPayee != "" {
		txn.Payee = applySetAction(op.setPayee, txn.Payee)
	}
	if op.setNarration != "" {
		txn.Narration = applySetAction(op.setNarration, txn.Narration)
	}
}

// timeRange is a half-open [begin, end) window of dates.
type timeRange struct {
	begin time.Time
	end   time.Time
}

func (r *timeRange) contains(date *ast.Date) bool {
	if date.IsZero() {
		return false
	}
	return !date.Before(r.begin) && date.Before(r.end)
}

// parseTimeSpec parses a time filter: a single period ("2023", "2023-06",
// "2023-06-15") or a range of two periods joined by " - ", spanning from the
// start of the first to the end of the second.
func parseTimeSpec(spec string) (*timeRange, error) {
	spec = strings.TrimSpace(spec)

	if left, right, isRange := strings.Cut(spec, " - "); isRange {
		begin, _, err := parsePeriod(strings.TrimSpace(left))
		if err != nil {
			return nil, err
		}
		_, end, err := parsePeriod(strings.TrimSpace(right))
		if err != nil {
			return nil, err
		}
		if !begin.Before(end) {
			return nil, fmt.Errorf("empty time range %q", spec)
		}
		return &timeRange{begin: begin, end: end}, nil
	}

	begin, end, err := parsePeriod(spec)
	if err != nil {
		return nil, err
	}
	return &timeRange{begin: begin, end: end}, nil
}

// parsePeriod returns the [begin, end) window covered by a year, month, or
// day specification.
func parsePeriod(spec string) (time.Time, time.Time, error) {
	switch len(spec) {
	case 4:
		begin, err := time.Parse("2006", spec)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid time period %q", spec)
		}
		return begin, begin.AddDate(1, 0, 0), nil
	case 7:
		begin, err := time.Parse("2006-01", spec)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid time period %q", spec)
		}
		return begin, begin.AddDate(0, 1, 0), nil
	case 10:
		begin, err := time.Parse("2006-01-02", spec)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid time period %q", spec)
		}
		return begin, begin.AddDate(0, 0, 1), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("invalid time period %q", spec)
	}
}
