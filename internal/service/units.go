package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	floorSpec = regexp.MustCompile(`^(?:floor|andar|piso)\s*(\d{1,2})$`)
	rangeSpec = regexp.MustCompile(`^(\d{1,6})\s*-\s*(\d{1,6})$`)
)

const maxUnitLabel = 20

// ParseUnits expands a location specification into unit labels. Accepted forms:
// a single label ("101" or "Garage"), a comma list ("101, 102, 205"), a numeric
// range ("101-105") and a whole floor ("floor 2" gives 201..2NN). "skip" yields
// one unlabelled unit. Ranges inside a list are expanded too.
func ParseUnits(spec string, maxSpan, unitsPerFloor int) ([]string, error) {
	spec = strings.TrimSpace(spec)
	lower := strings.ToLower(spec)
	if spec == "" {
		return nil, invalid("location", "validation.location_empty")
	}
	if isSkip(lower) {
		return []string{""}, nil
	}

	if m := floorSpec.FindStringSubmatch(lower); m != nil {
		if unitsPerFloor > maxSpan {
			return nil, invalid("location", "validation.location_too_many", map[string]any{"Max": maxSpan})
		}
		floor, _ := strconv.Atoi(m[1])
		units := make([]string, 0, unitsPerFloor)
		for i := 1; i <= unitsPerFloor; i++ {
			units = append(units, fmt.Sprintf("%d%02d", floor, i))
		}
		return units, nil
	}

	var units []string
	seen := map[string]bool{}
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		expanded, err := expandToken(tok, maxSpan)
		if err != nil {
			return nil, err
		}
		for _, u := range expanded {
			if !seen[u] {
				seen[u] = true
				units = append(units, u)
			}
		}
		if len(units) > maxSpan {
			return nil, invalid("location", "validation.location_too_many", map[string]any{"Max": maxSpan})
		}
	}
	if len(units) == 0 {
		return nil, invalid("location", "validation.location_empty")
	}
	return units, nil
}

func expandToken(tok string, maxSpan int) ([]string, error) {
	m := rangeSpec.FindStringSubmatch(tok)
	if m == nil {
		if len(tok) > maxUnitLabel {
			return nil, invalid("location", "validation.location_label_long", map[string]any{"Max": maxUnitLabel})
		}
		return []string{tok}, nil
	}

	first, _ := strconv.Atoi(m[1])
	last, _ := strconv.Atoi(m[2])
	if last < first {
		return nil, invalid("location", "validation.location_range_order")
	}
	if last-first+1 > maxSpan {
		return nil, invalid("location", "validation.location_too_many", map[string]any{"Max": maxSpan})
	}
	width := 0
	if strings.HasPrefix(m[1], "0") {
		width = len(m[1])
	}
	units := make([]string, 0, last-first+1)
	for n := first; n <= last; n++ {
		units = append(units, fmt.Sprintf("%0*d", width, n))
	}
	return units, nil
}

// FloorOf derives the floor from a numeric unit label: 305 is on floor 3 and
// 12 on floor 0. Non-numeric labels return -1.
func FloorOf(unit string) int {
	n, err := strconv.Atoi(unit)
	if err != nil || n < 0 {
		return -1
	}
	if len(unit) < 3 {
		return 0
	}
	return n / 100
}

// ParseDeadline accepts DD/MM/YYYY, YYYY-MM-DD or a skip word, which gives nil.
// Dates before today are rejected.
func ParseDeadline(text string, now time.Time, loc *time.Location) (*time.Time, error) {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	if isSkip(lower) || lower == "none" || lower == "sem prazo" {
		return nil, nil
	}

	var (
		d   time.Time
		err error
	)
	for _, layout := range []string{"02/01/2006", "2/1/2006", time.DateOnly} {
		d, err = time.ParseInLocation(layout, text, loc)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, invalid("deadline", "validation.deadline_format")
	}
	if d.Before(dayStart(now, loc)) {
		return nil, invalid("deadline", "validation.deadline_past")
	}
	return &d, nil
}

func isSkip(lower string) bool {
	switch lower {
	case "skip", "pular", "-":
		return true
	}
	return false
}
