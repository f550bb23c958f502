package mlflowtest

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// A subset of the MLflow search syntax: clauses joined by AND comparing
// metrics, params, tags or attributes with a literal.

////////////////////////////////////////////////////////////////////////////////
// TYPES

type clause struct {
	entity string
	key    string
	op     string
	text   string
	number float64
	// numeric is set when the literal is a number rather than a quoted string
	numeric bool
	like    *regexp.Regexp
}

type orderClause struct {
	entity string
	key    string
	desc   bool
}

// value is what an entity resolves to when a clause is evaluated
type value struct {
	text    string
	number  float64
	numeric bool
}

// lookup resolves entity.key on the item being filtered
type lookup func(entity, key string) (value, bool)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

var (
	reAnd     = regexp.MustCompile(`(?i)\s+and\s+`)
	reClause  = regexp.MustCompile("^\\s*(?:([A-Za-z_]+)\\.)?(`[^`]+`|[\\w.\\-]+)\\s*(<=|>=|!=|=|<|>|(?i:ilike|like))\\s*(.+?)\\s*$")
	reOrderBy = regexp.MustCompile("^\\s*(?:([A-Za-z_]+)\\.)?(`[^`]+`|[\\w.\\-]+)(?:\\s+(?i:(asc|desc)))?\\s*$")
)

var entities = map[string]string{
	"metric":     "metrics",
	"metrics":    "metrics",
	"param":      "params",
	"params":     "params",
	"parameter":  "params",
	"parameters": "params",
	"tag":        "tags",
	"tags":       "tags",
	"attr":       "attributes",
	"attribute":  "attributes",
	"attributes": "attributes",
	"run":        "attributes",
}

// numericAttributes compare as numbers
var numericAttributes = map[string]bool{
	"start_time":       true,
	"end_time":         true,
	"creation_time":    true,
	"last_update_time": true,
}

////////////////////////////////////////////////////////////////////////////////
// PARSE

func parseFilter(filter string) ([]clause, error) {
	if strings.TrimSpace(filter) == "" {
		return nil, nil
	}
	var clauses []clause
	for _, part := range reAnd.Split(strings.TrimSpace(filter), -1) {
		c, err := parseClause(part)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

func parseClause(part string) (clause, error) {
	m := reClause.FindStringSubmatch(part)
	if m == nil {
		return clause{}, fmt.Errorf("invalid clause %q", part)
	}
	entity, err := parseEntity(m[1])
	if err != nil {
		return clause{}, err
	}
	c := clause{
		entity: entity,
		key:    strings.Trim(m[2], "`"),
		op:     strings.ToUpper(m[3]),
	}

	literal := m[4]
	switch {
	case len(literal) >= 2 && (literal[0] == '\'' || literal[0] == '"') && literal[len(literal)-1] == literal[0]:
		c.text = literal[1 : len(literal)-1]
	default:
		n, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return clause{}, fmt.Errorf("invalid value %q in clause %q", literal, part)
		}
		c.number, c.numeric = n, true
	}

	switch {
	case c.entity == "metrics" && !c.numeric:
		return clause{}, fmt.Errorf("metric %q must be compared with a number", c.key)
	case (c.entity == "params" || c.entity == "tags") && c.numeric:
		return clause{}, fmt.Errorf("%s %q must be compared with a quoted string", c.entity, c.key)
	case !c.numeric && c.op != "=" && c.op != "!=" && c.op != "LIKE" && c.op != "ILIKE":
		return clause{}, fmt.Errorf("operator %s is not supported for strings", c.op)
	case c.numeric && (c.op == "LIKE" || c.op == "ILIKE"):
		return clause{}, fmt.Errorf("operator %s is not supported for numbers", c.op)
	}

	if c.op == "LIKE" || c.op == "ILIKE" {
		pattern := regexp.QuoteMeta(c.text)
		pattern = strings.ReplaceAll(pattern, "%", ".*")
		pattern = strings.ReplaceAll(pattern, "_", ".")
		if c.op == "ILIKE" {
			pattern = "(?i)" + pattern
		}
		c.like = regexp.MustCompile("^" + pattern + "$")
	}
	return c, nil
}

func parseOrderBy(orderBy []string) ([]orderClause, error) {
	var clauses []orderClause
	for _, part := range orderBy {
		m := reOrderBy.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("invalid order_by clause %q", part)
		}
		entity, err := parseEntity(m[1])
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, orderClause{
			entity: entity,
			key:    strings.Trim(m[2], "`"),
			desc:   strings.EqualFold(m[3], "desc"),
		})
	}
	return clauses, nil
}

func parseEntity(prefix string) (string, error) {
	if prefix == "" {
		return "attributes", nil
	}
	entity, exists := entities[strings.ToLower(prefix)]
	if !exists {
		return "", fmt.Errorf("invalid entity type %q", prefix)
	}
	return entity, nil
}

////////////////////////////////////////////////////////////////////////////////
// EVALUATE

func matchAll(clauses []clause, get lookup) bool {
	for _, c := range clauses {
		if !c.match(get) {
			return false
		}
	}
	return true
}

func (c clause) match(get lookup) bool {
	v, ok := get(c.entity, c.key)
	if !ok {
		return false
	}
	if c.numeric {
		n := v.number
		if !v.numeric {
			parsed, err := strconv.ParseFloat(v.text, 64)
			if err != nil {
				return false
			}
			n = parsed
		}
		switch c.op {
		case "=":
			return n == c.number
		case "!=":
			return n != c.number
		case "<":
			return n < c.number
		case "<=":
			return n <= c.number
		case ">":
			return n > c.number
		case ">=":
			return n >= c.number
		}
		return false
	}
	switch c.op {
	case "=":
		return v.text == c.text
	case "!=":
		return v.text != c.text
	default:
		return c.like.MatchString(v.text)
	}
}

// sortBy orders items stably by the clauses in sequence. Items missing a
// key sort last regardless of direction.
func sortBy[T any](items []T, clauses []orderClause, get func(T) lookup) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := get(items[i]), get(items[j])
		for _, c := range clauses {
			va, oka := a(c.entity, c.key)
			vb, okb := b(c.entity, c.key)
			switch {
			case !oka && !okb:
				continue
			case !oka:
				return false
			case !okb:
				return true
			}
			cmp := compare(va, vb)
			if cmp == 0 {
				continue
			}
			if c.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compare(a, b value) int {
	if a.numeric && b.numeric {
		switch {
		case a.number < b.number:
			return -1
		case a.number > b.number:
			return 1
		}
		return 0
	}
	return strings.Compare(a.text, b.text)
}
