package verge

import (
	"net/url"
	"strconv"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Page selects a window of a list endpoint.
type Page struct {
	Limit  int
	Offset int
}

// Normalize applies the default limit and caps it at MaxPageLimit.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func (p Page) apply(q url.Values) url.Values {
	if q == nil {
		q = url.Values{}
	}
	n := p.Normalize()
	q.Set("limit", strconv.Itoa(n.Limit))
	if n.Offset > 0 {
		q.Set("offset", strconv.Itoa(n.Offset))
	}
	return q
}

func machineFilter(machine int) url.Values {
	return url.Values{"filter": []string{"machine eq " + strconv.Itoa(machine)}}
}

// filterByMachine keeps only records belonging to machine. The backend does
// not reliably apply the filter query server-side.
func filterByMachine[T any](items []T, machine int, key func(T) int) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if key(item) == machine {
			out = append(out, item)
		}
	}
	return out
}
