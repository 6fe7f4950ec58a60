package tally

import "slices"

// Counter counts keys remembering
// the order they were first seen in.
type Counter struct {
	order  []string
	counts map[string]int
}

func New() *Counter {
	return &Counter{
		order:  make([]string, 0),
		counts: make(map[string]int),
	}
}

func (c *Counter) Add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

type Entry struct {
	Key   string
	Count int
}

// All returns every key in first-seen order.
func (c *Counter) All() []Entry {
	res := make([]Entry, 0, len(c.order))
	for _, k := range c.order {
		res = append(res, Entry{Key: k, Count: c.counts[k]})
	}
	return res
}

// MostCommon returns up to n entries by descending count.
// Ties keep first-seen order.
func (c *Counter) MostCommon(n int) []Entry {
	res := c.All()
	slices.SortStableFunc(res, func(a, b Entry) int {
		return b.Count - a.Count
	})
	if n >= 0 && len(res) > n {
		res = res[:n]
	}
	return res
}
