package tally

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMostCommon(t *testing.T) {
	testCases := []struct {
		desc   string
		keys   []string
		n      int
		expect []Entry
	}{
		{
			desc:   "empty",
			keys:   nil,
			n:      4,
			expect: []Entry{},
		},
		{
			desc: "ties keep first seen order",
			keys: []string{"B", "A", "C", "A", "B", "D", "E"},
			n:    4,
			expect: []Entry{
				{Key: "B", Count: 2},
				{Key: "A", Count: 2},
				{Key: "C", Count: 1},
				{Key: "D", Count: 1},
			},
		},
		{
			desc:   "higher count wins",
			keys:   []string{"A", "B", "B"},
			n:      1,
			expect: []Entry{{Key: "B", Count: 2}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			c := New()
			for _, k := range tc.keys {
				c.Add(k)
			}
			assert.Equal(t, tc.expect, c.MostCommon(tc.n))
		})
	}
}
