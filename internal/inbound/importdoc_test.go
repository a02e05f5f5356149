package inbound

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseImportDocument(t *testing.T) {
	cases := map[string]struct {
		doc  string
		want int
	}{
		"array":          {`[{"tag":"a"},{"tag":"b"}]`, 2},
		"wrapped":        {`{"app":"x","inbounds":[{"tag":"a"}]}`, 1},
		"single object":  {`{"protocol":"vless"}`, 1},
		"mixed members":  {`[{"tag":"a"}, 1, "x", null, [], {"tag":"b"}]`, 2},
		"scalar":         {`42`, 0},
		"string":         {`"hello"`, 0},
		"empty":          {``, 0},
		"broken":         {`[{"tag":`, 0},
		"wrapped scalar": {`{"inbounds": 3, "tag": "solo"}`, 1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Len(t, ParseImportDocument([]byte(tc.doc)), tc.want)
		})
	}
}
