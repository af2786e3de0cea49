package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanTitle(t *testing.T) {
	cases := []struct{ in, want string }{
		{`"weekly sync"`, "Weekly Sync"},
		{"'quarterly planning review'", "Quarterly Planning Review"},
		{"a b c", "A b c"},
		{"the big meeting", "The big Meeting"},
		{"'discussion about API design'", "Discussion About api Design"},
		{"MEETING room", "Meeting Room"},
		{"", ""},
	}
	for _, c := range cases {
		require.Equal(t, c.want, CleanTitle(c.in), "input %q", c.in)
	}
}
