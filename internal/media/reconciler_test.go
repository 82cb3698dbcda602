package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompose(t *testing.T) {
	cases := []struct {
		name     string
		primary  string
		children []string
		want     []string
	}{
		{name: "primary first", primary: "A", children: []string{"B", "C"}, want: []string{"A", "B", "C"}},
		{name: "blank primary omitted", primary: "  ", children: []string{"B"}, want: []string{"B"}},
		{name: "duplicates collapse", primary: "A", children: []string{"B", "A", "B"}, want: []string{"A", "B"}},
		{name: "blank children dropped", primary: "A", children: []string{"", " \t", "C"}, want: []string{"A", "C"}},
		{name: "nothing", primary: "", children: nil, want: []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compose(tc.primary, tc.children))
		})
	}
}

func TestComposeIsIdempotent(t *testing.T) {
	first := Compose("A", []string{"C", "B", "C"})
	primary, children := Decompose(first)
	assert.Equal(t, first, Compose(primary, children))
}

func TestDecompose(t *testing.T) {
	primary, children := Decompose([]string{"A", "B", "C"})
	assert.Equal(t, "A", primary)
	assert.Equal(t, []string{"B", "C"}, children)

	primary, children = Decompose([]string{"A"})
	assert.Equal(t, "A", primary)
	assert.Empty(t, children)

	primary, children = Decompose(nil)
	assert.Equal(t, "", primary)
	assert.Nil(t, children)
}

func TestRoundTripNormalizes(t *testing.T) {
	lists := [][]string{
		{"A"},
		{"A", "B", "C"},
		{"A", "A", "B"},
		{"A", " ", "B", "A", ""},
		{"https://x/1", "https://x/2", "https://x/1", "https://x/3"},
	}

	for _, list := range lists {
		primary, children := Decompose(list)
		assert.Equal(t, Normalize(list), Compose(primary, children), "list %v", list)
	}
}

func TestPrimarySlotInvariant(t *testing.T) {
	urls := Compose("A", []string{"B"})
	primary, _ := Decompose(urls)
	assert.Equal(t, urls[0], primary)
}

func TestDecomposeDoesNotAlias(t *testing.T) {
	list := []string{"A", "B"}
	_, children := Decompose(list)
	children[0] = "Z"
	assert.Equal(t, "B", list[1])
}
