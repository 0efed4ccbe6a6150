package cmd

import "testing"

func TestSplitPlayerFlag(t *testing.T) {
	cases := []struct {
		args          []string
		first, player string
	}{
		{nil, "", ""},
		{[]string{"abc"}, "abc", ""},
		{[]string{"abc", "--player", "ana"}, "abc", "ana"},
		{[]string{"--player", "ana", "abc"}, "abc", "ana"},
		{[]string{"abc", "--player"}, "abc", ""},
	}
	for _, c := range cases {
		first, player := splitPlayerFlag(c.args)
		if first != c.first || player != c.player {
			t.Errorf("splitPlayerFlag(%v) = %q, %q; want %q, %q", c.args, first, player, c.first, c.player)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("shortID long: %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID short: %q", got)
	}
}
