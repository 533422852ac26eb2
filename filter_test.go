package fdb

import (
	"errors"
	"slices"
	"testing"

	"github.com/woozymasta/pathrules"
)

func selectFixture(t *testing.T) *Archive {
	t.Helper()

	return openFixture(t, []fixtureEntry{
		plainEntry("ui/logo.tga", "0"),
		plainEntry("ui/fonts/main.fnt", "1"),
		plainEntry("sounds/click.wav", "2"),
		plainEntry("scripts/main.lua", "3"),
		plainEntry("scripts/tmp/debug.lua", "4"),
	}, Options{})
}

func TestArchive_Select(t *testing.T) {
	t.Parallel()

	a := selectFixture(t)
	testCases := []struct {
		name  string
		rules []pathrules.Rule
		want  []int
	}{
		{name: "no rules select all", want: []int{0, 1, 2, 3, 4}},
		{
			name:  "include only",
			rules: []pathrules.Rule{{Action: pathrules.ActionInclude, Pattern: "ui/**"}},
			want:  []int{0, 1},
		},
		{
			name:  "exclude only keeps the rest",
			rules: []pathrules.Rule{{Action: pathrules.ActionExclude, Pattern: "*.lua"}},
			want:  []int{0, 1, 2},
		},
		{
			name: "ordered include and exclude",
			rules: []pathrules.Rule{
				{Action: pathrules.ActionInclude, Pattern: "scripts/**"},
				{Action: pathrules.ActionExclude, Pattern: "scripts/tmp/**"},
			},
			want: []int{3},
		},
		{
			name:  "patterns are normalized like names",
			rules: []pathrules.Rule{{Action: pathrules.ActionInclude, Pattern: `\Sounds\*.WAV`}},
			want:  []int{2},
		},
		{
			name:  "empty patterns are ignored",
			rules: []pathrules.Rule{{Action: pathrules.ActionInclude, Pattern: "./"}},
			want:  []int{0, 1, 2, 3, 4},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := a.Select(tc.rules, pathrules.MatcherOptions{})
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if !slices.Equal(got, tc.want) {
				t.Fatalf("Select=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestArchive_SelectInvalidRule(t *testing.T) {
	t.Parallel()

	a := selectFixture(t)
	_, err := a.Select([]pathrules.Rule{{Action: pathrules.ActionUnknown, Pattern: "*.tga"}}, pathrules.MatcherOptions{
		DefaultAction: pathrules.ActionExclude,
	})
	if !errors.Is(err, ErrInvalidRules) {
		t.Fatalf("expected ErrInvalidRules, got %v", err)
	}
}

func TestArchive_SelectClosed(t *testing.T) {
	t.Parallel()

	a := selectFixture(t)
	_ = a.Close()

	if _, err := a.Select(nil, pathrules.MatcherOptions{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestDefaultSelectAction(t *testing.T) {
	t.Parallel()

	if got := defaultSelectAction(nil); got != pathrules.ActionInclude {
		t.Fatalf("no rules: %v", got)
	}

	excludeOnly := []pathrules.Rule{{Action: pathrules.ActionExclude, Pattern: "*"}}
	if got := defaultSelectAction(excludeOnly); got != pathrules.ActionInclude {
		t.Fatalf("exclude only: %v", got)
	}

	withInclude := append(excludeOnly, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: "a"})
	if got := defaultSelectAction(withInclude); got != pathrules.ActionExclude {
		t.Fatalf("with include: %v", got)
	}
}
