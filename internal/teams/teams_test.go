package teams

import (
	"context"
	"errors"
	"testing"
)

func TestClassifyCachesLookups(t *testing.T) {
	calls := 0
	tr := NewTracker(func(_ context.Context, playerID string) (Team, error) {
		calls++
		return TeamNative, nil
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if got := tr.Classify(ctx, "masha"); got != TeamNative {
			t.Fatalf("want native, got %s", got)
		}
	}
	if calls != 1 {
		t.Fatalf("role system asked %d times, want 1", calls)
	}
}

func TestClassifyFailureMapsToUnknown(t *testing.T) {
	tr := NewTracker(func(context.Context, string) (Team, error) {
		return "", errors.New("platform down")
	})

	if got := tr.Classify(context.Background(), "masha"); got != TeamUnknown {
		t.Fatalf("lookup failure must classify as unknown, got %s", got)
	}
}

func TestClassifyRejectsBogusTeams(t *testing.T) {
	tr := NewTracker(func(context.Context, string) (Team, error) {
		return Team("moderator"), nil
	})

	if got := tr.Classify(context.Background(), "masha"); got != TeamUnknown {
		t.Fatalf("unrecognized role must classify as unknown, got %s", got)
	}
}

func TestClassifyWithoutRoleFunc(t *testing.T) {
	tr := NewTracker(nil)
	if got := tr.Classify(context.Background(), "anyone"); got != TeamUnknown {
		t.Fatalf("nil role source must classify as unknown, got %s", got)
	}
}

func TestStaticRoles(t *testing.T) {
	roles := StaticRoles([]string{"masha"}, []string{"kwinten"})
	ctx := context.Background()

	cases := []struct {
		player string
		want   Team
	}{
		{"masha", TeamNative},
		{"kwinten", TeamLearner},
		{"drifter", TeamUnknown},
	}
	for _, tc := range cases {
		got, err := roles(ctx, tc.player)
		if err != nil {
			t.Fatalf("roles(%q): %v", tc.player, err)
		}
		if got != tc.want {
			t.Fatalf("roles(%q) = %s, want %s", tc.player, got, tc.want)
		}
	}
}

func TestScoreFuncs(t *testing.T) {
	if FlatScore(1) != 1 || FlatScore(19999) != 1 {
		t.Fatalf("flat scoring must ignore rank")
	}

	weighted := RarityWeighted(20000)
	cases := []struct {
		rank, want int
	}{
		{1, 1},
		{10000, 1},
		{10001, 2},
		{20000, 2},
		{20001, 3},
	}
	for _, tc := range cases {
		if got := weighted(tc.rank); got != tc.want {
			t.Fatalf("weighted(%d) = %d, want %d", tc.rank, got, tc.want)
		}
	}
}
