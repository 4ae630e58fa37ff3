package teams

import "context"

type Team string

const (
	TeamNative  Team = "native"
	TeamLearner Team = "learner"
	TeamUnknown Team = "unknown"
)

// RoleFunc looks up a player's team from the chat platform's role system.
// Implementations may hit the network; the session loop tolerates latency
// but other channels never wait on it.
type RoleFunc func(ctx context.Context, playerID string) (Team, error)

// Tracker classifies players into teams. It caches lookups for the lifetime
// of a session so the external role system is asked at most once per player.
// Not safe for concurrent use: a Tracker belongs to exactly one session loop.
type Tracker struct {
	roles RoleFunc
	cache map[string]Team
}

func NewTracker(roles RoleFunc) *Tracker {
	return &Tracker{
		roles: roles,
		cache: make(map[string]Team),
	}
}

// Classify returns the player's team. Lookup failures and unrecognized roles
// both map to TeamUnknown; an unknown player's finds count toward completion
// but never toward either team's score.
func (t *Tracker) Classify(ctx context.Context, playerID string) Team {
	if team, ok := t.cache[playerID]; ok {
		return team
	}

	team := TeamUnknown
	if t.roles != nil {
		got, err := t.roles(ctx, playerID)
		if err == nil && (got == TeamNative || got == TeamLearner) {
			team = got
		}
	}
	t.cache[playerID] = team
	return team
}

// StaticRoles builds a RoleFunc from fixed player lists. Used for tests and
// for deployments that configure membership through the environment instead
// of a live platform lookup.
func StaticRoles(native, learner []string) RoleFunc {
	natives := make(map[string]bool, len(native))
	for _, id := range native {
		natives[id] = true
	}
	learners := make(map[string]bool, len(learner))
	for _, id := range learner {
		learners[id] = true
	}

	return func(_ context.Context, playerID string) (Team, error) {
		switch {
		case natives[playerID]:
			return TeamNative, nil
		case learners[playerID]:
			return TeamLearner, nil
		default:
			return TeamUnknown, nil
		}
	}
}
