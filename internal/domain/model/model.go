// Package model contains the domain types passed between the scheduling
// engine's layers: referees, games, venues, assignments, constraint bundles
// and run results.
package model

import (
	"time"
)

// ExperienceLevel is a referee certification level. Levels are totally
// ordered; a higher value satisfies any requirement for a lower one.
type ExperienceLevel int

const (
	Volunteer ExperienceLevel = iota
	Beginner
	Intermediate
	Experienced
	Certified
)

// Meets reports whether the level satisfies a required minimum.
func (l ExperienceLevel) Meets(required ExperienceLevel) bool {
	return l >= required
}

func (l ExperienceLevel) String() string {
	switch l {
	case Volunteer:
		return "VOLUNTEER"
	case Beginner:
		return "BEGINNER"
	case Intermediate:
		return "INTERMEDIATE"
	case Experienced:
		return "EXPERIENCED"
	case Certified:
		return "CERTIFIED"
	default:
		return "UNKNOWN"
	}
}

// GameRole identifies one officiating role on a game.
type GameRole string

const (
	HeadReferee       GameRole = "HEAD_REFEREE"
	AssistantReferee  GameRole = "ASSISTANT_REFEREE"
	Scorekeeper       GameRole = "SCOREKEEPER"
	ClockOperator     GameRole = "CLOCK_OPERATOR"
	ShotClockOperator GameRole = "SHOT_CLOCK_OPERATOR"
)

// GameType classifies a game for priority and soft-preference purposes.
type GameType string

const (
	Regular      GameType = "REGULAR"
	Playoff      GameType = "PLAYOFF"
	Championship GameType = "CHAMPIONSHIP"
	Tournament   GameType = "TOURNAMENT"
	Friendly     GameType = "FRIENDLY"
)

// HighStakes reports whether the game type prefers experienced crews.
func (t GameType) HighStakes() bool {
	return t == Playoff || t == Championship || t == Tournament
}

// AvailabilityPriority grades a recurring availability window.
type AvailabilityPriority string

const (
	Available AvailabilityPriority = "AVAILABLE"
	Preferred AvailabilityPriority = "PREFERRED"
	IfNeeded  AvailabilityPriority = "IF_NEEDED"
)

// AvailabilityRule is a recurring weekly window in which a referee can work.
// Minutes are counted from midnight local to the league.
type AvailabilityRule struct {
	Weekday     time.Weekday         `json:"weekday"`
	StartMinute int                  `json:"start_minute"`
	EndMinute   int                  `json:"end_minute"`
	Priority    AvailabilityPriority `json:"priority"`
}

// Covers reports whether the rule covers the whole [start, end) interval.
func (r AvailabilityRule) Covers(start, end time.Time) bool {
	if start.Weekday() != r.Weekday || end.Before(start) {
		return false
	}
	// A window never spans midnight; a game ending on the next day cannot
	// be covered by a single rule.
	if start.Year() != end.Year() || start.YearDay() != end.YearDay() {
		return false
	}
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	return startMin >= r.StartMinute && endMin <= r.EndMinute
}

// BlackoutWindow is an absolute interval during which a referee is
// unavailable. Partial-day blackouts are expressed with sub-day bounds.
type BlackoutWindow struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Reason string    `json:"reason,omitempty"`
}

// Overlaps reports whether the blackout intersects [start, end).
func (b BlackoutWindow) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && b.Start.Before(end)
}

// WorkloadLimits caps how much a referee may be scheduled.
type WorkloadLimits struct {
	MaxGamesPerDay      int           `json:"max_games_per_day"`
	MaxGamesPerWeek     int           `json:"max_games_per_week"`
	MaxConsecutiveGames int           `json:"max_consecutive_games"`
	MinRestBetweenGames time.Duration `json:"min_rest_between_games"`
}

// RefereePreferences are stated soft preferences; deviations cost penalty
// but never forbid an assignment.
type RefereePreferences struct {
	PreferredVenues    []string `json:"preferred_venues,omitempty"`
	PreferredDivisions []string `json:"preferred_divisions,omitempty"`
	PreferredPartners  []string `json:"preferred_partners,omitempty"`
	AvoidPartners      []string `json:"avoid_partners,omitempty"`
}

// Referee is a read-only snapshot of an official's profile for one run.
type Referee struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Experience      ExperienceLevel    `json:"experience"`
	Specializations []GameRole         `json:"specializations,omitempty"`
	Availability    []AvailabilityRule `json:"availability,omitempty"`
	Blackouts       []BlackoutWindow   `json:"blackouts,omitempty"`
	Limits          WorkloadLimits     `json:"limits"`
	Preferences     RefereePreferences `json:"preferences"`
	TravelRadiusMi  float64            `json:"travel_radius_mi"`
	Home            GeoPoint           `json:"home"`
	PayRate         float64            `json:"pay_rate"`
	Reliability     float64            `json:"reliability"`
	Active          bool               `json:"active"`

	Channels []NotificationChannel `json:"channels,omitempty"`
}

// CanFill reports whether the referee is specialized for the role. An empty
// specialization list means the referee works any role.
func (r *Referee) CanFill(role GameRole) bool {
	if len(r.Specializations) == 0 {
		return true
	}
	for _, s := range r.Specializations {
		if s == role {
			return true
		}
	}
	return false
}

// Avoids reports whether the referee has listed the other referee as a
// partner to avoid.
func (r *Referee) Avoids(otherID string) bool {
	for _, id := range r.Preferences.AvoidPartners {
		if id == otherID {
			return true
		}
	}
	return false
}

// GeoPoint is a geocoded location.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Venue is a game location.
type Venue struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Location   GeoPoint `json:"location"`
	Facilities []string `json:"facilities,omitempty"`
}

// Division carries the per-division requirements a game inherits.
type Division struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	RequiredExperience ExperienceLevel `json:"required_experience"`
	GameMinutes        int             `json:"game_minutes"`
}

// RequiredOfficial declares how many officials of a role a game needs.
type RequiredOfficial struct {
	Role       GameRole        `json:"role"`
	Experience ExperienceLevel `json:"experience"`
	Quantity   int             `json:"quantity"`
}

// Game is a read-only snapshot of a scheduled game for one run.
type Game struct {
	ID         string             `json:"id"`
	Division   Division           `json:"division"`
	VenueID    string             `json:"venue_id"`
	Start      time.Time          `json:"start"`
	Duration   time.Duration      `json:"duration"`
	Type       GameType           `json:"type"`
	Importance int                `json:"importance"`
	Required   []RequiredOfficial `json:"required"`
	Optional   bool               `json:"optional,omitempty"`
}

// End returns the scheduled end time.
func (g *Game) End() time.Time { return g.Start.Add(g.Duration) }

// SlotCount returns the total number of officiating slots the game needs.
func (g *Game) SlotCount() int {
	n := 0
	for _, req := range g.Required {
		n += req.Quantity
	}
	return n
}

// RequiredExperienceFor returns the minimum experience for a role, falling
// back to the division requirement when the role declares none.
func (g *Game) RequiredExperienceFor(role GameRole) ExperienceLevel {
	for _, req := range g.Required {
		if req.Role == role && req.Experience > g.Division.RequiredExperience {
			return req.Experience
		}
	}
	return g.Division.RequiredExperience
}
