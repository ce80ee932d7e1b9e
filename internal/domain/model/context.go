package model

import "time"

// OptimizationObjective selects which term dominates the optimizer's
// weighted objective.
type OptimizationObjective string

const (
	MinimizeCost         OptimizationObjective = "MINIMIZE_COST"
	MaximizeCoverage     OptimizationObjective = "MAXIMIZE_COVERAGE"
	BalanceWorkload      OptimizationObjective = "BALANCE_WORKLOAD"
	MinimizeTravel       OptimizationObjective = "MINIMIZE_TRAVEL"
	MaximizeSatisfaction OptimizationObjective = "MAXIMIZE_SATISFACTION"
)

// SoftPreferences toggles the soft-constraint terms. An unset flag zeroes
// out its penalty term.
type SoftPreferences struct {
	PreferExperiencedForTournaments bool `json:"prefer_experienced_for_tournaments"`
	PreferLocal                     bool `json:"prefer_local"`
	PreferConsistentCrews           bool `json:"prefer_consistent_crews"`
	AvoidBackToBack                 bool `json:"avoid_back_to_back"`
	BalanceAssignments              bool `json:"balance_assignments"`
	BalanceEarnings                 bool `json:"balance_earnings"`
	RespectPreferences              bool `json:"respect_preferences"`
}

// AssignmentConstraints bundles the hard limits and soft preferences for a
// scheduling run. Hard limits here are league-wide defaults; a referee's own
// limits apply when stricter.
type AssignmentConstraints struct {
	RequiredExperience  map[string]ExperienceLevel `json:"required_experience,omitempty"` // by division id
	MaxGamesPerDay      int                        `json:"max_games_per_day"`
	MaxGamesPerWeek     int                        `json:"max_games_per_week"`
	MaxConsecutiveGames int                        `json:"max_consecutive_games"`
	MinRestBetweenGames time.Duration              `json:"min_rest_between_games"`
	MaxTravelDistanceMi float64                    `json:"max_travel_distance_mi"`

	Soft SoftPreferences `json:"soft"`

	TargetUtilization    float64       `json:"target_utilization"`
	AssignmentLeadTime   time.Duration `json:"assignment_lead_time"`
	ConfirmationDeadline time.Duration `json:"confirmation_deadline"`
	AllowEmergency       bool          `json:"allow_emergency"`
}

// MaxGamesPerDayFor resolves the effective per-day cap for a referee: the
// stricter of the league default and the referee's own limit.
func (c *AssignmentConstraints) MaxGamesPerDayFor(r *Referee) int {
	return stricterCap(c.MaxGamesPerDay, r.Limits.MaxGamesPerDay)
}

// MaxGamesPerWeekFor resolves the effective per-week cap for a referee.
func (c *AssignmentConstraints) MaxGamesPerWeekFor(r *Referee) int {
	return stricterCap(c.MaxGamesPerWeek, r.Limits.MaxGamesPerWeek)
}

// MaxConsecutiveFor resolves the effective consecutive-game cap.
func (c *AssignmentConstraints) MaxConsecutiveFor(r *Referee) int {
	return stricterCap(c.MaxConsecutiveGames, r.Limits.MaxConsecutiveGames)
}

// MinRestFor resolves the effective minimum rest between games.
func (c *AssignmentConstraints) MinRestFor(r *Referee) time.Duration {
	if r.Limits.MinRestBetweenGames > c.MinRestBetweenGames {
		return r.Limits.MinRestBetweenGames
	}
	return c.MinRestBetweenGames
}

// stricterCap picks the smaller positive cap; zero means unlimited.
func stricterCap(league, own int) int {
	switch {
	case league <= 0:
		return own
	case own <= 0:
		return league
	case own < league:
		return own
	default:
		return league
	}
}

// TimeWindow bounds the games a run considers.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SchedulingContext is the read-only input snapshot for one run.
type SchedulingContext struct {
	Games               []Game                `json:"games"`
	Referees            []Referee             `json:"referees"`
	Venues              []Venue               `json:"venues"`
	ExistingAssignments []Assignment          `json:"existing_assignments,omitempty"`
	Constraints         AssignmentConstraints `json:"constraints"`
	Objective           OptimizationObjective `json:"objective"`
	Window              TimeWindow            `json:"window"`
}

// VenueByID returns the venue snapshot for an id, or nil when unknown.
func (sc *SchedulingContext) VenueByID(id string) *Venue {
	for i := range sc.Venues {
		if sc.Venues[i].ID == id {
			return &sc.Venues[i]
		}
	}
	return nil
}

// GameByID returns the game snapshot for an id, or nil when unknown.
func (sc *SchedulingContext) GameByID(id string) *Game {
	for i := range sc.Games {
		if sc.Games[i].ID == id {
			return &sc.Games[i]
		}
	}
	return nil
}

// RefereeByID returns the referee snapshot for an id, or nil when unknown.
func (sc *SchedulingContext) RefereeByID(id string) *Referee {
	for i := range sc.Referees {
		if sc.Referees[i].ID == id {
			return &sc.Referees[i]
		}
	}
	return nil
}
