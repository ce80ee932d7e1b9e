package model

import (
	"encoding/json"
	"fmt"
)

// ExperienceLevel marshals as its name so API payloads stay readable, and
// unknown names are rejected at the boundary instead of defaulting.

// MarshalJSON encodes the level name.
func (l ExperienceLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a level name, rejecting unknown values.
func (l *ExperienceLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseExperienceLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseExperienceLevel maps a level name to its ordered value.
func ParseExperienceLevel(s string) (ExperienceLevel, error) {
	switch s {
	case "VOLUNTEER":
		return Volunteer, nil
	case "BEGINNER":
		return Beginner, nil
	case "INTERMEDIATE":
		return Intermediate, nil
	case "EXPERIENCED":
		return Experienced, nil
	case "CERTIFIED":
		return Certified, nil
	default:
		return Volunteer, fmt.Errorf("unknown experience level %q", s)
	}
}

// ValidRole reports whether the role is one of the known officiating roles.
func ValidRole(r GameRole) bool {
	switch r {
	case HeadReferee, AssistantReferee, Scorekeeper, ClockOperator, ShotClockOperator:
		return true
	default:
		return false
	}
}

// ValidGameType reports whether the game type is known.
func ValidGameType(t GameType) bool {
	switch t {
	case Regular, Playoff, Championship, Tournament, Friendly:
		return true
	default:
		return false
	}
}

// ValidObjective reports whether the optimization objective is known.
func ValidObjective(o OptimizationObjective) bool {
	switch o {
	case MinimizeCost, MaximizeCoverage, BalanceWorkload, MinimizeTravel, MaximizeSatisfaction:
		return true
	default:
		return false
	}
}

// ValidChannel reports whether the notification channel is known.
func ValidChannel(c NotificationChannel) bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp:
		return true
	default:
		return false
	}
}

// Validate rejects contexts with malformed shapes before a run starts. The
// engine refuses unknown enum values rather than propagating them.
func (sc *SchedulingContext) Validate() error {
	for i := range sc.Games {
		g := &sc.Games[i]
		if g.ID == "" {
			return fmt.Errorf("game %d: missing id", i)
		}
		if !ValidGameType(g.Type) {
			return fmt.Errorf("game %s: unknown type %q", g.ID, g.Type)
		}
		if g.Start.IsZero() || g.Duration <= 0 {
			return fmt.Errorf("game %s: invalid schedule", g.ID)
		}
		if sc.VenueByID(g.VenueID) == nil {
			return fmt.Errorf("game %s: unknown venue %q", g.ID, g.VenueID)
		}
		for _, req := range g.Required {
			if !ValidRole(req.Role) {
				return fmt.Errorf("game %s: unknown role %q", g.ID, req.Role)
			}
			if req.Quantity < 1 {
				return fmt.Errorf("game %s: role %s quantity must be positive", g.ID, req.Role)
			}
		}
	}
	for i := range sc.Referees {
		r := &sc.Referees[i]
		if r.ID == "" {
			return fmt.Errorf("referee %d: missing id", i)
		}
		for _, role := range r.Specializations {
			if !ValidRole(role) {
				return fmt.Errorf("referee %s: unknown role %q", r.ID, role)
			}
		}
		for _, ch := range r.Channels {
			if !ValidChannel(ch) {
				return fmt.Errorf("referee %s: unknown channel %q", r.ID, ch)
			}
		}
	}
	if sc.Objective != "" && !ValidObjective(sc.Objective) {
		return fmt.Errorf("unknown objective %q", sc.Objective)
	}
	return nil
}
