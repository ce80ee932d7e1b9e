package loadtest

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/courtside/refassign/internal/domain/model"
	"github.com/courtside/refassign/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	refereeTierDivisor = 8
	gamesPerVenue      = 20
	gamesPerDay        = 12
	gameSpacingMinutes = 75
)

// Constants for the synthetic league geometry. Venues are scattered around a
// city center; referees live within commuting range of it.
const (
	centerLat      = 39.7684
	centerLon      = -86.1581
	venueSpreadDeg = 0.25
	homeSpreadDeg  = 0.45
)

// Constants for referee pool composition cases.
const (
	caseVolunteer    = 0
	caseBeginner     = 1
	caseIntermediate = 2
	caseExperienced  = 3
	caseCertified    = 4
	caseSpecialist   = 5
	caseLimitedHours = 6
	caseLongCommuter = 7
)

// Constants for pay-rate generation.
const (
	baseRate     = 35.0
	ratePerLevel = 12.0
	rateJitter   = 10.0
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomInt returns a random int in [0, bound).
func getRandomInt(bound int64) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(bound))
	return int(n.Int64())
}

// generateContext creates a synthetic season snapshot: venues, a weekend game
// schedule and a referee pool with a varied skill distribution.
func generateContext(ctx context.Context, config *Config, stats *Stats) (*model.SchedulingContext, error) {
	logger.Get().Info(ctx, "generating scheduling context",
		logger.Int("games", config.NumGames),
		logger.Int("referees", config.NumReferees))

	venues := generateVenues(config.NumGames)
	divisions := leagueDivisions()

	// Games start next Saturday morning so availability windows line up.
	weekendStart := nextSaturday(time.Now().UTC())

	games := make([]model.Game, config.NumGames)
	for i := range games {
		games[i] = generateGame(i, venues, divisions, weekendStart)
	}

	referees := make([]model.Referee, config.NumReferees)
	for i := range referees {
		referees[i] = generateReferee(i, venues)
	}

	sc := &model.SchedulingContext{
		Games:    games,
		Referees: referees,
		Venues:   venues,
		Constraints: model.AssignmentConstraints{
			MaxGamesPerDay:      4,
			MinRestBetweenGames: 30 * time.Minute,
			MaxTravelDistanceMi: 100,
			Soft: model.SoftPreferences{
				PreferExperiencedForTournaments: true,
				PreferLocal:                     true,
				RespectPreferences:              true,
				BalanceAssignments:              true,
			},
		},
		Objective: model.MaximizeCoverage,
		Window: model.TimeWindow{
			Start: weekendStart,
			End:   weekendStart.Add(3 * 24 * time.Hour),
		},
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("generated context is invalid: %w", err)
	}

	stats.GamesGenerated = len(games)
	stats.RefereesGenerated = len(referees)
	for i := range games {
		stats.SlotsRequested += games[i].SlotCount()
	}
	logger.Get().Info(ctx, "generated context successfully",
		logger.Int("venues", len(venues)),
		logger.Int("slots", stats.SlotsRequested))

	return sc, nil
}

// generateVenues scatters enough venues around the city center to host the
// requested number of games.
func generateVenues(numGames int) []model.Venue {
	count := numGames/gamesPerVenue + 2
	venues := make([]model.Venue, count)
	for i := range venues {
		venues[i] = model.Venue{
			ID:      "venue_" + strconv.Itoa(i),
			Name:    "Court " + strconv.Itoa(i+1),
			Address: strconv.Itoa(100+i) + " League Ave",
			Location: model.GeoPoint{
				Lat: centerLat + (getRandomFloat()-0.5)*venueSpreadDeg,
				Lon: centerLon + (getRandomFloat()-0.5)*venueSpreadDeg,
			},
			Facilities: []string{"scoreboard", "shot_clock"},
		}
	}
	return venues
}

// leagueDivisions returns the fixed division ladder the generated games draw
// from.
func leagueDivisions() []model.Division {
	return []model.Division{
		{ID: "rec", Name: "Recreational", RequiredExperience: model.Volunteer, GameMinutes: 60},
		{ID: "youth", Name: "Youth Travel", RequiredExperience: model.Beginner, GameMinutes: 75},
		{ID: "varsity", Name: "Varsity", RequiredExperience: model.Intermediate, GameMinutes: 90},
		{ID: "premier", Name: "Premier", RequiredExperience: model.Experienced, GameMinutes: 90},
	}
}

// generateGame creates one game spread across the weekend window.
func generateGame(index int, venues []model.Venue, divisions []model.Division, weekendStart time.Time) model.Game {
	division := divisions[getRandomInt(int64(len(divisions)))]
	day := index / gamesPerDay % 3
	slotOfDay := index % gamesPerDay
	start := weekendStart.Add(time.Duration(day)*24*time.Hour +
		time.Duration(slotOfDay*gameSpacingMinutes)*time.Minute)

	gameType := model.Regular
	if division.ID == "premier" && getRandomFloat() < 0.3 {
		gameType = model.Playoff
	}

	required := []model.RequiredOfficial{
		{Role: model.HeadReferee, Experience: division.RequiredExperience, Quantity: 1},
	}
	if division.ID != "rec" {
		required = append(required, model.RequiredOfficial{
			Role: model.AssistantReferee, Experience: model.Volunteer, Quantity: 1,
		})
	}
	if gameType.HighStakes() {
		required = append(required, model.RequiredOfficial{
			Role: model.Scorekeeper, Experience: model.Volunteer, Quantity: 1,
		})
	}

	return model.Game{
		ID:         "game_" + strconv.Itoa(index),
		Division:   division,
		VenueID:    venues[getRandomInt(int64(len(venues)))].ID,
		Start:      start,
		Duration:   time.Duration(division.GameMinutes) * time.Minute,
		Type:       gameType,
		Importance: 1 + getRandomInt(10),
		Required:   required,
	}
}

// generateReferee creates one referee with a tiered profile distribution so
// the pool has elites, journeymen and thin-availability volunteers.
func generateReferee(index int, venues []model.Venue) model.Referee {
	ref := model.Referee{
		ID:             uuid.New().String(),
		Name:           "Referee " + strconv.Itoa(index),
		TravelRadiusMi: 60,
		Home: model.GeoPoint{
			Lat: centerLat + (getRandomFloat()-0.5)*homeSpreadDeg,
			Lon: centerLon + (getRandomFloat()-0.5)*homeSpreadDeg,
		},
		Reliability: 0.7 + getRandomFloat()*0.3,
		Active:      true,
		Channels:    []model.NotificationChannel{model.ChannelInApp},
	}

	switch getRandomInt(refereeTierDivisor) {
	case caseVolunteer:
		ref.Experience = model.Volunteer
	case caseBeginner:
		ref.Experience = model.Beginner
	case caseIntermediate:
		ref.Experience = model.Intermediate
	case caseExperienced:
		ref.Experience = model.Experienced
	case caseCertified:
		ref.Experience = model.Certified
	case caseSpecialist:
		// Table officials who never take the whistle.
		ref.Experience = model.Intermediate
		ref.Specializations = []model.GameRole{model.Scorekeeper, model.ClockOperator}
	case caseLimitedHours:
		ref.Experience = model.Intermediate
		ref.Limits = model.WorkloadLimits{MaxGamesPerDay: 2, MaxGamesPerWeek: 5}
	case caseLongCommuter:
		ref.Experience = model.Experienced
		ref.TravelRadiusMi = 150
	}

	ref.PayRate = baseRate + float64(ref.Experience)*ratePerLevel + getRandomFloat()*rateJitter
	return ref
}

// nextSaturday returns the next Saturday at 09:00 UTC after t.
func nextSaturday(t time.Time) time.Time {
	daysAhead := (int(time.Saturday) - int(t.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	day := t.AddDate(0, 0, daysAhead)
	return time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, time.UTC)
}
