package model

// ConflictType tags a detected scheduling conflict.
type ConflictType string

const (
	DoubleBooking        ConflictType = "DOUBLE_BOOKING"
	InsufficientRest     ConflictType = "INSUFFICIENT_REST"
	TravelTime           ConflictType = "TRAVEL_TIME"
	ExperienceMismatch   ConflictType = "EXPERIENCE_MISMATCH"
	AvailabilityConflict ConflictType = "AVAILABILITY_CONFLICT"
	MaxGamesExceeded     ConflictType = "MAX_GAMES_EXCEEDED"
	BlackoutDate         ConflictType = "BLACKOUT_DATE"
	PartnerConflict      ConflictType = "PARTNER_CONFLICT"
	NotificationFailed   ConflictType = "NOTIFICATION_FAILED"
	OfferExpired         ConflictType = "OFFER_EXPIRED"
)

// ConflictSeverity grades a conflict for operator triage.
type ConflictSeverity string

const (
	SeverityCritical ConflictSeverity = "CRITICAL"
	SeverityHigh     ConflictSeverity = "HIGH"
	SeverityMedium   ConflictSeverity = "MEDIUM"
	SeverityLow      ConflictSeverity = "LOW"
)

// Conflict is an advisory diagnostic record. It never mutates an assignment;
// remediation is an operator decision.
type Conflict struct {
	Type             ConflictType     `json:"type"`
	Severity         ConflictSeverity `json:"severity"`
	Description      string           `json:"description"`
	AffectedEntities []string         `json:"affected_entities,omitempty"`
}

// UnassignedGame records a slot the optimizer could not fill, with the
// closest-but-inadmissible referees for operator remediation.
type UnassignedGame struct {
	Slot     Slot     `json:"slot"`
	Reason   string   `json:"reason"`
	NearMiss []string `json:"near_miss,omitempty"` // referee ids
}

// SuggestionType names a remediation the engine recommends.
type SuggestionType string

const (
	AddReferees       SuggestionType = "ADD_REFEREES"
	RescheduleGames   SuggestionType = "RESCHEDULE_GAMES"
	AdjustConstraints SuggestionType = "ADJUST_CONSTRAINTS"
	IncreaseRates     SuggestionType = "INCREASE_RATES"
)

// SuggestionPriority ranks suggestions by distance from target.
type SuggestionPriority string

const (
	PriorityHigh   SuggestionPriority = "HIGH"
	PriorityMedium SuggestionPriority = "MEDIUM"
	PriorityLow    SuggestionPriority = "LOW"
)

// Suggestion is a threshold-triggered recommendation attached to a result.
type Suggestion struct {
	Type        SuggestionType     `json:"type"`
	Priority    SuggestionPriority `json:"priority"`
	Description string             `json:"description"`
}

// SchedulingMetrics summarizes a run quantitatively.
type SchedulingMetrics struct {
	TotalSlots         int                `json:"total_slots"`
	AssignedSlots      int                `json:"assigned_slots"`
	CoverageRate       float64            `json:"coverage_rate"`
	TotalCost          float64            `json:"total_cost"`
	AverageCostPerGame float64            `json:"average_cost_per_game"`
	Utilization        map[string]float64 `json:"utilization,omitempty"`      // by referee id
	TravelMiles        map[string]float64 `json:"travel_miles,omitempty"`     // by referee id
	WorkloadBalance    float64            `json:"workload_balance"`
	SatisfactionScore  float64            `json:"satisfaction_score"`
	ObjectiveValue     float64            `json:"objective_value"`
	Iterations         int                `json:"iterations"`
}

// SchedulingResult is the full output of one run.
type SchedulingResult struct {
	RunID           string            `json:"run_id"`
	Success         bool              `json:"success"`
	Assignments     []Assignment      `json:"assignments"`
	UnassignedGames []UnassignedGame  `json:"unassigned_games,omitempty"`
	Conflicts       []Conflict        `json:"conflicts,omitempty"`
	Metrics         SchedulingMetrics `json:"metrics"`
	Suggestions     []Suggestion      `json:"suggestions,omitempty"`
}
