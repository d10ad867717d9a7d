package pkg

// enum of stop priority
type Priority uint8

const (
	PRIORITY_LOW Priority = iota
	PRIORITY_MEDIUM
	PRIORITY_HIGH
)

func GetPriority(p string) Priority {
	switch p {
	case "high":
		return PRIORITY_HIGH
	case "medium":
		return PRIORITY_MEDIUM
	default:
		return PRIORITY_LOW
	}
}

func (p Priority) String() string {
	switch p {
	case PRIORITY_HIGH:
		return "high"
	case PRIORITY_MEDIUM:
		return "medium"
	default:
		return "low"
	}
}

// enum of safety risk level
type RiskLevel uint8

const (
	RISK_LOW RiskLevel = iota
	RISK_MEDIUM
	RISK_HIGH
)

func (r RiskLevel) String() string {
	switch r {
	case RISK_LOW:
		return "low"
	case RISK_MEDIUM:
		return "medium"
	default:
		return "high"
	}
}

// enum of traffic level, scaled into a duration multiplier by the cost matrix builder
type TrafficLevel uint8

const (
	TRAFFIC_FREE_FLOW TrafficLevel = iota
	TRAFFIC_LIGHT
	TRAFFIC_MODERATE
	TRAFFIC_HEAVY
	TRAFFIC_SEVERE
)

func (t TrafficLevel) String() string {
	switch t {
	case TRAFFIC_FREE_FLOW:
		return "free_flow"
	case TRAFFIC_LIGHT:
		return "light"
	case TRAFFIC_MODERATE:
		return "moderate"
	case TRAFFIC_HEAVY:
		return "heavy"
	default:
		return "severe"
	}
}

// Penalty traffic level as a [0,1] edge penalty.
func (t TrafficLevel) Penalty() float64 {
	switch t {
	case TRAFFIC_FREE_FLOW:
		return 0.0
	case TRAFFIC_LIGHT:
		return 0.2
	case TRAFFIC_MODERATE:
		return 0.45
	case TRAFFIC_HEAVY:
		return 0.7
	default:
		return 1.0
	}
}

// enum of optimization objective
type Objective uint8

const (
	OBJECTIVE_DISTANCE Objective = iota
	OBJECTIVE_TIME
	OBJECTIVE_SAFETY
	OBJECTIVE_FUEL
	OBJECTIVE_UNKNOWN
)

func GetObjective(o string) Objective {
	switch o {
	case "distance":
		return OBJECTIVE_DISTANCE
	case "time":
		return OBJECTIVE_TIME
	case "safety":
		return OBJECTIVE_SAFETY
	case "fuel":
		return OBJECTIVE_FUEL
	default:
		return OBJECTIVE_UNKNOWN
	}
}

func (o Objective) String() string {
	switch o {
	case OBJECTIVE_DISTANCE:
		return "distance"
	case OBJECTIVE_TIME:
		return "time"
	case OBJECTIVE_SAFETY:
		return "safety"
	case OBJECTIVE_FUEL:
		return "fuel"
	default:
		return "unknown"
	}
}

// enum of route lifecycle state
type RouteState uint8

const (
	ROUTE_PLANNED RouteState = iota
	ROUTE_IN_PROGRESS
	ROUTE_DEVIATED
	ROUTE_REOPTIMIZING
	ROUTE_COMPLETED
	ROUTE_CANCELLED
)

func (s RouteState) String() string {
	switch s {
	case ROUTE_PLANNED:
		return "planned"
	case ROUTE_IN_PROGRESS:
		return "in_progress"
	case ROUTE_DEVIATED:
		return "deviated"
	case ROUTE_REOPTIMIZING:
		return "reoptimizing"
	case ROUTE_COMPLETED:
		return "completed"
	default:
		return "cancelled"
	}
}

const (
	INF_WEIGHT float64 = 1e15

	MAX_SAFETY_SCORE = 100.0
	MIN_SAFETY_SCORE = 0.0

	// risk level cutoffs on the 0-100 safety score
	RISK_LOW_CUTOFF    = 70.0
	RISK_MEDIUM_CUTOFF = 40.0

	// fallback estimates when the geospatial provider is unavailable
	DEFAULT_SPEED_KMH   = 30.0
	FREE_FLOW_SPEED_KMH = 60.0

	// liter per km, flat approximation for the fuel objective
	FUEL_CONSUMPTION_PER_KM = 0.08

	ROUTE_SIMILARITY_THRESHOLD = 0.9

	DEVIATION_DISTANCE_THRESHOLD_METERS = 500.0
	DEVIATION_ETA_SLIP_THRESHOLD_SECOND = 600.0

	PRIORITY_COST_TOLERANCE = 0.15

	MIN_RETRAIN_SAMPLES   = 50
	RETRAIN_R2_TOLERANCE  = 0.05
	VALIDATION_SPLIT_FRAC = 0.2

	FEEDBACK_DECAY_HALF_LIFE_DAYS = 30.0
)

const (
	DEBUG = false
)
