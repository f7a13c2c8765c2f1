package shared

const (
	UserID    = "user_id"
	SessionID = "session_id"

	// Hearts economy
	MaxHearts          = 5
	PointsPerChallenge = 10
	RefillCost         = 20

	ChallengeTypeSelect = "SELECT"
	ChallengeTypeAssist = "ASSIST"

	// Business-condition codes surfaced to the client. These are expected
	// outcomes that drive UI, not failures.
	ErrCodeHearts             = "hearts"
	ErrCodePractice           = "practice"
	ErrCodeInvalidChallenge   = "invalid_challenge"
	ErrCodeInsufficientPoints = "insufficient_points"
	ErrCodeHeartsFull         = "hearts_full"

	RoleUser  = "user"
	RoleAdmin = "admin"
)
