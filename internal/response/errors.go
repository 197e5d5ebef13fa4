package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden          ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly  ErrCode = "STUDENT_ACCESS_ONLY"
	ErrProfessorOnly      ErrCode = "PROFESSOR_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Session commands ──────────────────────────────────────────────
	ErrNoTasks         ErrCode = "NO_TASKS"
	ErrExamRunning     ErrCode = "EXAM_RUNNING"
	ErrNotActive       ErrCode = "NOT_ACTIVE"
	ErrNotPaused       ErrCode = "NOT_PAUSED"
	ErrNotRunning      ErrCode = "NOT_RUNNING"
	ErrInvalidDuration ErrCode = "INVALID_DURATION"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Email/index number or password is incorrect."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."

	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrProfessorOnly:
		return "This resource is restricted to professors."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	case ErrNotFound:
		return "Resource not found."

	case ErrNoTasks:
		return "This exam has no tasks and cannot be started."
	case ErrExamRunning:
		return "A session for this exam is already running."
	case ErrNotActive:
		return "The session is not active."
	case ErrNotPaused:
		return "The session is not paused."
	case ErrNotRunning:
		return "The session is neither active nor paused."
	case ErrInvalidDuration:
		return "Duration must be a positive number of minutes."

	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
