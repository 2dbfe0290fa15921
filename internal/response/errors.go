package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrEmailTaken         ErrCode = "EMAIL_TAKEN"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrStudentOnly     ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminOnly       ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound       ErrCode = "NOT_FOUND"
	ErrConflict       ErrCode = "CONFLICT"
	ErrQuestionInUse  ErrCode = "QUESTION_IN_USE"
	ErrRoleInUse      ErrCode = "ROLE_IN_USE"

	// ─── Exam lifecycle ────────────────────────────────────────────────
	ErrProfileRequired       ErrCode = "PROFILE_REQUIRED"
	ErrNoActiveSession       ErrCode = "NO_ACTIVE_SESSION"
	ErrAlreadySubmitted      ErrCode = "ALREADY_SUBMITTED"
	ErrAlreadyAdvanced       ErrCode = "ALREADY_ADVANCED"
	ErrInvalidState          ErrCode = "INVALID_STATE"
	ErrDeadlinePassed        ErrCode = "DEADLINE_PASSED"
	ErrInsufficientQuestions ErrCode = "INSUFFICIENT_QUESTIONS"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrEmailTaken:
		return "An account with this email already exists."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentOnly:
		return "This resource is restricted to candidates."
	case ErrAdminOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrQuestionInUse:
		return "This question has been used in an exam and can only be archived."
	case ErrRoleInUse:
		return "This role is still referenced and can only be archived."

	// ─── Exam lifecycle ────────────────────────────────────────────────
	case ErrProfileRequired:
		return "Complete your profile before starting the exam."
	case ErrNoActiveSession:
		return "No active exam session."
	case ErrAlreadySubmitted:
		return "Exam has already been submitted."
	case ErrAlreadyAdvanced:
		return "Exam is already in the practical section."
	case ErrInvalidState:
		return "This action is not allowed in the current exam state."
	case ErrDeadlinePassed:
		return "The exam deadline has passed."
	case ErrInsufficientQuestions:
		return "Not enough questions available for the selected role(s)."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
