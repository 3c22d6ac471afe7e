package response

// ErrCode is a typed error code enum for consistent error identification
// across HTML pages and JSON responses.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrSessionRequired    ErrCode = "SESSION_REQUIRED"
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrRoleNotAllowed     ErrCode = "ROLE_NOT_ALLOWED"
	ErrHandoffInvalid     ErrCode = "HANDOFF_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrAccessDenied   ErrCode = "ACCESS_DENIED"
	ErrNoCourseAccess ErrCode = "NO_COURSE_ACCESS"
	ErrForbidden      ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound       ErrCode = "NOT_FOUND"
	ErrLessonNotFound ErrCode = "LESSON_NOT_FOUND"

	// ─── PDF export ────────────────────────────────────────────────────
	ErrPDFUnavailable ErrCode = "PDF_UNAVAILABLE"
	ErrPDFFailed      ErrCode = "PDF_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrServiceUnavailable ErrCode = "SERVICE_UNAVAILABLE"
	ErrInternal           ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrSessionRequired:
		return "Please sign in to view course handouts."
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrRoleNotAllowed:
		return "Handouts are available to students and instructors only."
	case ErrHandoffInvalid:
		return "The sign-in link is invalid or has expired. Please open the handout from the portal again."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrAccessDenied:
		return "You do not have access to handouts for this class."
	case ErrNoCourseAccess:
		return "You are not enrolled in or assigned to this course."
	case ErrForbidden:
		return "The request could not be verified. Reload the page and try again."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The page you requested does not exist."
	case ErrLessonNotFound:
		return "There is no handout for this lesson."

	// ─── PDF export ────────────────────────────────────────────────────
	case ErrPDFUnavailable:
		return "PDF download is not available on this server right now."
	case ErrPDFFailed:
		return "The PDF could not be generated."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrServiceUnavailable:
		return "The handout service is temporarily unavailable. Please try again shortly."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}

// GetTitle returns the page heading for a given error code.
func GetTitle(code ErrCode) string {
	switch code {
	case ErrAccessDenied, ErrNoCourseAccess, ErrRoleNotAllowed, ErrForbidden:
		return "Access denied"
	case ErrNotFound, ErrLessonNotFound:
		return "Handout not found"
	case ErrPDFUnavailable, ErrPDFFailed:
		return "PDF download unavailable"
	case ErrRateLimitExceeded:
		return "Slow down"
	case ErrSessionRequired, ErrInvalidCredentials, ErrHandoffInvalid:
		return "Sign in required"
	default:
		return "Something went wrong"
	}
}
