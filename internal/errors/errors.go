package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrBookNotFound is returned when a book is not found.
	ErrBookNotFound = errors.New("book not found")
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrLoanNotFound is returned when a loan is not found.
	ErrLoanNotFound = errors.New("loan not found")
	// ErrInsufficientCopies is returned when a book has fewer copies than requested.
	ErrInsufficientCopies = errors.New("not enough copies available")
	// ErrLoanAlreadyDecided is returned when approving or rejecting a loan that is no longer pending.
	ErrLoanAlreadyDecided = errors.New("loan has already been decided")
	// ErrLoanNotApproved is returned when returning a loan that was never approved.
	ErrLoanNotApproved = errors.New("loan is not approved")
	// ErrLoanAlreadyReturned is returned when a loan has already been returned.
	ErrLoanAlreadyReturned = errors.New("loan has already been returned")
	// ErrInvalidQuantity is returned when a loan asks for less than one copy.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrInvalidDates is returned when the due date is not after the start date.
	ErrInvalidDates = errors.New("due date must be after start date")
	// ErrEmailAlreadyUsed is returned when registering an email that already exists.
	ErrEmailAlreadyUsed = errors.New("email address is already in use")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailNotVerified is returned on login before the email was confirmed.
	ErrEmailNotVerified = errors.New("email address is not verified")
	// ErrInvalidVerificationToken is returned for unknown or already used tokens.
	ErrInvalidVerificationToken = errors.New("verification link is invalid or has already been used")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrForbidden is returned when the caller may not access a resource.
	ErrForbidden = errors.New("forbidden")
	// ErrBookHasLoans is returned when deleting a book still referenced by loans.
	ErrBookHasLoans = errors.New("book still has loans")
	// ErrUserHasLoans is returned when deleting a user still referenced by loans.
	ErrUserHasLoans = errors.New("user still has loans")
	// ErrInvalidImage is returned when an image payload cannot be decoded.
	ErrInvalidImage = errors.New("invalid image")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var mapping = []struct {
	err    error
	status int
	code   string
}{
	{ErrBookNotFound, http.StatusNotFound, "BOOK_NOT_FOUND"},
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrLoanNotFound, http.StatusNotFound, "LOAN_NOT_FOUND"},
	{ErrInsufficientCopies, http.StatusConflict, "INSUFFICIENT_COPIES"},
	{ErrLoanAlreadyDecided, http.StatusConflict, "LOAN_ALREADY_DECIDED"},
	{ErrLoanNotApproved, http.StatusConflict, "LOAN_NOT_APPROVED"},
	{ErrLoanAlreadyReturned, http.StatusConflict, "LOAN_ALREADY_RETURNED"},
	{ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY"},
	{ErrInvalidDates, http.StatusBadRequest, "INVALID_DATES"},
	{ErrEmailAlreadyUsed, http.StatusConflict, "EMAIL_ALREADY_USED"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrEmailNotVerified, http.StatusForbidden, "EMAIL_NOT_VERIFIED"},
	{ErrInvalidVerificationToken, http.StatusBadRequest, "INVALID_VERIFICATION_TOKEN"},
	{ErrInvalidRefreshToken, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrBookHasLoans, http.StatusConflict, "BOOK_HAS_LOANS"},
	{ErrUserHasLoans, http.StatusConflict, "USER_HAS_LOANS"},
	{ErrInvalidImage, http.StatusBadRequest, "INVALID_IMAGE"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors are unwrapped
// with errors.Is; anything unknown becomes a 500.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mapping {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, m.err.Error(), m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
