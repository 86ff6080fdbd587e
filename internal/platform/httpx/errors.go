package httpx

import (
	"net/http"

	"github.com/marisol-pos/marisol/internal/shared"
)

// RespondError maps a kind-tagged domain error to an RFC7807 response.
func RespondError(w http.ResponseWriter, err error) {
	switch shared.KindOf(err) {
	case shared.KindValidation:
		Problem(w, http.StatusBadRequest, "Validation Failed", shared.UserSafeMessage(err))
	case shared.KindNotFound:
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case shared.KindConflict:
		Problem(w, http.StatusConflict, "Conflict", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
	}
}
