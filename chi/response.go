package chi

import (
	"encoding/json"
	"net/http"

	"github.com/fwojciec/listgrab"
)

type failureResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// statusFor maps an error code to the HTTP status returned to clients.
func statusFor(code string) int {
	switch code {
	case listgrab.EINVALIDURL, listgrab.EINVALID:
		return http.StatusBadRequest
	case listgrab.ENOTFOUND, listgrab.EMALFORMED:
		return http.StatusUnprocessableEntity
	case listgrab.ENETWORK, listgrab.EHTTPSTATUS:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the failure envelope for err. Unclassified errors are
// reported without their details.
func writeError(w http.ResponseWriter, err error) {
	code := listgrab.ErrorCode(err)
	writeFailure(w, statusFor(code), code, listgrab.ErrorMessage(err))
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, failureResponse{
		Success:   false,
		Error:     message,
		ErrorType: code,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
