package responses

import (
	"encoding/json"
	"errors"
	"net/http"

	"mindcare-api/internal/apperror"
	"mindcare-api/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const serverError = "Server Error"

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Errors  []ValidationError `json:"errors"`
}

// SendJSON writes body as-is; used for envelopes that carry token/user/count beside data.
func SendJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func SendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	SendJSON(w, statusCode, ErrorResponse{
		Success: false,
		Error:   message,
	})
}

func SendSuccessResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	SendJSON(w, statusCode, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// SendMessage answers {success:true, message}.
func SendMessage(w http.ResponseWriter, statusCode int, message string) {
	SendJSON(w, statusCode, map[string]interface{}{
		"success": true,
		"message": message,
	})
}

func SendValidationError(w http.ResponseWriter, err error) {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	errs := make([]ValidationError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		errs = append(errs, ValidationError{
			Field:   fe.Field(),
			Message: utils.ValidationMessage(fe),
		})
	}

	SendJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Success: false,
		Error:   "Validation failed",
		Errors:  errs,
	})
}

// ErrorReporter turns service errors into responses. Classified errors keep
// their message; anything else is logged and, in production, masked.
type ErrorReporter struct {
	Log        logrus.FieldLogger
	Production bool
}

func (er ErrorReporter) Send(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := apperror.As(err); ok {
		if appErr.Kind == apperror.KindInternal {
			er.Log.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		}
		SendErrorResponse(w, appErr.Kind.Status(), appErr.Message)
		return
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		SendValidationError(w, err)
		return
	}

	er.Log.WithError(err).WithField("path", r.URL.Path).Error("Unhandled error")
	message := err.Error()
	if er.Production {
		message = serverError
	}
	SendErrorResponse(w, http.StatusInternalServerError, message)
}
