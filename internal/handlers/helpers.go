package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"mindcare-api/internal/responses"
	"mindcare-api/internal/utils"

	"github.com/gorilla/mux"
)

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		responses.SendErrorResponse(w, http.StatusBadRequest, "Invalid request format")
		return false
	}
	if err := utils.Validate.Struct(dst); err != nil {
		responses.SendValidationError(w, err)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		responses.SendErrorResponse(w, http.StatusBadRequest, "Invalid ID")
		return 0, false
	}
	return id, true
}

// queryInt returns def for a missing or unparsable parameter.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
