package handlers

import (
	"errors"
	"net/http"

	"phonesim/pkg/models"
	"phonesim/pkg/utils"
)

// writeErr maps structured failures to their HTTP status; anything else is
// a 500.
func writeErr(w http.ResponseWriter, err error) {
	var f *models.Failure
	if errors.As(err, &f) {
		utils.JSONFailure(w, failureStatus(f.Code), f)
		return
	}
	utils.JSONError(w, http.StatusInternalServerError, err.Error())
}

func failureStatus(code string) int {
	switch code {
	case models.CodeThreadNotFound:
		return http.StatusNotFound
	case models.CodeContactNotAvailable:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
