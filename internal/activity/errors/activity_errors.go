package activityerrors

import (
	"net/http"

	"go-presence/internal/shared/apperror"
)

var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrUnknownActivityType = apperror.New(
		apperror.CodeInvalidInput,
		"unknown activity type",
		http.StatusBadRequest,
	)
	ErrActivityNotFound = apperror.New(
		apperror.CodeNotFound,
		"activity not found",
		http.StatusNotFound,
	)
	ErrActivityAlreadyOpen = apperror.New(
		apperror.CodeConflict,
		"another activity was started concurrently",
		http.StatusConflict,
	)
)
