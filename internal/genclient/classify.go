package genclient

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/nanobanan/banana/internal/db/models"
)

// ClassifiedError is the normalized failure shape every upstream error is
// reduced to before the engine sees it.
type ClassifiedError struct {
	Kind    models.ErrorKind
	Message string
	Err     error
}

func (e *ClassifiedError) Error() string {
	return e.Message
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Kind extracts the classification from an error. Anything that is not a
// ClassifiedError is unknown.
func Kind(err error) models.ErrorKind {
	var cerr *ClassifiedError
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrorKindTransient
	}
	return models.ErrorKindUnknown
}

// classify normalizes a raw API failure into exactly one error kind.
func classify(err error) *ClassifiedError {
	kind := models.ErrorKindUnknown

	var gerr *googleapi.Error
	var nerr net.Error

	switch {
	case errors.As(err, &gerr):
		kind = classifyHTTP(gerr)
	case errors.Is(err, context.DeadlineExceeded):
		kind = models.ErrorKindTransient
	case errors.As(err, &nerr) && nerr.Timeout():
		kind = models.ErrorKindTransient
	}

	return &ClassifiedError{
		Kind:    kind,
		Message: err.Error(),
		Err:     err,
	}
}

func classifyHTTP(gerr *googleapi.Error) models.ErrorKind {
	switch {
	case gerr.Code == 429:
		// Exhausted quota will not recover on retry; a rate limit will.
		if strings.Contains(strings.ToLower(gerr.Message), "quota") {
			return models.ErrorKindPermanent
		}
		return models.ErrorKindTransient
	case gerr.Code >= 500:
		return models.ErrorKindTransient
	case gerr.Code == 400, gerr.Code == 401, gerr.Code == 403, gerr.Code == 404:
		return models.ErrorKindPermanent
	default:
		return models.ErrorKindUnknown
	}
}
