// Package handlers implements the REST endpoints of the synergy API.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/ramonehamilton/clash-synergy/internal/api/response"
	"github.com/ramonehamilton/clash-synergy/internal/logging"
	"github.com/ramonehamilton/clash-synergy/internal/royale/errs"
	"github.com/ramonehamilton/clash-synergy/internal/royale/recommendations"
	"github.com/ramonehamilton/clash-synergy/internal/service"
	"github.com/ramonehamilton/clash-synergy/internal/storage/models"
)

// Recommender is the query surface the handlers need. *service.Service
// implements it.
type Recommender interface {
	Recommend(selected []string, topN int) (*recommendations.Result, error)
	Explain(selected []string, candidate string) (*recommendations.Recommendation, error)
	Similar(name string, limit int) ([]*recommendations.SimilarCard, error)
	Cards() ([]*models.Card, error)
	Card(name string) (*models.Card, bool, error)
}

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report JSON field names rather than Go names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// decodeRequest reads a JSON body into v and validates its struct tags. Every
// failure is a *errs.ValidationError.
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return errs.Validationf("failed to read request body: %v", err)
	}
	if len(body) == 0 {
		return errs.Validationf("request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errs.Validationf("invalid request body: %v", err)
	}
	return validateStruct(v)
}

func validateStruct(v interface{}) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs.Validationf("invalid request: %v", err)
	}

	messages := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		messages[i] = describeFieldError(fe)
	}
	return errs.Validationf("%s", strings.Join(messages, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// writeError maps domain errors onto HTTP statuses. Validation failures are
// always client errors.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *errs.ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(w, verr)
	case errors.Is(err, service.ErrNotLoaded):
		response.ServiceUnavailable(w, err)
	default:
		log := logging.Component("api")
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		response.InternalError(w, errors.New("internal error"))
	}
}
