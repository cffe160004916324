package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/mind-engage/examgrade/internal/grades"
	"github.com/mind-engage/examgrade/internal/grading"
	"github.com/mind-engage/examgrade/internal/submission"
	"github.com/mind-engage/examgrade/internal/uploads"
)

const maxJSONBody = 1 << 20

var errMalformed = errors.New("malformed request body")

var (
	validate   = validator.New()
	translator ut.Translator
)

func init() {
	enLocale := en.New()
	translator, _ = ut.New(enLocale, enLocale).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report fields by their wire names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("questiontype", func(fl validator.FieldLevel) bool {
		return uploads.ValidQuestionType(fl.Field().String())
	})
	_ = validate.RegisterTranslation("questiontype", translator,
		func(t ut.Translator) error {
			return t.Add("questiontype", "{0} must be one of multiple-choice, true-false, short-answer, essay, mixed", false)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T("questiontype", fe.Field())
			return s
		},
	)
}

// validateStruct runs struct tags and folds failures into ErrInvalidInput.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		msgs := make([]string, len(ves))
		for i, fe := range ves {
			msgs[i] = fe.Translate(translator)
		}
		return fmt.Errorf("%w: %s", grading.ErrInvalidInput, strings.Join(msgs, "; "))
	}
	return err
}

// decodeJSON reads a JSON body. Wrong value types are invalid input;
// anything else that fails to parse is errMalformed.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(v)
	if err == nil {
		return nil
	}
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return fmt.Errorf("%w: %s: cannot use %s as %s", grading.ErrInvalidInput, te.Field, te.Value, te.Type)
	}
	return fmt.Errorf("%w: %v", errMalformed, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, grading.ErrInvalidInput), errors.Is(err, errMalformed):
		return http.StatusBadRequest
	case errors.Is(err, submission.ErrNotFound),
		errors.Is(err, submission.ErrNoNeighbor),
		errors.Is(err, grading.ErrUnknownItem),
		errors.Is(err, uploads.ErrNotFound),
		errors.Is(err, grades.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps err to a status. Server errors are logged and answered
// with the generic message so internals do not leak.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, generic string) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.ErrorContext(r.Context(), generic, "err", err, "path", r.URL.Path)
		msg = generic
	}
	writeJSON(w, code, errorBody{Error: msg})
}
