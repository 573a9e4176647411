package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"budgetwise/internal/core"
)

const maxBodyBytes = 1 << 16

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("transaction_type", func(fl validator.FieldLevel) bool {
		return core.TransactionType(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, ok := core.Lookup(core.Category(fl.Field().String()))
		return ok
	})
	return v
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// transactionRequest is the POST /api/transactions body. Amount is a decimal
// string or number; Date is YYYY-MM-DD or RFC 3339 and defaults to today.
type transactionRequest struct {
	Type        string      `json:"type" validate:"required,transaction_type"`
	Amount      amountField `json:"amount" validate:"required"`
	Category    string      `json:"category" validate:"required,category"`
	Description string      `json:"description" validate:"max=200"`
	Date        string      `json:"date" validate:"omitempty,max=40"`
}

// amountField accepts 12.5, "12.50" and "12,50".
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	if string(data) == "null" {
		return nil
	}
	*a = amountField(data)
	return nil
}

type budgetRequest struct {
	Limit *float64 `json:"limit" validate:"required,gte=0"`
}

// decodeJSON reads a bounded JSON body into dst and runs struct validation.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return wrap(ErrPayloadTooLarge, err)
		case errors.Is(err, io.EOF):
			return withMessage(ErrInvalidInput, "Request body is empty", err)
		default:
			return withMessage(ErrInvalidInput, "Malformed JSON body", err)
		}
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) *AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return wrap(ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return withMessage(ErrValidation, strings.Join(msgs, "; "), err)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "transaction_type":
		return fmt.Sprintf("%s must be income or expense", fe.Field())
	case "category":
		return fmt.Sprintf("%s is not a known category", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// toNewTransaction converts a validated request. Dates without a time are read
// in loc so they land in the intended calendar month.
func (req transactionRequest) toNewTransaction(now time.Time) (core.NewTransaction, error) {
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return core.NewTransaction{}, err
	}
	date, err := parseDate(req.Date, now)
	if err != nil {
		return core.NewTransaction{}, withMessage(ErrValidation, "date must be YYYY-MM-DD or RFC 3339", err)
	}
	return core.NewTransaction{
		Type:        core.TransactionType(req.Type),
		Amount:      amount,
		Category:    core.Category(req.Category),
		Description: sanitizeInput(req.Description),
		Date:        date,
	}, nil
}

func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// sanitizeInput drops control characters except tab and newlines.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
