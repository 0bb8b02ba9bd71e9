package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/encoding/charmap"

	"luxe/apperr"
)

const (
	MaxTripDays      = 14
	DefaultVibe      = "Cultural"
	DefaultTravelers = 2
)

// TripRequest is what the traveler asked for. Treat it as a value: copies never alias.
type TripRequest struct {
	Origin      string `json:"origin" validate:"required,max=120,printable"`
	Destination string `json:"destination" validate:"required,max=120,printable"`
	Days        int    `json:"days" validate:"required,min=1,max=14"`
	Budget      Budget `json:"budget"`
	Email       string `json:"email" validate:"required,email,printable"`
	Vibe        string `json:"vibe,omitempty" validate:"max=60,printable"`
	Travelers   int    `json:"travelers,omitempty" validate:"min=0,max=20"`
}

// Budget is either a named tier or a numeric amount in USD.
type Budget struct {
	Tier   string  `json:"tier,omitempty"`
	Amount float64 `json:"amount,omitempty"`
}

var budgetTiers = map[string]string{
	"standard":  "Standard",
	"budget":    "Standard",
	"mid":       "Mid-Range",
	"midrange":  "Mid-Range",
	"mid-range": "Mid-Range",
	"high-end":  "High-End",
	"highend":   "High-End",
	"luxury":    "Luxury",
}

var ErrBudget = errors.New("budget must be a tier (standard, mid, high-end, luxury) or a positive amount")

// ParseBudget accepts "mid", "Luxury", "5000" or "$5,000".
func ParseBudget(s string) (Budget, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Budget{}, ErrBudget
	}
	if _, ok := budgetTiers[strings.ToLower(s)]; ok {
		return Budget{Tier: strings.ToLower(s)}, nil
	}
	num := strings.NewReplacer("$", "", ",", "", "USD", "", "usd", "").Replace(s)
	amount, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil || amount <= 0 {
		return Budget{}, fmt.Errorf("%w: %q", ErrBudget, s)
	}
	return Budget{Amount: amount}, nil
}

func (b Budget) IsZero() bool { return b.Tier == "" && b.Amount == 0 }

func (b Budget) String() string {
	if b.Tier != "" {
		if label, ok := budgetTiers[strings.ToLower(b.Tier)]; ok {
			return label
		}
		return b.Tier
	}
	if b.Amount > 0 {
		return "$" + groupThousands(int64(b.Amount+0.5))
	}
	return ""
}

// UnmarshalText lets JSON bodies and CLI flags carry the budget as a plain string.
func (b *Budget) UnmarshalText(text []byte) error {
	parsed, err := ParseBudget(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// UnmarshalJSON also accepts a bare JSON number.
func (b *Budget) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		return b.UnmarshalText([]byte(t))
	case float64:
		if t <= 0 {
			return fmt.Errorf("%w: %v", ErrBudget, t)
		}
		*b = Budget{Amount: t}
		return nil
	}
	return ErrBudget
}

func (b Budget) MarshalText() ([]byte, error) {
	if b.Tier != "" {
		return []byte(b.Tier), nil
	}
	return []byte(strconv.FormatFloat(b.Amount, 'f', -1, 64)), nil
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var out strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		out.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if out.Len() > 0 {
			out.WriteByte(',')
		}
		out.WriteString(s[i : i+3])
	}
	return out.String()
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	// The document fonts are cp1252 only.
	_ = v.RegisterValidation("printable", func(fl validator.FieldLevel) bool {
		return Printable(fl.Field().String())
	})
	return v
}

// Printable reports whether every rune of s has a Windows-1252 encoding.
func Printable(s string) bool {
	for _, r := range s {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return false
		}
	}
	return true
}

// Normalize trims free-text fields and fills the optional ones the form may omit.
func (r TripRequest) Normalize() TripRequest {
	r.Origin = strings.TrimSpace(r.Origin)
	r.Destination = strings.TrimSpace(r.Destination)
	r.Email = strings.TrimSpace(r.Email)
	r.Vibe = strings.TrimSpace(r.Vibe)
	if r.Vibe == "" {
		r.Vibe = DefaultVibe
	}
	if r.Travelers == 0 {
		r.Travelers = DefaultTravelers
	}
	return r
}

// Validate reports every invalid field in one error wrapping apperr.ErrInvalidRequest.
func (r TripRequest) Validate() error {
	var problems []string
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s %s", fe.Field(), validationMessage(fe)))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}
	if r.Budget.IsZero() {
		problems = append(problems, "budget is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", apperr.ErrInvalidRequest, strings.Join(problems, "; "))
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "printable":
		return "contains characters the document fonts cannot print"
	default:
		return "is invalid"
	}
}
