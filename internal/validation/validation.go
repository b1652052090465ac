package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kjstillabower/homepage-weather/internal/models"
)

// ErrShapeMismatch is returned when a payload is missing a field or carries the wrong type.
var ErrShapeMismatch = errors.New("shape mismatch")

// ErrInvalidLang is returned for languages other than zh and en.
var ErrInvalidLang = errors.New("unsupported language")

// ErrInvalidProvider is returned for provider names that are not configured.
var ErrInvalidProvider = errors.New("unknown provider")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("condition", func(fl validator.FieldLevel) bool {
		return models.Condition(fl.Field().String()).Valid()
	})
	return v
}

// ShapeError lists the fields that failed validation. It matches ErrShapeMismatch.
type ShapeError struct {
	Fields []string
}

func (e *ShapeError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

// Is reports ErrShapeMismatch.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// Struct validates v against its `validate` tags. Failures are *ShapeError and
// name the offending fields by their JSON names.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fieldPath(fe.Namespace())+" ("+fe.Tag()+")")
		}
		return &ShapeError{Fields: fields}
	}
	return fmt.Errorf("%w: %v", ErrShapeMismatch, err)
}

// fieldPath drops the Go type name validator puts in front of the namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// weatherShape mirrors models.WeatherData with pointer fields so that absent
// and null fields can be told apart from zero values.
type weatherShape struct {
	Temp      *int    `json:"temp" validate:"required"`
	Condition *string `json:"condition" validate:"required,condition"`
	IconCode  *int    `json:"iconCode" validate:"required"`
	Location  *string `json:"location" validate:"required,min=1"`
	Humidity  *int    `json:"humidity" validate:"required,gte=0,lte=100"`
	WindSpeed *int    `json:"windSpeed" validate:"required,gte=0"`
	FeelsLike *int    `json:"feelsLike" validate:"required"`
	MinTemp   *int    `json:"minTemp" validate:"required"`
	MaxTemp   *int    `json:"maxTemp" validate:"required"`
	IsDay     *bool   `json:"isDay" validate:"required"`
}

// DecodeWeatherData parses raw JSON into a WeatherData, rejecting payloads where
// any field is missing, null, or of the wrong primitive type.
func DecodeWeatherData(raw []byte) (models.WeatherData, error) {
	var s weatherShape
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.WeatherData{}, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	if err := Struct(s); err != nil {
		return models.WeatherData{}, err
	}
	return models.WeatherData{
		Temp:      *s.Temp,
		Condition: models.Condition(*s.Condition),
		IconCode:  *s.IconCode,
		Location:  *s.Location,
		Humidity:  *s.Humidity,
		WindSpeed: *s.WindSpeed,
		FeelsLike: *s.FeelsLike,
		MinTemp:   *s.MinTemp,
		MaxTemp:   *s.MaxTemp,
		IsDay:     *s.IsDay,
	}, nil
}

// ValidateWeatherData checks an already-typed value against the same rules as
// DecodeWeatherData.
func ValidateWeatherData(d models.WeatherData) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	_, err = DecodeWeatherData(raw)
	return err
}

// ValidateLang trims and lowercases input and accepts only zh and en.
func ValidateLang(input string) (models.Lang, error) {
	l := models.Lang(strings.ToLower(strings.TrimSpace(input)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLang, input)
	}
	return l, nil
}

// ValidateProvider returns the normalized provider name if it is one of known.
func ValidateProvider(input string, known []string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(input))
	for _, k := range known {
		if p == k {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidProvider, input)
}
