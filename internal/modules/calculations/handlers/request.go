package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FlexFloat accepts a JSON number or a numeric string ("1.4632", "1,4632").
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%q is not a number", s)
		}
		*f = FlexFloat(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%s is not a number", string(data))
	}
	*f = FlexFloat(v)
	return nil
}

// FlexInt accepts a JSON integer or an integer string.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (i *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*i = 0
			return nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%q is not an integer", s)
		}
		*i = FlexInt(v)
		return nil
	}

	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%s is not an integer", string(data))
	}
	*i = FlexInt(v)
	return nil
}

// CalculateRequest is the body of POST /api/calculate. The French field names are
// accepted for clients of the original form.
type CalculateRequest struct {
	Density         *FlexFloat `json:"density"`
	Densite         *FlexFloat `json:"densite"`
	Refraction      *FlexFloat `json:"refraction"`
	RefractionIndex *FlexFloat `json:"refractionIndex"`
	Recipe          string     `json:"recipe"`
	FichierExcel    string     `json:"fichier_excel"`
	MeasurementType string     `json:"measurement_type"`
	Choix           string     `json:"choix"`
	LotCount        *FlexInt   `json:"lot_count"`
	NbLots          *FlexInt   `json:"nb_lots"`
}

// calculateInput is the normalized, validated request.
type calculateInput struct {
	Density         *float64 `json:"density" validate:"required,finite"`
	Refraction      *float64 `json:"refraction" validate:"required,finite"`
	Recipe          string   `json:"recipe" validate:"required,max=255"`
	MeasurementType string   `json:"measurement_type" validate:"max=64"`
	LotCount        int      `json:"lot_count" validate:"gte=0,lte=100000"`
}

func (req CalculateRequest) normalize() calculateInput {
	in := calculateInput{
		Density:         firstFloat(req.Density, req.Densite),
		Refraction:      firstFloat(req.Refraction, req.RefractionIndex),
		Recipe:          strings.TrimSpace(firstString(req.Recipe, req.FichierExcel)),
		MeasurementType: strings.TrimSpace(firstString(req.MeasurementType, req.Choix)),
	}
	if req.LotCount != nil {
		in.LotCount = int(*req.LotCount)
	} else if req.NbLots != nil {
		in.LotCount = int(*req.NbLots)
	}
	return in
}

func firstFloat(values ...*FlexFloat) *float64 {
	for _, v := range values {
		if v != nil {
			f := float64(*v)
			return &f
		}
	}
	return nil
}

func firstString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.Float64 && field.Kind() != reflect.Float32 {
			return false
		}
		f := field.Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

// validationMessage turns validator errors into one user-facing sentence.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "finite":
			parts = append(parts, fe.Field()+" must be a finite number")
		default:
			parts = append(parts, fe.Field()+" is out of range")
		}
	}
	return strings.Join(parts, "; ")
}
