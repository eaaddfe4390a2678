package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
)

// NutritionVector holds the seven nutrition values tracked for a food.
// All fields are always serialized, zero when unknown.
type NutritionVector struct {
	Protein       float64 `json:"protein"`       // grams
	Carbohydrates float64 `json:"carbohydrates"` // grams
	Fat           float64 `json:"fat"`           // grams
	Calories      float64 `json:"calories"`      // kcal
	Fiber         float64 `json:"fiber"`         // grams
	Sodium        float64 `json:"sodium"`        // milligrams
	Sugar         float64 `json:"sugar"`         // grams
}

// NutritionFields lists the vector keys in the order the model is asked for them.
var NutritionFields = []string{"protein", "carbohydrates", "fat", "calories", "fiber", "sodium", "sugar"}

// Add returns the field-wise sum of v and o.
func (v NutritionVector) Add(o NutritionVector) NutritionVector {
	return NutritionVector{
		Protein:       v.Protein + o.Protein,
		Carbohydrates: v.Carbohydrates + o.Carbohydrates,
		Fat:           v.Fat + o.Fat,
		Calories:      v.Calories + o.Calories,
		Fiber:         v.Fiber + o.Fiber,
		Sodium:        v.Sodium + o.Sodium,
		Sugar:         v.Sugar + o.Sugar,
	}
}

// Scale multiplies every field by f.
func (v NutritionVector) Scale(f float64) NutritionVector {
	return NutritionVector{
		Protein:       v.Protein * f,
		Carbohydrates: v.Carbohydrates * f,
		Fat:           v.Fat * f,
		Calories:      v.Calories * f,
		Fiber:         v.Fiber * f,
		Sodium:        v.Sodium * f,
		Sugar:         v.Sugar * f,
	}
}

// Rounded rounds every field to one decimal place.
func (v NutritionVector) Rounded() NutritionVector {
	return NutritionVector{
		Protein:       Round1(v.Protein),
		Carbohydrates: Round1(v.Carbohydrates),
		Fat:           Round1(v.Fat),
		Calories:      Round1(v.Calories),
		Fiber:         Round1(v.Fiber),
		Sodium:        Round1(v.Sodium),
		Sugar:         Round1(v.Sugar),
	}
}

// Set assigns value to the field named by key. Unknown keys are ignored.
func (v *NutritionVector) Set(key string, value float64) {
	switch key {
	case "protein":
		v.Protein = value
	case "carbohydrates":
		v.Carbohydrates = value
	case "fat":
		v.Fat = value
	case "calories":
		v.Calories = value
	case "fiber":
		v.Fiber = value
	case "sodium":
		v.Sodium = value
	case "sugar":
		v.Sugar = value
	}
}

// Get returns the field named by key, 0 for unknown keys.
func (v NutritionVector) Get(key string) float64 {
	switch key {
	case "protein":
		return v.Protein
	case "carbohydrates":
		return v.Carbohydrates
	case "fat":
		return v.Fat
	case "calories":
		return v.Calories
	case "fiber":
		return v.Fiber
	case "sodium":
		return v.Sodium
	case "sugar":
		return v.Sugar
	}
	return 0
}

// Round1 rounds x to one decimal place, halves away from zero.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// TotalFor scales a per-100g vector to weightG grams, rounding each field once.
func TotalFor(per100g NutritionVector, weightG float64) NutritionVector {
	return NutritionVector{
		Protein:       Round1(per100g.Protein * weightG / 100),
		Carbohydrates: Round1(per100g.Carbohydrates * weightG / 100),
		Fat:           Round1(per100g.Fat * weightG / 100),
		Calories:      Round1(per100g.Calories * weightG / 100),
		Fiber:         Round1(per100g.Fiber * weightG / 100),
		Sodium:        Round1(per100g.Sodium * weightG / 100),
		Sugar:         Round1(per100g.Sugar * weightG / 100),
	}
}

// Recognition is a successful identification of the food in an image.
type Recognition struct {
	FoodName         string          `json:"food_name"`
	Description      string          `json:"description"`
	EstimatedWeightG float64         `json:"estimated_weight_g"`
	NutritionPer100g NutritionVector `json:"nutrition_per_100g"`
	TotalNutrition   NutritionVector `json:"total_nutrition"`
	Vitamins         []string        `json:"vitamins"`
	Note             string          `json:"note,omitempty"` // set only when vision is disabled
}

// RecognitionFailure records why an image could not be turned into a Recognition.
type RecognitionFailure struct {
	Kind        ErrorKind `json:"kind"`
	Error       string    `json:"error"`
	RawResponse *string   `json:"raw_response,omitempty"`
}

// RecognitionResult is either a Success or a Failure, never both.
type RecognitionResult struct {
	Success *Recognition
	Failure *RecognitionFailure
}

// Succeeded wraps r as a successful result.
func Succeeded(r Recognition) RecognitionResult {
	if r.Vitamins == nil {
		r.Vitamins = []string{}
	}
	return RecognitionResult{Success: &r}
}

// Failed builds a failed result. raw may be empty, in which case no raw response is kept.
func Failed(kind ErrorKind, msg, raw string) RecognitionResult {
	f := &RecognitionFailure{Kind: kind, Error: msg}
	if raw != "" {
		f.RawResponse = &raw
	}
	return RecognitionResult{Failure: f}
}

// OK reports whether the result is a Success.
func (r RecognitionResult) OK() bool {
	return r.Success != nil
}

type successJSON struct {
	Success bool `json:"success"`
	*Recognition
}

type failureJSON struct {
	Success bool `json:"success"`
	*RecognitionFailure
}

// MarshalJSON flattens the variant into one object tagged by "success".
func (r RecognitionResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.Success != nil:
		return json.Marshal(successJSON{Success: true, Recognition: r.Success})
	case r.Failure != nil:
		return json.Marshal(failureJSON{Success: false, RecognitionFailure: r.Failure})
	default:
		return nil, errors.New("recognition result has no variant set")
	}
}

// MissingRecognition is the result given to stored records that carry no recognition.
func MissingRecognition() RecognitionResult {
	return Failed(KindRecognitionParse, "missing recognition", "")
}

// UnmarshalJSON reads the "success" tag and decodes the matching variant.
// Documents without the tag are treated as failures when they carry an "error" key.
// null decodes to MissingRecognition, so a decoded result always has a variant.
func (r *RecognitionResult) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = MissingRecognition()
		return nil
	}
	var tag struct {
		Success *bool           `json:"success"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}

	success := tag.Error == nil
	if tag.Success != nil {
		success = *tag.Success
	}

	*r = RecognitionResult{}
	if success {
		var s Recognition
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s.Vitamins == nil {
			s.Vitamins = []string{}
		}
		r.Success = &s
		return nil
	}

	var f RecognitionFailure
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	r.Failure = &f
	return nil
}
