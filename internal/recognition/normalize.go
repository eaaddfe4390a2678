package recognition

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/franckalain/foodmonster/internal/ml"
	"github.com/franckalain/foodmonster/internal/models"
)

// StripCodeFence removes a surrounding markdown code fence, with or without a
// language tag, and returns the inner text trimmed.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")

	// Drop the tag line ("json", "JSON", empty) but never JSON content on the same line.
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	} else if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// CoerceFloat converts a decoded JSON value to a non-negative finite float.
// Numbers pass through, numeric strings are parsed, everything else is 0.
func CoerceFloat(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// NormalizeReply turns a classified model reply into a recognition result.
func NormalizeReply(reply ml.Reply) models.RecognitionResult {
	text, err := reply.Text()
	if err != nil {
		return models.Failed(models.KindRecognitionParse, err.Error(), ml.Truncate(reply.Raw, ml.MaxRawDiagnostic))
	}
	return ParseRecognition(text)
}

// ParseRecognition parses the model's JSON answer, fenced or not.
func ParseRecognition(text string) models.RecognitionResult {
	stripped := StripCodeFence(text)

	var parsed any
	if err := json.Unmarshal([]byte(stripped), &parsed); err != nil {
		return models.Failed(models.KindRecognitionParse, fmt.Sprintf("failed to parse model response: %v", err), text)
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return models.Failed(models.KindRecognitionParse, "model response is not a JSON object", text)
	}

	if msg, ok := obj["error"]; ok && msg != nil {
		return models.Failed(models.KindNoFood, errorMessage(msg), "")
	}

	var per100g models.NutritionVector
	if n, ok := obj["nutrition_per_100g"].(map[string]any); ok {
		for _, key := range models.NutritionFields {
			per100g.Set(key, CoerceFloat(n[key]))
		}
	}
	weight := CoerceFloat(obj["estimated_weight"])

	foodName := strings.TrimSpace(stringField(obj["food_name"]))
	if foodName == "" {
		foodName = "unknown"
	}

	return models.Succeeded(models.Recognition{
		FoodName:         foodName,
		Description:      stringField(obj["description"]),
		EstimatedWeightG: weight,
		NutritionPer100g: per100g,
		TotalNutrition:   models.TotalFor(per100g, weight),
		Vitamins:         stringList(obj["vitamins"]),
	})
}

// VisionDisabledResult is returned instead of calling a model when vision is off.
func VisionDisabledResult() models.RecognitionResult {
	return models.Succeeded(models.Recognition{
		FoodName:    "unknown",
		Description: "",
		Vitamins:    []string{},
		Note:        "vision recognition is disabled; the configured model cannot analyze images, so nutrition was not estimated",
	})
}

func errorMessage(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func stringField(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
