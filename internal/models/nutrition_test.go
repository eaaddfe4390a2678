package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTotalFor(t *testing.T) {
	per100 := NutritionVector{Protein: 10.25, Carbohydrates: 20, Fat: 3.5, Calories: 52, Fiber: 2.4, Sodium: 1, Sugar: 10.4}
	got := TotalFor(per100, 150)
	want := NutritionVector{Protein: 15.4, Carbohydrates: 30, Fat: 5.3, Calories: 78, Fiber: 3.6, Sodium: 1.5, Sugar: 15.6}
	if got != want {
		t.Errorf("TotalFor: got %+v, want %+v", got, want)
	}

	if zero := TotalFor(per100, 0); zero != (NutritionVector{}) {
		t.Errorf("zero weight: got %+v", zero)
	}
}

func TestRound1(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.05, 0.1},
		{0.25, 0.3},
		{350.5, 350.5},
		{93.6000001, 93.6},
		{-0.25, -0.3},
	}
	for _, c := range cases {
		if got := Round1(c.in); got != c.want {
			t.Errorf("Round1(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNutritionVectorSet(t *testing.T) {
	var v NutritionVector
	for i, k := range NutritionFields {
		v.Set(k, float64(i+1))
	}
	v.Set("vitamin_c", 99)
	want := NutritionVector{Protein: 1, Carbohydrates: 2, Fat: 3, Calories: 4, Fiber: 5, Sodium: 6, Sugar: 7}
	if v != want {
		t.Errorf("got %+v, want %+v", v, want)
	}
}

func TestNutritionVectorJSONAlwaysHasAllKeys(t *testing.T) {
	data, err := json.Marshal(NutritionVector{})
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range NutritionFields {
		if !strings.Contains(string(data), fmt.Sprintf("%q:0", k)) {
			t.Errorf("missing key %s in %s", k, data)
		}
	}
}

func TestRecognitionResultJSON(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		in := Succeeded(Recognition{
			FoodName:         "番茄炒蛋",
			EstimatedWeightG: 200,
			NutritionPer100g: NutritionVector{Calories: 90},
			TotalNutrition:   NutritionVector{Calories: 180},
		})
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `"success":true`) {
			t.Errorf("missing tag: %s", data)
		}
		if !strings.Contains(string(data), `"vitamins":[]`) {
			t.Errorf("vitamins should default to []: %s", data)
		}

		var out RecognitionResult
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatal(err)
		}
		if !out.OK() || out.Success.FoodName != "番茄炒蛋" || out.Success.TotalNutrition.Calories != 180 {
			t.Errorf("unexpected decode: %+v", out.Success)
		}
	})

	t.Run("failure", func(t *testing.T) {
		in := Failed(KindNoFood, "no food detected", "")
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(string(data), "raw_response") {
			t.Errorf("empty raw response should be omitted: %s", data)
		}

		var out RecognitionResult
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatal(err)
		}
		if out.OK() || out.Failure.Kind != KindNoFood || out.Failure.Error != "no food detected" {
			t.Errorf("unexpected decode: %+v", out.Failure)
		}
	})

	t.Run("untagged error document", func(t *testing.T) {
		var out RecognitionResult
		if err := json.Unmarshal([]byte(`{"error":"boom","raw_response":"xyz"}`), &out); err != nil {
			t.Fatal(err)
		}
		if out.OK() || out.Failure.RawResponse == nil || *out.Failure.RawResponse != "xyz" {
			t.Errorf("unexpected decode: %+v", out)
		}
	})

	t.Run("empty variant", func(t *testing.T) {
		if _, err := json.Marshal(RecognitionResult{}); err == nil {
			t.Error("expected error for empty result")
		}
	})

	t.Run("null decodes as missing", func(t *testing.T) {
		out := Succeeded(Recognition{FoodName: "stale"})
		if err := json.Unmarshal([]byte(`null`), &out); err != nil {
			t.Fatal(err)
		}
		if out.OK() || out.Failure == nil || out.Failure.Kind != KindRecognitionParse {
			t.Fatalf("null should decode as a failure, got %+v", out)
		}
		if _, err := json.Marshal(out); err != nil {
			t.Errorf("decoded null must marshal again: %v", err)
		}
	})
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("upload: %w", NewError(KindStoreIO, "save metadata", errors.New("disk full")))
	if !errors.Is(err, ErrStoreIO) {
		t.Error("expected store io match")
	}
	if errors.Is(err, ErrInvalidContentType) {
		t.Error("unexpected content type match")
	}
	if KindOf(err) != KindStoreIO {
		t.Errorf("KindOf: got %q", KindOf(err))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("plain errors have no kind")
	}
	if got := err.Error(); got != "upload: store_io_failure: save metadata: disk full" {
		t.Errorf("message: got %q", got)
	}
}
