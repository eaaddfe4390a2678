package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/franckalain/foodmonster/internal/models"
)

func record(at time.Time, name string, calories float64) models.ImageRecord {
	return models.NewImageRecord(name+".jpg", at, 1024, "image/jpeg", models.Succeeded(models.Recognition{
		FoodName:         name,
		EstimatedWeightG: 100,
		TotalNutrition:   models.NutritionVector{Calories: calories, Protein: 0.15},
	}))
}

func failed(at time.Time) models.ImageRecord {
	return models.NewImageRecord("blurry.jpg", at, 10, "image/jpeg",
		models.Failed(models.KindNoFood, "no food detected", ""))
}

func day(t *testing.T, date string, hour int) time.Time {
	t.Helper()
	d, err := ParseDate(date)
	if err != nil {
		t.Fatal(err)
	}
	return d.Add(time.Duration(hour) * time.Hour)
}

func TestDailyTotal(t *testing.T) {
	store := models.Store{
		"b.jpg":    record(day(t, "2024-01-01", 12), "pasta", 250.5),
		"a.jpg":    record(day(t, "2024-01-01", 8), "toast", 100.0),
		"fail.jpg": failed(day(t, "2024-01-01", 9)),
		"next.jpg": record(day(t, "2024-01-02", 8), "salad", 80),
	}

	got := DailyTotal(store, "2024-01-01")
	if got.TotalNutrition.Calories != 350.5 {
		t.Errorf("calories: got %v, want 350.5", got.TotalNutrition.Calories)
	}
	if got.FoodsCount != 2 || len(got.Foods) != 2 {
		t.Fatalf("foods_count: %d, foods: %d", got.FoodsCount, len(got.Foods))
	}
	if got.Foods[0].FoodName != "toast" || got.Foods[1].FoodName != "pasta" {
		t.Errorf("foods not ordered by upload time: %+v", got.Foods)
	}
	if got.Foods[1].TotalNutrition.Calories != 250.5 || got.Foods[1].Filename != "b.jpg" {
		t.Errorf("food summary: %+v", got.Foods[1])
	}
	// 0.15 + 0.15 rounded once after summing
	if got.TotalNutrition.Protein != 0.3 {
		t.Errorf("protein: %v", got.TotalNutrition.Protein)
	}
}

func TestDailyTotal_RoundsOnce(t *testing.T) {
	store := models.Store{}
	at := day(t, "2024-03-01", 0)
	for i, id := range []string{"1", "2", "3"} {
		store[id] = record(at.Add(time.Duration(i)*time.Minute), "snack", 0.04)
	}
	// Per-addend rounding would give 0.0; one final rounding gives 0.1.
	if got := DailyTotal(store, "2024-03-01").TotalNutrition.Calories; got != 0.1 {
		t.Errorf("got %v, want 0.1", got)
	}
}

func TestDailyTotal_Empty(t *testing.T) {
	got := DailyTotal(models.Store{}, "2024-01-01")
	if got.FoodsCount != 0 || got.Foods == nil || got.TotalNutrition != (models.NutritionVector{}) {
		t.Errorf("got %+v", got)
	}
}

func TestDailyTotal_SkipsStoredRecordsWithoutRecognition(t *testing.T) {
	var store models.Store
	doc := `{
		"null.jpg": {"upload_time": "2024-01-01T10:00:00", "recognition": null},
		"absent.jpg": {"upload_time": "2024-01-01T11:00:00.000001"}
	}`
	if err := json.Unmarshal([]byte(doc), &store); err != nil {
		t.Fatal(err)
	}
	store["ok.jpg"] = record(day(t, "2024-01-01", 12), "soup", 90)

	got := DailyTotal(store, "2024-01-01")
	if got.FoodsCount != 1 || got.TotalNutrition.Calories != 90 {
		t.Errorf("got %+v", got)
	}
}

func TestWeeklySummary(t *testing.T) {
	store := models.Store{
		"x.jpg": record(day(t, "2024-01-03", 10), "rice", 200),
		"y.jpg": record(day(t, "2023-12-31", 10), "cake", 400),
	}

	days, err := WeeklySummary(store, "2024-01-07")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-06", "2024-01-07"}
	if len(days) != len(want) {
		t.Fatalf("got %d entries", len(days))
	}
	for i, d := range days {
		if d.Date != want[i] {
			t.Errorf("entry %d: got %s, want %s", i, d.Date, want[i])
		}
	}
	if days[2].FoodsCount != 1 || days[2].TotalNutrition.Calories != 200 {
		t.Errorf("2024-01-03: %+v", days[2])
	}
	if days[0].FoodsCount != 0 {
		t.Errorf("outside the window must not count: %+v", days[0])
	}

	if _, err := WeeklySummary(models.Store{}, "2024-1-7"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestWeeklySummary_EmptyStore(t *testing.T) {
	days, err := WeeklySummary(models.Store{}, "2024-03-02")
	if err != nil {
		t.Fatal(err)
	}
	// Leap year window.
	if len(days) != WeekDays || days[0].Date != "2024-02-25" || days[4].Date != "2024-02-29" {
		t.Errorf("got %+v", days)
	}
}

type loaderFunc func(ctx context.Context) (models.Store, error)

func (f loaderFunc) Load(ctx context.Context) (models.Store, error) { return f(ctx) }

func TestReporter(t *testing.T) {
	store := models.Store{"a.jpg": record(day(t, "2024-05-10", 9), "eggs", 155)}
	clock := func() time.Time { return day(t, "2024-05-10", 18) }
	r := NewReporter(loaderFunc(func(context.Context) (models.Store, error) { return store, nil })).WithClock(clock)
	ctx := context.Background()

	t.Run("daily today", func(t *testing.T) {
		got, err := r.Daily(ctx, "")
		if err != nil {
			t.Fatal(err)
		}
		if got.Date != "2024-05-10" || got.FoodsCount != 1 {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("daily invalid date", func(t *testing.T) {
		if _, err := r.Daily(ctx, "10/05/2024"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("weekly anchored now", func(t *testing.T) {
		days, err := r.Weekly(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(days) != 7 || days[6].Date != "2024-05-10" || days[6].FoodsCount != 1 {
			t.Errorf("got %+v", days)
		}
	})

	t.Run("load error", func(t *testing.T) {
		boom := models.NewError(models.KindStoreIO, "load metadata", errors.New("disk gone"))
		bad := NewReporter(loaderFunc(func(context.Context) (models.Store, error) { return nil, boom }))
		if _, err := bad.Weekly(ctx); !errors.Is(err, models.ErrStoreIO) {
			t.Errorf("got %v", err)
		}
	})
}
