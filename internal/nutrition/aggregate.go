// Package nutrition rolls per-image recognition results into daily and weekly totals.
package nutrition

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/franckalain/foodmonster/internal/models"
)

// WeekDays is the number of days in a weekly summary.
const WeekDays = 7

// DailyTotal sums the successful recognitions uploaded on date.
// Sums are rounded once, after all additions; each food keeps its own total as stored.
func DailyTotal(store models.Store, date string) models.DailyTotal {
	var sum models.NutritionVector
	foods := []models.FoodSummary{}

	for filename, rec := range store {
		if rec.UploadDate != date || !rec.Recognition.OK() {
			continue
		}
		r := rec.Recognition.Success
		sum = sum.Add(r.TotalNutrition)
		foods = append(foods, models.FoodSummary{
			Filename:         filename,
			FoodName:         r.FoodName,
			UploadTime:       rec.UploadTime,
			EstimatedWeightG: r.EstimatedWeightG,
			TotalNutrition:   r.TotalNutrition,
		})
	}

	sort.Slice(foods, func(i, j int) bool {
		if !foods[i].UploadTime.Equal(foods[j].UploadTime) {
			return foods[i].UploadTime.Before(foods[j].UploadTime)
		}
		return foods[i].Filename < foods[j].Filename
	})

	return models.DailyTotal{
		Date:           date,
		FoodsCount:     len(foods),
		TotalNutrition: sum.Rounded(),
		Foods:          foods,
	}
}

// WeeklySummary returns one DailyTotal per date from referenceDate-6 through
// referenceDate, ascending. Days without foods are included with zero totals.
func WeeklySummary(store models.Store, referenceDate string) ([]models.DailyTotal, error) {
	ref, err := ParseDate(referenceDate)
	if err != nil {
		return nil, err
	}

	days := make([]models.DailyTotal, 0, WeekDays)
	for i := WeekDays - 1; i >= 0; i-- {
		date := ref.AddDate(0, 0, -i).Format(models.DateLayout)
		days = append(days, DailyTotal(store, date))
	}
	return days, nil
}

// ParseDate validates a YYYY-MM-DD date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(models.DateLayout, date, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return t, nil
}

// Loader supplies the current metadata document.
type Loader interface {
	Load(ctx context.Context) (models.Store, error)
}

// Reporter answers nutrition queries against the live store.
type Reporter struct {
	loader Loader
	now    func() time.Time
}

// NewReporter creates a Reporter reading from loader.
func NewReporter(loader Loader) *Reporter {
	return &Reporter{loader: loader, now: time.Now}
}

// WithClock replaces the clock used to anchor "today".
func (r *Reporter) WithClock(now func() time.Time) *Reporter {
	r.now = now
	return r
}

// Today returns the current local date.
func (r *Reporter) Today() string {
	return r.now().Format(models.DateLayout)
}

// Daily returns the totals for date, or for today when date is empty.
func (r *Reporter) Daily(ctx context.Context, date string) (models.DailyTotal, error) {
	if date == "" {
		date = r.Today()
	}
	if _, err := ParseDate(date); err != nil {
		return models.DailyTotal{}, err
	}
	store, err := r.loader.Load(ctx)
	if err != nil {
		return models.DailyTotal{}, err
	}
	return DailyTotal(store, date), nil
}

// Weekly returns the seven days ending today.
func (r *Reporter) Weekly(ctx context.Context) ([]models.DailyTotal, error) {
	store, err := r.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return WeeklySummary(store, r.Today())
}
