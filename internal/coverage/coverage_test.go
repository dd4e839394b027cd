package coverage

import (
	"reflect"
	"testing"

	"github.com/mmeshcher/eduaccess-system/internal/model"
)

func levels(durations ...int) []model.Level {
	res := make([]model.Level, 0, len(durations))
	for i, d := range durations {
		res = append(res, model.Level{Order: i + 1, DurationDays: d})
	}
	return res
}

func TestProject(t *testing.T) {
	tests := []struct {
		name          string
		planDays      int
		levels        []model.Level
		want          []LevelCoverage
		wantRemaining int
	}{
		{
			name:     "quarterly plan over three levels",
			planDays: 90,
			levels:   levels(30, 40, 50),
			want: []LevelCoverage{
				{Level: 1, Coverage: Full},
				{Level: 2, Coverage: Full},
				{Level: 3, Coverage: Partial, CoveredDays: 20},
			},
			wantRemaining: 0,
		},
		{
			name:     "plan longer than curriculum",
			planDays: 150,
			levels:   levels(30, 40),
			want: []LevelCoverage{
				{Level: 1, Coverage: Full},
				{Level: 2, Coverage: Full},
			},
			wantRemaining: 80,
		},
		{
			name:     "exact boundary leaves next level uncovered",
			planDays: 30,
			levels:   levels(30, 40),
			want: []LevelCoverage{
				{Level: 1, Coverage: Full},
				{Level: 2, Coverage: None},
			},
			wantRemaining: 0,
		},
		{
			name:     "zero days covers nothing",
			planDays: 0,
			levels:   levels(30),
			want: []LevelCoverage{
				{Level: 1, Coverage: None},
			},
			wantRemaining: 0,
		},
		{
			name:          "empty curriculum keeps all days",
			planDays:      90,
			levels:        nil,
			want:          []LevelCoverage{},
			wantRemaining: 90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, remaining := Project(tt.planDays, tt.levels)

			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("coverage = %+v, want %+v", got, tt.want)
			}
			if remaining != tt.wantRemaining {
				t.Fatalf("remaining = %d, want %d", remaining, tt.wantRemaining)
			}
		})
	}
}

func TestProject_DoesNotMutateInput(t *testing.T) {
	in := levels(30, 40)
	Project(50, in)

	if in[0].DurationDays != 30 || in[1].DurationDays != 40 {
		t.Fatalf("input levels were mutated: %+v", in)
	}
}
