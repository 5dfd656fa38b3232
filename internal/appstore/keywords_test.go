package appstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterKeywords(t *testing.T) {
	tests := []struct {
		name    string
		content string
		exclude []string
		want    []string
	}{
		{
			name:    "trims and lower-cases",
			content: " Sleep ,Meditation,  BREATHING ",
			want:    []string{"sleep", "meditation", "breathing"},
		},
		{
			name:    "drops stop words",
			content: "iPhone,sleep,App Store,iPad,ios apps,apple,focus",
			want:    []string{"sleep", "focus"},
		},
		{
			name:    "drops own name and subtitle",
			content: "Calm,sleep,Sleep & Meditation,anxiety",
			exclude: []string{"Calm", "Sleep & meditation"},
			want:    []string{"sleep", "anxiety"},
		},
		{
			name:    "drops empties and repeats, keeps order",
			content: "focus,,timer, Focus ,pomodoro",
			want:    []string{"focus", "timer", "pomodoro"},
		},
		{
			name:    "empty content",
			content: "",
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterKeywords(tt.content, tt.exclude...))
		})
	}
}
