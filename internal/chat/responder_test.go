package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRespond_Rules(t *testing.T) {
	r := NewResponder()

	tests := []struct {
		utterance  string
		intent     string
		confidence float64
	}{
		{"What about my blood pressure BP readings?", "blood_pressure", 0.92},
		{"Is my RISK high?", "risk_assessment", 0.90},
		{"my blood pressure prediction", "risk_assessment", 0.90},
		{"I sometimes feel chest pain", "chest_pain", 0.88},
		{"Tell me about angina", "chest_pain", 0.88},
		{"I have diabetes", "blood_sugar", 0.89},
		{"what should my glucose be", "blood_sugar", 0.89},
		{"Any diet tips?", "lifestyle", 0.87},
		{"How does it work?", "technology", 0.86},
		{"is this a neural network", "technology", 0.86},
		{"My father had heart disease, is it hereditary?", "family_history", 0.88},
		{"I want to quit smoking", "smoking", 0.91},
		{"I vape every day", "smoking", 0.91},
	}

	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			got := r.Respond(tt.utterance, "Dana")
			assert.Equal(t, tt.intent, got.Intent)
			assert.Equal(t, tt.confidence, got.Confidence)
			assert.NotEmpty(t, got.Text)

			again := r.Respond(strings.ToUpper(tt.utterance), "")
			assert.Equal(t, got, again, "rule replies do not depend on case or name")
		})
	}
}

func TestRespond_FallbackIsGeneral(t *testing.T) {
	r := NewResponder()

	for i := 0; i < 20; i++ {
		got := r.Respond("hello", "Dana")
		assert.Equal(t, IntentGeneral, got.Intent)
		assert.Equal(t, 0.85, got.Confidence)
		assert.NotEmpty(t, got.Text)
	}
}

func TestRespond_FallbackInterpolatesName(t *testing.T) {
	first := NewResponderWithPicker(func(int) int { return 0 })
	assert.Contains(t, first.Respond("hello", "Dana").Text, "excellent question, Dana!")
	assert.Contains(t, first.Respond("hello", "").Text, "excellent question!")

	second := NewResponderWithPicker(func(int) int { return 1 })
	assert.NotContains(t, second.Respond("hello", "Dana").Text, "Dana")

	third := NewResponderWithPicker(func(int) int { return 2 })
	assert.Contains(t, third.Respond("hi", "Dana").Text, "unique, Dana!")
}

func TestRespond_AfraidIsNotTechnology(t *testing.T) {
	got := NewResponderWithPicker(func(int) int { return 1 }).Respond("I'm afraid", "")
	assert.Equal(t, IntentGeneral, got.Intent)
}
