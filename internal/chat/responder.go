package chat

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

const (
	IntentGeneral      = "general"
	fallbackConfidence = 0.85
)

type Reply struct {
	Text       string
	Confidence float64
	Intent     string
}

type rule struct {
	intent     string
	keywords   []string
	confidence float64
	text       string
}

// Rules are checked in order; the first rule with a keyword contained in the
// lowercased utterance wins.
var rules = []rule{
	{
		intent:     "risk_assessment",
		keywords:   []string{"risk", "prediction"},
		confidence: 0.90,
		text:       "Based on heart health analysis, I can help interpret risk factors. High blood pressure, elevated blood sugar, and chest pain patterns are key indicators. Would you like me to explain any specific risk factors?",
	},
	{
		intent:     "blood_pressure",
		keywords:   []string{"blood pressure", "bp"},
		confidence: 0.92,
		text:       "Blood pressure is crucial for heart health! Normal BP is typically below 120/80 mmHg. High BP (≥140/90) increases heart disease risk. Are you monitoring your BP regularly? I can suggest lifestyle changes to help manage it.",
	},
	{
		intent:     "chest_pain",
		keywords:   []string{"chest pain", "angina"},
		confidence: 0.88,
		text:       "Chest pain can vary in type and significance. Typical angina feels like pressure during exertion, while atypical may be sharp or burning. Non-anginal pain is usually not heart-related. If experiencing chest pain, please consult a healthcare provider immediately!",
	},
	{
		intent:     "blood_sugar",
		keywords:   []string{"sugar", "diabetes", "glucose", "insulin"},
		confidence: 0.89,
		text:       "Blood sugar control matters for your heart. Fasting glucose above 120 mg/dL is a recognized risk factor, and diabetes roughly doubles the risk of heart disease. Regular testing, a balanced diet and staying active all help. Would you like tips on keeping your levels steady?",
	},
	{
		intent:     "lifestyle",
		keywords:   []string{"lifestyle", "diet", "exercise"},
		confidence: 0.87,
		text:       "Heart-healthy habits include: regular exercise (150 min/week), Mediterranean diet, stress management, adequate sleep, and avoiding smoking. Small changes make big differences! What area would you like to focus on?",
	},
	{
		intent:     "technology",
		keywords:   []string{"technology", "algorithm", "machine learning", "neural", "model", "how does it work", "how do you work"},
		confidence: 0.86,
		text:       "Your ECG image is digitized and analyzed by a neural network trained on thousands of labeled recordings. It estimates the probability of several cardiac conditions and turns them into a risk score from 0 to 100. It supports, but never replaces, a doctor's assessment.",
	},
	{
		intent:     "family_history",
		keywords:   []string{"family history", "family", "genetic", "hereditary", "inherit"},
		confidence: 0.88,
		text:       "Family history is an important piece of the picture. Having a parent or sibling with early heart disease raises your own risk, even though genes are not destiny. Sharing this with your doctor helps them decide how closely to monitor you. Do you know of any heart conditions in your family?",
	},
	{
		intent:     "smoking",
		keywords:   []string{"smok", "tobacco", "cigarette", "nicotine", "vape"},
		confidence: 0.91,
		text:       "Smoking is one of the strongest preventable risk factors for heart disease. Within a year of quitting, the excess risk of coronary heart disease drops by about half. Nicotine replacement, counseling and support groups can all help. Would you like some resources for quitting?",
	},
}

var fallbacks = []func(name string) string{
	func(name string) string {
		return fmt.Sprintf("That's an excellent question%s! Heart health is complex, and I'm here to help you understand it better. Could you be more specific about what you'd like to know?", withName(name))
	},
	func(string) string {
		return "I appreciate you asking about your heart health! Based on current medical research, I can provide evidence-based information. What specific aspect concerns you most?"
	},
	func(name string) string {
		return fmt.Sprintf("Your heart health journey is unique%s! I can help explain medical terms, interpret results, or discuss prevention strategies. What would be most helpful right now?", withName(name))
	},
}

func withName(name string) string {
	if name == "" {
		return ""
	}
	return ", " + name
}

// Responder maps an utterance to a canned reply. It is safe for concurrent use.
type Responder struct {
	pick func(n int) int
}

func NewResponder() *Responder {
	return &Responder{pick: rand.IntN}
}

// NewResponderWithPicker is used where fallback selection must be predictable.
func NewResponderWithPicker(pick func(n int) int) *Responder {
	return &Responder{pick: pick}
}

func (r *Responder) Respond(utterance, displayName string) Reply {
	lower := strings.ToLower(utterance)
	for _, rl := range rules {
		for _, kw := range rl.keywords {
			if strings.Contains(lower, kw) {
				return Reply{Text: rl.text, Confidence: rl.confidence, Intent: rl.intent}
			}
		}
	}

	return Reply{
		Text:       fallbacks[r.pick(len(fallbacks))](displayName),
		Confidence: fallbackConfidence,
		Intent:     IntentGeneral,
	}
}
