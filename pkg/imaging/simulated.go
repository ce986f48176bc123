package imaging

import (
	"context"
	"math"
	"math/rand/v2"
	"os"
	"sync"
)

// SimulatedClassifier produces random but internally consistent results. It is
// meant for development setups where the model and its Python runtime are absent.
type SimulatedClassifier struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSimulatedClassifier(seed uint64) *SimulatedClassifier {
	return &SimulatedClassifier{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

var simulatedClasses = []string{"NORM", "MI", "STTC", "HYP", "CD"}

func (s *SimulatedClassifier) Classify(ctx context.Context, imagePath string) (*Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(imagePath); err != nil {
		return &Classification{Success: false, Error: "Image not found: " + imagePath}, nil
	}
	return s.Assess(ctx)
}

// Assess draws a result without looking at any image. It backs the
// questionnaire-only analysis.
func (s *SimulatedClassifier) Assess(ctx context.Context) (*Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	score := s.rnd.IntN(100)
	confidence := 90 + s.rnd.Float64()*10
	raw := make([]float64, len(simulatedClasses))
	for i := range raw {
		raw[i] = s.rnd.Float64()
	}
	s.mu.Unlock()

	var level, class string
	switch {
	case score < 34:
		level, class = "Low", "NORM"
	case score < 67:
		level, class = "Moderate", "HYP"
	default:
		level, class = "High", "MI"
	}

	probs := make(map[string]float64, len(simulatedClasses))
	for i, name := range simulatedClasses {
		probs[name] = round2(raw[i] * 100)
	}
	probs[class] = round2(confidence)
	confidence = round2(confidence)

	return &Classification{
		Success:        true,
		RiskScore:      &score,
		RiskLevel:      level,
		Confidence:     &confidence,
		PredictedClass: class,
		Probabilities:  probs,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
