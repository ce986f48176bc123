// pkg/imaging/imaging.go
package imaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrMalformedOutput   = errors.New("classifier output is malformed")
	ErrClassifierTimeout = errors.New("classifier timed out")
)

// waitDelay bounds how long Wait blocks on open stdout/stderr pipes after the
// process has been killed.
const waitDelay = 2 * time.Second

// Classification is the single JSON document a classifier writes to stdout.
type Classification struct {
	Success        bool               `json:"success"`
	RiskScore      *int               `json:"risk_score,omitempty"`
	RiskLevel      string             `json:"risk_level,omitempty"`
	Confidence     *float64           `json:"confidence,omitempty"`
	PredictedClass string             `json:"predicted_class,omitempty"`
	Probabilities  map[string]float64 `json:"probabilities,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// successFields holds the constraints every successful classification must meet.
type successFields struct {
	RiskScore     int                `validate:"min=0,max=100"`
	RiskLevel     string             `validate:"oneof=Low Moderate High"`
	Confidence    float64            `validate:"min=0,max=100"`
	Probabilities map[string]float64 `validate:"dive,min=0,max=100"`
}

// Classifier turns a staged image into a Classification. A classifier that ran
// but could not classify returns a result with Success false and a nil error.
type Classifier interface {
	Classify(ctx context.Context, imagePath string) (*Classification, error)
}

// ExitError reports a classifier process that exited with a non-zero status.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = "no diagnostic output"
	}
	return fmt.Sprintf("classifier exited with status %d: %s", e.Code, msg)
}

// CommandClassifier runs an external executable with the image path appended
// as its final argument, e.g. `python3 scripts/predict.py <path>`.
type CommandClassifier struct {
	Path string
	Args []string
}

func NewCommandClassifier(path string, args ...string) *CommandClassifier {
	return &CommandClassifier{Path: path, Args: args}
}

func (c *CommandClassifier) Classify(ctx context.Context, imagePath string) (*Classification, error) {
	args := append(append([]string{}, c.Args...), imagePath)
	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ErrClassifierTimeout
		}
		return nil, ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{Code: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return nil, fmt.Errorf("run classifier: %w", err)
	}

	return ParseClassification(stdout.Bytes())
}

var validate = validator.New()

// ParseClassification decodes exactly one JSON document and checks the value
// ranges a successful result must satisfy. A failed result keeps only Error.
func ParseClassification(data []byte) (*Classification, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var out Classification
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON document", ErrMalformedOutput)
	}

	if !out.Success {
		return &Classification{Success: false, Error: out.Error}, nil
	}
	if out.RiskScore == nil || out.Confidence == nil {
		return nil, fmt.Errorf("%w: risk_score and confidence are required", ErrMalformedOutput)
	}
	fields := successFields{
		RiskScore:     *out.RiskScore,
		RiskLevel:     out.RiskLevel,
		Confidence:    *out.Confidence,
		Probabilities: out.Probabilities,
	}
	if err := validate.Struct(fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return &out, nil
}

// DetectContentType sniffs the media type from the first 512 bytes of r.
func DetectContentType(r io.Reader) (string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	mimeType := http.DetectContentType(buf[:n])
	return strings.Split(mimeType, ";")[0], nil
}
