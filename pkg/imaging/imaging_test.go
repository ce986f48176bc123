package imaging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript creates an executable shell script standing in for predict.py.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "classify.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestCommandClassifier_Success(t *testing.T) {
	script := writeScript(t, `echo "diagnostics for $1" >&2
printf '{"success": true, "risk_score": 72, "risk_level": "High", "confidence": 93.5, "predicted_class": "MI", "probabilities": {"NORM": 3.1, "MI": 93.5}, "threshold_details": []}\n'`)

	res, err := NewCommandClassifier(script).Classify(context.Background(), "/tmp/image.png")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 72, *res.RiskScore)
	assert.Equal(t, "High", res.RiskLevel)
	assert.Equal(t, 93.5, *res.Confidence)
	assert.Equal(t, "MI", res.PredictedClass)
	assert.Equal(t, 93.5, res.Probabilities["MI"])
}

func TestCommandClassifier_PassesPathAsLastArgument(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args.txt")
	script := writeScript(t, `echo "$@" > `+out+`
echo '{"success": false, "error": "x"}'`)

	_, err := NewCommandClassifier("/bin/sh", script).Classify(context.Background(), "/data/ecg.png")
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "/data/ecg.png", strings.TrimSpace(string(got)))
}

func TestCommandClassifier_NonZeroExit(t *testing.T) {
	script := writeScript(t, `echo '{"success": true, "risk_score": 10, "risk_level": "Low", "confidence": 99}'
echo "model weights missing" >&2
exit 3`)

	res, err := NewCommandClassifier(script).Classify(context.Background(), "/tmp/x.png")
	assert.Nil(t, res)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, exitErr.Error(), "model weights missing")
}

func TestCommandClassifier_MalformedOutput(t *testing.T) {
	script := writeScript(t, `echo 'Loading model...'`)

	_, err := NewCommandClassifier(script).Classify(context.Background(), "/tmp/x.png")
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestCommandClassifier_Timeout(t *testing.T) {
	script := writeScript(t, `sleep 5`)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewCommandClassifier(script).Classify(ctx, "/tmp/x.png")
	assert.ErrorIs(t, err, ErrClassifierTimeout)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCommandClassifier_MissingExecutable(t *testing.T) {
	_, err := NewCommandClassifier(filepath.Join(t.TempDir(), "nope")).Classify(context.Background(), "/tmp/x.png")
	require.Error(t, err)

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}

func TestParseClassification(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		wantErr bool
		success bool
	}{
		{name: "valid", input: `{"success":true,"risk_score":0,"risk_level":"Low","confidence":100}`, success: true},
		{name: "classifier failure", input: `{"success":false,"error":"not an ECG","risk_score":50}`},
		{name: "score above range", input: `{"success":true,"risk_score":101,"risk_level":"Low","confidence":50}`, wantErr: true},
		{name: "negative confidence", input: `{"success":true,"risk_score":10,"risk_level":"Low","confidence":-1}`, wantErr: true},
		{name: "unknown level", input: `{"success":true,"risk_score":10,"risk_level":"Severe","confidence":50}`, wantErr: true},
		{name: "missing score", input: `{"success":true,"risk_level":"Low","confidence":50}`, wantErr: true},
		{name: "probability out of range", input: `{"success":true,"risk_score":10,"risk_level":"Low","confidence":50,"probabilities":{"MI":120}}`, wantErr: true},
		{name: "two documents", input: `{"success":true} {"success":false}`, wantErr: true},
		{name: "empty", input: ``, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := ParseClassification([]byte(tc.input))
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.success, res.Success)
			if !tc.success {
				assert.Nil(t, res.RiskScore)
				assert.NotEmpty(t, res.Error)
			}
		})
	}
}

func TestDetectContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	got, err := DetectContentType(bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "image/png", got)

	got, err = DetectContentType(strings.NewReader("just text"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", got)
}

func TestSimulatedClassifier(t *testing.T) {
	img := filepath.Join(t.TempDir(), "img.png")
	require.NoError(t, os.WriteFile(img, []byte("x"), 0o600))

	c := NewSimulatedClassifier(42)
	for i := 0; i < 50; i++ {
		res, err := c.Classify(context.Background(), img)
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.GreaterOrEqual(t, *res.RiskScore, 0)
		assert.LessOrEqual(t, *res.RiskScore, 100)
		assert.GreaterOrEqual(t, *res.Confidence, 90.0)
		assert.LessOrEqual(t, *res.Confidence, 100.0)
		assert.Contains(t, []string{"Low", "Moderate", "High"}, res.RiskLevel)
	}

	res, err := c.Classify(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestSimulatedClassifier_Assess(t *testing.T) {
	c := NewSimulatedClassifier(7)
	for i := 0; i < 20; i++ {
		res, err := c.Assess(context.Background())
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.GreaterOrEqual(t, *res.RiskScore, 0)
		assert.LessOrEqual(t, *res.RiskScore, 100)
		assert.Contains(t, []string{"Low", "Moderate", "High"}, res.RiskLevel)
		assert.Contains(t, res.Probabilities, res.PredictedClass)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Assess(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
