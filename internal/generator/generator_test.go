package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivabalan-sv01/tds-project/internal/models"
)

// scriptedCaller fails or answers per model, counting calls.
type scriptedCaller struct {
	calls  map[string]int
	errs   map[string]error // model -> error returned on every call
	output string
}

func newScriptedCaller(output string) *scriptedCaller {
	return &scriptedCaller{calls: map[string]int{}, errs: map[string]error{}, output: output}
}

func (s *scriptedCaller) Call(_ context.Context, model, _ string) (string, error) {
	s.calls[model]++
	if err := s.errs[model]; err != nil {
		return "", err
	}
	return s.output, nil
}

const goodOutput = "<!DOCTYPE html>\n<html><body>ok</body></html>\n" + ReadmeSeparator + "\n# App"

var testReq = models.GenerationRequest{Brief: "demo", Round: 1}

func fastOptions() Options {
	return Options{Model: "primary", Timeout: time.Second, MaxAttempts: 2}
}

func TestGenerate_Success(t *testing.T) {
	caller := newScriptedCaller(goodOutput)
	o := New(caller, fastOptions())

	res, err := o.Generate(context.Background(), testReq)
	require.NoError(t, err)

	assert.Equal(t, "primary", res.ModelUsed)
	assert.False(t, res.Fallback)
	assert.Contains(t, res.Artifact.HTML, "<body>ok</body>")
	assert.Equal(t, "# App", res.Artifact.Readme)
	assert.Equal(t, 1, caller.calls["primary"])
}

func TestGenerate_RetryBoundPerModel(t *testing.T) {
	caller := newScriptedCaller(goodOutput)
	caller.errs["primary"] = &openai.APIError{HTTPStatusCode: 500, Message: "boom"}
	caller.errs["fallback"] = &openai.APIError{HTTPStatusCode: 503, Message: "busy"}

	opts := fastOptions()
	opts.FallbackModel = "fallback"
	o := New(caller, opts)

	_, err := o.Generate(context.Background(), testReq)
	require.Error(t, err)

	// At most MaxAttempts per provider, fallback only after primary exhausts.
	assert.Equal(t, 2, caller.calls["primary"])
	assert.Equal(t, 2, caller.calls["fallback"])

	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.True(t, ge.Retryable())
}

func TestGenerate_FallbackModelAfterPrimaryExhausts(t *testing.T) {
	caller := newScriptedCaller(goodOutput)
	caller.errs["primary"] = &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}

	opts := fastOptions()
	opts.FallbackModel = "fallback"
	o := New(caller, opts)

	res, err := o.Generate(context.Background(), testReq)
	require.NoError(t, err)

	assert.Equal(t, 2, caller.calls["primary"])
	assert.Equal(t, 1, caller.calls["fallback"])
	assert.Equal(t, "fallback", res.ModelUsed)
}

func TestGenerate_FatalErrorStopsImmediately(t *testing.T) {
	caller := newScriptedCaller(goodOutput)
	caller.errs["primary"] = &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}

	opts := fastOptions()
	opts.FallbackModel = "fallback"
	o := New(caller, opts)

	_, err := o.Generate(context.Background(), testReq)
	require.Error(t, err)

	// No retries and no fallback model: the credential is shared.
	assert.Equal(t, 1, caller.calls["primary"])
	assert.Equal(t, 0, caller.calls["fallback"])

	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.False(t, ge.Retryable())
}

func TestGenerate_StaticFallbackArtifact(t *testing.T) {
	caller := newScriptedCaller(goodOutput)
	caller.errs["primary"] = &openai.APIError{HTTPStatusCode: 500, Message: "down"}

	opts := fastOptions()
	opts.FallbackArtifact = true
	o := New(caller, opts)

	res, err := o.Generate(context.Background(), testReq)
	require.NoError(t, err, "exhaustion with the fallback enabled still yields a publishable artifact")

	assert.True(t, res.Fallback)
	assert.Equal(t, FallbackModelName, res.ModelUsed)
	assert.Contains(t, res.Artifact.HTML, "Fallback App")
}

func TestGenerate_CallerDeadlineAbandonsRetries(t *testing.T) {
	caller := newScriptedCaller(goodOutput)
	caller.errs["primary"] = &openai.APIError{HTTPStatusCode: 500, Message: "down"}

	opts := fastOptions()
	opts.MaxAttempts = 10
	opts.FallbackArtifact = true
	o := New(caller, opts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Generate(ctx, testReq)
	require.Error(t, err, "a canceled caller never gets a fabricated success")
	assert.Equal(t, 1, caller.calls["primary"], "no further retries after the caller gave up")
}

func TestClassify(t *testing.T) {
	cases := map[string]struct {
		err       error
		transient bool
	}{
		"rate limit":   {&openai.APIError{HTTPStatusCode: 429}, true},
		"server error": {&openai.APIError{HTTPStatusCode: 502}, true},
		"timeout":      {&openai.RequestError{HTTPStatusCode: 408, Err: errors.New("t/o")}, true},
		"auth":         {&openai.APIError{HTTPStatusCode: 401}, false},
		"forbidden":    {&openai.APIError{HTTPStatusCode: 403}, false},
		"bad request":  {&openai.APIError{HTTPStatusCode: 400}, false},
		"transport":    {errors.New("connection refused"), true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var ge *Error
			require.ErrorAs(t, classify("m", tc.err), &ge)
			assert.Equal(t, tc.transient, ge.Transient)
		})
	}
}
