package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepTimingsKeepInsertionOrder(t *testing.T) {
	var st StepTimings
	st.Add(TimingProfileCollection, 1.5)
	st.Add(TimingProfileAnalysis, 2)
	st.Add(TimingContentGeneration, 0.25)

	b, err := json.Marshal(st)
	require.NoError(t, err)
	assert.Equal(t, `{"profile_collection":1.5,"profile_analysis":2,"content_generation":0.25}`, string(b))
	assert.InDelta(t, 3.75, st.Total(), 1e-9)

	var back StepTimings
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, st, back)
}

func TestStepTimingsUnmarshalErrors(t *testing.T) {
	var st StepTimings
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &st))
	assert.Error(t, json.Unmarshal([]byte(`{"a":"slow"}`), &st))

	require.NoError(t, json.Unmarshal([]byte(`null`), &st))
	assert.Nil(t, st)
}

func TestEmptyStepTimingsOmitted(t *testing.T) {
	b, err := json.Marshal(FinalResult{Status: "x"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "step_timings")
}
