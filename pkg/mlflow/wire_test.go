package mlflow

import (
	"encoding/json"
	"math"
	"testing"

	// Packages
	assert "github.com/stretchr/testify/assert"
)

func Test_Wire_001(t *testing.T) {
	assert := assert.New(t)

	// int64 fields arrive quoted or bare
	for input, expected := range map[string]int64{
		`"1700000000000"`: 1700000000000,
		`1700000000000`:   1700000000000,
		`"0"`:             0,
		`null`:            0,
		`"-5"`:            -5,
	} {
		var v int64String
		if assert.NoError(json.Unmarshal([]byte(input), &v), input) {
			assert.Equal(expected, int64(v), input)
		}
	}

	var v int64String
	assert.Error(json.Unmarshal([]byte(`"soon"`), &v))
	assert.Error(json.Unmarshal([]byte(`1.5`), &v))
}

func Test_Wire_002(t *testing.T) {
	assert := assert.New(t)

	var v float64String
	assert.NoError(json.Unmarshal([]byte(`"NaN"`), &v))
	assert.True(math.IsNaN(float64(v)))
	assert.NoError(json.Unmarshal([]byte(`"Infinity"`), &v))
	assert.True(math.IsInf(float64(v), 1))
	assert.NoError(json.Unmarshal([]byte(`"-Infinity"`), &v))
	assert.True(math.IsInf(float64(v), -1))
	assert.NoError(json.Unmarshal([]byte(`0.25`), &v))
	assert.Equal(0.25, float64(v))
	assert.NoError(json.Unmarshal([]byte(`"1e3"`), &v))
	assert.Equal(1000.0, float64(v))
	assert.Error(json.Unmarshal([]byte(`"high"`), &v))

	data, err := json.Marshal(wireMetric{Key: "k", Value: float64String(math.NaN()), Timestamp: 5, Step: 1})
	assert.NoError(err)
	assert.JSONEq(`{"key":"k","value":"NaN","timestamp":5,"step":1}`, string(data))

	data, err = json.Marshal(float64String(math.Inf(-1)))
	assert.NoError(err)
	assert.Equal(`"-Infinity"`, string(data))

	data, err = json.Marshal(float64String(0.1))
	assert.NoError(err)
	assert.Equal(`0.1`, string(data))
}

func Test_Wire_003(t *testing.T) {
	assert := assert.New(t)

	// Older servers only send run_uuid
	var run wireRun
	assert.NoError(json.Unmarshal([]byte(`{"info":{"run_uuid":"abc","experiment_id":"1","status":"FINISHED","start_time":"1000","end_time":"2000"},"data":{}}`), &run))
	result, err := run.run()
	if assert.NoError(err) {
		assert.Equal("abc", result.Info.RunID)
		assert.Equal(RunStatusFinished, result.Info.Status)
		assert.Equal(int64(1000), result.Info.StartTime.UnixMilli())
		if assert.NotNil(result.Info.EndTime) {
			assert.Equal(int64(2000), result.Info.EndTime.UnixMilli())
		}
		assert.Empty(result.Data.Params)
	}

	_, err = (&wireRun{}).run()
	assert.Error(err)

	// A zero timestamp is the zero time
	assert.True(fromMillis(0).IsZero())

	// end_time 0 means the run has not ended
	assert.NoError(json.Unmarshal([]byte(`{"info":{"run_id":"abc","start_time":"1000","end_time":"0"},"data":{}}`), &run))
	result, err = run.run()
	if assert.NoError(err) {
		assert.Nil(result.Info.EndTime)
	}
}

func Test_Wire_004(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		status int
		code   string
		kind   Err
	}{
		{400, codeResourceAlreadyExists, ErrConflict},
		{404, "", ErrNotFound},
		{400, codeResourceDoesNotExist, ErrNotFound},
		{409, "", ErrConflict},
		{400, codeInvalidParameterValue, ErrInvalidArgument},
		{401, "UNAUTHENTICATED", ErrInvalidArgument},
		{500, "", ErrServer},
		{503, "TEMPORARILY_UNAVAILABLE", ErrServer},
	}
	for _, test := range tests {
		assert.Equal(test.kind, kindFor(test.status, test.code), test)
	}

	assert.True(isParamOverwrite(&Error{Code: codeInvalidParameterValue, Message: "Changing param values is not allowed. Param with key='x'"}))
	assert.False(isParamOverwrite(&Error{Code: codeInvalidParameterValue, Message: "bad value"}))
	assert.False(isParamOverwrite(nil))
}
