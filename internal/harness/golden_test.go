package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/classkit/internal/ir"
)

func TestRunWithGolden_DuckQuacks(t *testing.T) {
	result, err := RunWithGolden(t, loadTestdata(t, "duck_quacks"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestMarshalTrace_Canonical(t *testing.T) {
	result := NewResult()
	result.Trace = append(result.Trace,
		TraceEvent{Type: TraceConstruct, Seq: 2, RunID: "r-1", Class: "A", Target: "A", Kind: "begin"},
		TraceEvent{Type: TraceStaticCall, Seq: 3, Class: "A", Method: "m", Result: ir.IRString("<ok>")},
	)

	data, err := MarshalTrace("tiny", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"instances":{},"scenario_name":"tiny","trace":[`+
			`{"class":"A","depth":0,"kind":"begin","run_id":"r-1","seq":2,"target":"A","type":"construct"},`+
			`{"args":[],"class":"A","method":"m","result":"<ok>","seq":3,"type":"static_call"}]}`,
		string(data), "no HTML escaping, sorted keys, empty args spelled out")
}
