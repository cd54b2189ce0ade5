package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redline/engine/internal/errinfo"
)

func TestRPCEngineGetInfo(t *testing.T) {
	eng, _ := newTestEngine("doc", echoLocator(), nil)
	result, errInfo := eng.RPCEngineGetInfo(context.Background(), nil)
	require.Nil(t, errInfo)
	info := result.(InfoResult)
	assert.Equal(t, "redline-engine", info.Name)
	assert.Equal(t, APIVersion, info.APIVersion)
}

func TestRPCEditSubmitRequestDecodesParams(t *testing.T) {
	ctx := context.Background()
	eng, rec := newTestEngine("the quick brown fox", echoLocator(), rewriterFunc(
		func(_ context.Context, snippet, _ string) (string, error) { return snippet, nil }))
	_, errInfo := eng.Start(ctx)
	require.Nil(t, errInfo)

	params := json.RawMessage(`{"kind":"hint_based","instruction":"capitalize","hint":"brown fox"}`)
	result, errInfo := eng.RPCEditSubmitRequest(ctx, params)
	require.Nil(t, errInfo)
	submitted := result.(SubmitEditResult)
	assert.NotEmpty(t, submitted.RequestID)
	require.NotEmpty(t, rec.byMethod(NotifyConfirmLocation))
}

func TestRPCEditSubmitRequestSelectionParams(t *testing.T) {
	ctx := context.Background()
	eng, rec := newTestEngine("the quick brown fox", echoLocator(), rewriterFunc(
		func(_ context.Context, snippet, _ string) (string, error) { return "slow", nil }))
	_, errInfo := eng.Start(ctx)
	require.Nil(t, errInfo)

	params := json.RawMessage(`{"kind":"selection_based","instruction":"slow it down","selection":{"start_line":1,"start_column":5,"end_line":1,"end_column":10}}`)
	_, errInfo = eng.RPCEditSubmitRequest(ctx, params)
	require.Nil(t, errInfo)

	proposed := mustLast[DiffProposedEvent](t, rec, NotifyDiffProposed)
	assert.Equal(t, "quick", proposed.OriginalSnippet)
}

func TestRPCRejectsMalformedParams(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine("doc", echoLocator(), nil)

	_, errInfo := eng.RPCEditSubmitRequest(ctx, json.RawMessage(`{"kind":12}`))
	require.NotNil(t, errInfo)
	assert.Equal(t, errinfo.CodeValidationFailed, errInfo.ErrorCode)

	_, errInfo = eng.RPCEditDecide(ctx, json.RawMessage(`not json`))
	require.NotNil(t, errInfo)
	assert.Equal(t, errinfo.CodeValidationFailed, errInfo.ErrorCode)
}

func TestRPCSessionFlow(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine("doc text", echoLocator(), nil)

	result, errInfo := eng.RPCSessionStart(ctx, nil)
	require.Nil(t, errInfo)
	assert.Equal(t, "doc text", result.(StateResult).Document)

	result, errInfo = eng.RPCContentGet(ctx, nil)
	require.Nil(t, errInfo)
	assert.Equal(t, "doc text", result.(ContentResult).Document)

	result, errInfo = eng.RPCSessionTerminate(ctx, nil)
	require.Nil(t, errInfo)
	assert.Equal(t, "doc text", result.(TerminateResult).Document)
}
