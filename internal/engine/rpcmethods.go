package engine

import (
	"context"
	"encoding/json"

	"redline/engine/internal/errinfo"
	"redline/engine/internal/settings"
)

// JSON-RPC wrappers around the typed operations. The terminal reviewer
// calls the typed methods directly; the stdio transport registers these.

func decodeParams[T any](params json.RawMessage, phase string) (T, *errinfo.ErrorInfo) {
	var p T
	if len(params) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return p, errinfo.ValidationFailed(phase, "invalid params: "+err.Error())
	}
	return p, nil
}

func (e *Engine) RPCEngineGetInfo(_ context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	return ret(e.Info())
}

func (e *Engine) RPCSessionStart(ctx context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	return ret(e.Start(ctx))
}

func (e *Engine) RPCSessionGetState(_ context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	return ret(e.State())
}

func (e *Engine) RPCSessionRevert(_ context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	return ret(e.Revert())
}

func (e *Engine) RPCSessionTerminate(_ context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	return ret(e.Terminate())
}

func (e *Engine) RPCContentGet(_ context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	return ret(e.Content())
}

func (e *Engine) RPCContentGetDiff(_ context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	return ret(e.ContentDiff())
}

func (e *Engine) RPCEditSubmitRequest(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	p, errInfo := decodeParams[SubmitEditParams](params, errinfo.PhaseGatekeeper)
	if errInfo != nil {
		return nil, errInfo
	}
	return ret(e.SubmitEdit(ctx, p))
}

func (e *Engine) RPCEditConfirmLocation(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	p, errInfo := decodeParams[ConfirmLocationParams](params, errinfo.PhaseGatekeeper)
	if errInfo != nil {
		return nil, errInfo
	}
	return ret(e.ConfirmLocation(ctx, p))
}

func (e *Engine) RPCEditDecide(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	p, errInfo := decodeParams[DecideParams](params, errinfo.PhaseWorker)
	if errInfo != nil {
		return nil, errInfo
	}
	return ret(e.Decide(ctx, p))
}

func (e *Engine) RPCEditSubmitClarification(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	p, errInfo := decodeParams[ClarifyParams](params, errinfo.PhaseGatekeeper)
	if errInfo != nil {
		return nil, errInfo
	}
	return ret(e.SubmitClarification(ctx, p))
}

func (e *Engine) RPCSettingsGet(_ context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	return ret(e.Settings())
}

func (e *Engine) RPCSettingsUpdate(_ context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	p, errInfo := decodeParams[settings.Settings](params, errinfo.PhaseSettings)
	if errInfo != nil {
		return nil, errInfo
	}
	return ret(e.UpdateSettings(&p))
}

func ret[T any](result T, errInfo *errinfo.ErrorInfo) (any, *errinfo.ErrorInfo) {
	if errInfo != nil {
		return nil, errInfo
	}
	return result, nil
}
