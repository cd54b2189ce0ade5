package errinfo

// ErrorInfo is the structured error payload surfaced to the UI, both as
// JSON-RPC error data and inside engine.error notifications.
type ErrorInfo struct {
	ErrorCode string   `json:"error_code"`
	Phase     string   `json:"phase,omitempty"`
	Retryable bool     `json:"retryable"`
	Actions   []string `json:"actions,omitempty"`
	TaskID    string   `json:"task_id,omitempty"`
	Detail    string   `json:"detail,omitempty"`
}

const (
	CodeLocationNotFound      = "LOCATION_NOT_FOUND"
	CodeInvalidSelectionRange = "INVALID_SELECTION_RANGE"
	CodeCollaboratorFailure   = "COLLABORATOR_FAILURE"
	CodeInvalidState          = "INVALID_STATE"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeProviderNotConfigured = "PROVIDER_NOT_CONFIGURED"
	CodeProviderAuthFailed    = "PROVIDER_AUTH_FAILED"
	CodeProviderUnavailable   = "PROVIDER_UNAVAILABLE"
	CodeEgressBlocked         = "EGRESS_BLOCKED_BY_POLICY"
	CodeFileReadFailed        = "FILE_READ_FAILED"
	CodeFileWriteFailed       = "FILE_WRITE_FAILED"
)

const (
	ActionRetry        = "retry"
	ActionClarify      = "clarify"
	ActionOpenSettings = "open_settings"
)

// Phases follow the two review loops: the gatekeeper phase locates and
// confirms the snippet, the worker phase rewrites and approves it.
const (
	PhaseGatekeeper = "gatekeeper"
	PhaseWorker     = "worker"
	PhaseSession    = "session"
	PhaseSettings   = "settings"
)

func LocationNotFound(taskID, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeLocationNotFound,
		Phase:     PhaseGatekeeper,
		Retryable: false,
		Actions:   []string{ActionClarify},
		TaskID:    taskID,
		Detail:    detail,
	}
}

func InvalidSelectionRange(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeInvalidSelectionRange,
		Phase:     PhaseGatekeeper,
		Retryable: false,
		Detail:    detail,
	}
}

func CollaboratorFailure(phase, taskID, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeCollaboratorFailure,
		Phase:     phase,
		Retryable: true,
		Actions:   []string{ActionRetry},
		TaskID:    taskID,
		Detail:    detail,
	}
}

func InvalidState(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeInvalidState,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}

func ValidationFailed(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeValidationFailed,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}

func ProviderNotConfigured(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeProviderNotConfigured,
		Phase:     phase,
		Retryable: false,
		Actions:   []string{ActionOpenSettings},
		Detail:    detail,
	}
}

func ProviderAuthFailed(phase string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeProviderAuthFailed,
		Phase:     phase,
		Retryable: false,
		Actions:   []string{ActionOpenSettings},
	}
}

func ProviderUnavailable(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeProviderUnavailable,
		Phase:     phase,
		Retryable: true,
		Actions:   []string{ActionRetry},
		Detail:    detail,
	}
}

func EgressBlocked(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeEgressBlocked,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}

func FileReadFailed(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeFileReadFailed,
		Phase:     PhaseSession,
		Retryable: false,
		Detail:    detail,
	}
}

func FileWriteFailed(detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeFileWriteFailed,
		Phase:     PhaseSession,
		Retryable: false,
		Detail:    detail,
	}
}
