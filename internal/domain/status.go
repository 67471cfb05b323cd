package domain

// VerificationStep names a stage of the verification pipeline.
type VerificationStep string

const (
	StepStarting         VerificationStep = "starting"
	StepPlatformDetected VerificationStep = "platform_detected"
	StepHostedAttempted  VerificationStep = "hosted_attempted"
	StepMediaDownloaded  VerificationStep = "media_downloaded"
	StepLocalChecked     VerificationStep = "local_checked"
	StepHashComputed     VerificationStep = "hash_computed"
	StepCompleted        VerificationStep = "completed"
	StepError            VerificationStep = "error"
)

// VerificationStatus is the live snapshot of one in-flight run. It is owned
// by the orchestrator (single writer) and read by status-polling callers.
// Never persisted.
type VerificationStatus struct {
	CurrentStep    VerificationStep     `json:"current_step"`
	Message        string               `json:"message"`
	IsCompleted    bool                 `json:"is_completed"`
	HasError       bool                 `json:"has_error"`
	ErrorMessage   string               `json:"error_message,omitempty"`
	CompletedSteps map[string]bool      `json:"completed_steps"`
	Result         *ManifestCheckResult `json:"result,omitempty"`
	MediaPath      string               `json:"media_path,omitempty"`
	FileSizeBytes  int64                `json:"file_size_bytes,omitempty"`
}
