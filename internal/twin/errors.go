package twin

import (
	"errors"
	"fmt"

	"digital-twin-go/internal/types"
)

// 问答管线的错误类别，可以用 errors.Is 判断
var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrNotConfigured = errors.New("generation service is not configured")
	ErrNoEvidence    = errors.New("no matching profile facts")
	ErrGeneration    = errors.New("generation failed")
	ErrProfileLoad   = errors.New("profile could not be loaded")
)

// 管线阶段
const (
	StageValidate   = "validate"
	StageLoad       = "load_profile"
	StageChunk      = "chunk"
	StageRetrieve   = "retrieve"
	StageSynthesize = "synthesize"
)

// PipelineError 记录失败的阶段、类别和底层原因
type PipelineError struct {
	Stage string
	Kind  types.Outcome
	Err   error
}

func newPipelineError(stage string, kind types.Outcome, err error) *PipelineError {
	return &PipelineError{Stage: stage, Kind: kind, Err: err}
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, sentinelFor(e.Kind))
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, sentinelFor(e.Kind), e.Err)
}

// Unwrap 返回底层原因
func (e *PipelineError) Unwrap() error { return e.Err }

// Is 类别对应的哨兵错误也算匹配
func (e *PipelineError) Is(target error) bool {
	s := sentinelFor(e.Kind)
	return s != nil && s == target
}

func sentinelFor(kind types.Outcome) error {
	switch kind {
	case types.OutcomeEmptyInput:
		return ErrEmptyQuestion
	case types.OutcomeNotConfigured:
		return ErrNotConfigured
	case types.OutcomeNoEvidence:
		return ErrNoEvidence
	case types.OutcomeUpstreamFailure:
		return ErrGeneration
	case types.OutcomeDataError:
		return ErrProfileLoad
	}
	return nil
}

// KindOf 从错误链中取出管线错误类别，不是管线错误时返回 upstream_failure
func KindOf(err error) types.Outcome {
	if err == nil {
		return types.OutcomeAnswered
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return types.OutcomeUpstreamFailure
}
