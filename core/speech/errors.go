package speech

import (
	"errors"
	"fmt"
)

// ErrPollTimeout is returned by Wait when a poll timeout is configured and the
// vendor job has not reached a terminal status in time.
var ErrPollTimeout = errors.New("speech: batch synthesis did not finish before the poll timeout")

// SynthesisFailure 厂商报告任务失败，携带原始状态报文
type SynthesisFailure struct {
	JobID string
	Raw   []byte
}

func (e *SynthesisFailure) Error() string {
	return fmt.Sprintf("speech: batch synthesis %s failed: %s", e.JobID, string(e.Raw))
}

// DecodeError 结果压缩包缺少必需的成员
type DecodeError struct {
	Member string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("speech: decode result archive (%s): %v", e.Member, e.Err)
	}
	return fmt.Sprintf("speech: result archive has no %s member", e.Member)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TransportError 网络或存储 I/O 失败
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("speech: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func transportErr(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}
