package outbox

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// FailureAction 投递失败的处置方式
type FailureAction int

const (
	// FailureRetry 中止本轮 drain，保留该项原位重试
	FailureRetry FailureAction = iota
	// FailureDiscard 数据本身的问题，移入死信后继续
	FailureDiscard
)

// Classify 区分瞬时失败与逻辑失败。
// 瞬时：超时、连接被拒/重置、不可达、显式 ErrTransient 包装，
// 以及远端返回的 unavailable/network 类错误文案。
func Classify(err error) FailureAction {
	if err == nil {
		return FailureDiscard
	}
	if errors.Is(err, ErrTransient) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return FailureRetry
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return FailureRetry
	}
	for _, errno := range []syscall.Errno{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.EHOSTUNREACH,
		syscall.ENETUNREACH,
		syscall.EPIPE,
	} {
		if errors.Is(err, errno) {
			return FailureRetry
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unavailable") || strings.Contains(msg, "network") {
		return FailureRetry
	}
	return FailureDiscard
}
