package workflow

import "fmt"

// StageError 表示某个阶段的失败。
// Degraded 为 true 时表示该阶段已经用降级值填充了自己的输出，
// 引擎记录日志后继续执行；否则整轮处理中止。
type StageError struct {
	Stage    string
	Err      error
	Degraded bool
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
