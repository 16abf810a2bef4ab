package models

import "errors"

// 引擎统一错误分类。调用方用 errors.Is 判断，web 层映射为 HTTP 状态码。
var (
	// ErrNotFound 比赛/局/球员不存在
	ErrNotFound = errors.New("not found")

	// ErrInvalidState 当前比赛/局状态下操作不合法
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation 投球数据不合法（缺少出局信息、缺少附加分类型、负数得分等）
	ErrValidation = errors.New("validation error")

	// ErrConflict 事务因争用未能提交，调用方应整体重试一次
	ErrConflict = errors.New("concurrency conflict")

	// ErrDependencyUnavailable 缓存/推送不可用。不允许阻塞写路径，只记日志
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
