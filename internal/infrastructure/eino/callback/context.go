package callback

import (
	"context"
	"strings"
)

type callInfoKey struct{}

// CallInfo 一次模型调用的观测标签
type CallInfo struct {
	Operation string
	Provider  string
	Model     string
}

// WithCallInfo 写入调用标签，供回调读取
func WithCallInfo(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callInfoKey{}, info)
}

// CallInfoFromContext 读取调用标签，缺失字段为 unknown
func CallInfoFromContext(ctx context.Context) CallInfo {
	info, _ := ctx.Value(callInfoKey{}).(CallInfo)
	info.Operation = orUnknown(info.Operation)
	info.Provider = orUnknown(info.Provider)
	info.Model = orUnknown(info.Model)
	return info
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
