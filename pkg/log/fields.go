package log

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameUserID    = "userID"
	FieldNameOp        = "op"
	FieldNamePhase     = "phase"
	FieldNameEpoch     = "epoch"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回一个包含组件名的 zap 字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldUserID 返回一个包含用户 ID 的 zap 字段。
func FieldUserID(userID string) zap.Field {
	return zap.String(FieldNameUserID, userID)
}

// FieldOp 返回一个包含操作名的 zap 字段。
func FieldOp(op string) zap.Field {
	return zap.String(FieldNameOp, op)
}

// FieldPhase 返回一个包含会话阶段的 zap 字段。
func FieldPhase(phase fmt.Stringer) zap.Field {
	return zap.Stringer(FieldNamePhase, phase)
}

// FieldEpoch 返回一个包含会话纪元的 zap 字段。
func FieldEpoch(epoch uint64) zap.Field {
	return zap.Uint64(FieldNameEpoch, epoch)
}
