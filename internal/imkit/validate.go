package imkit

import (
	"github.com/go-playground/validator/v10"

	"github.com/lk2023060901/imkit-go/pkg/util/merr"
)

const (
	groupIDRule   = "required,max=32,printascii,excludesall=0x20"
	groupNameRule = "max=256"
	avatarURLRule = "required,max=2048,url"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type credentials struct {
	AppID   uint32 `validate:"required"`
	AppSign string `validate:"required,max=256"`
}

func validateVar(name string, value any, rule string) error {
	return merr.WrapErrParameterInvalidErr(name, validate.Var(value, rule))
}

func validateStruct(name string, value any) error {
	return merr.WrapErrParameterInvalidErr(name, validate.Struct(value))
}
