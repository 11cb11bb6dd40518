// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码。
//
// 传输层错误统一返回 ErrTransport 的错误码，具体的传输层错误码需通过 errors.As 获取。
func Code(err error) int32 {
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrTransport) {
		return ErrTransport.code()
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case imkitError:
		return specificErr.code()

	default:
		if errors.Is(specificErr, context.Canceled) {
			return CanceledCode
		} else if errors.Is(specificErr, context.DeadlineExceeded) {
			return TimeoutCode
		} else {
			return errUnexpected.code()
		}
	}
}

func IsRetryableErr(err error) bool {
	var ie imkitError
	if errors.As(err, &ie) {
		return ie.retriable
	}
	return false
}

func IsCanceledOrTimeout(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

func GetErrorType(err error) ErrorType {
	var ie imkitError
	if errors.As(err, &ie) {
		return ie.errType
	}
	return SystemError
}

func WrapErrAsInputError(err error) error {
	if merr, ok := err.(imkitError); ok {
		WithErrorType(InputError)(&merr)
		return merr
	}
	return err
}

// Session lifecycle related
func WrapErrNotInitialized(op string, msg ...string) error {
	err := wrapFields(ErrNotInitialized, value("op", op))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrAlreadyInitialized(appID uint32, msg ...string) error {
	err := wrapFields(ErrAlreadyInitialized, value("appID", appID))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrAlreadyConnecting(userID string, msg ...string) error {
	err := wrapFields(ErrAlreadyConnecting, value("userID", userID))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrAlreadyConnected(userID string, msg ...string) error {
	err := wrapFields(ErrAlreadyConnected, value("userID", userID))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrNotConnected(op string, phase string, msg ...string) error {
	err := wrapFields(ErrNotConnected, value("op", op), value("phase", phase))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrConnectAborted(userID string, msg ...string) error {
	err := wrapFields(ErrConnectAborted, value("userID", userID))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Parameter related
func WrapErrParameterInvalid[T any](expected, actual T, msg ...string) error {
	err := wrapFields(ErrParameterInvalid,
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrParameterInvalidMsg(fmt string, args ...any) error {
	return errors.Wrapf(ErrParameterInvalid, fmt, args...)
}

// WrapErrParameterInvalidErr 将参数校验库返回的错误转换为 ErrParameterInvalid。
func WrapErrParameterInvalidErr(name string, cause error) error {
	if cause == nil {
		return nil
	}
	return wrapFieldsWithDesc(ErrParameterInvalid, cause.Error(), value("param", name))
}

// Transport related

// transportError 在保留原始传输层错误链的同时，使 errors.Is(err, ErrTransport) 成立。
type transportError struct {
	op    string
	cause error
}

func (e transportError) Error() string {
	return fmt.Sprintf("%s[op=%s]: %s", ErrTransport.msg, e.op, e.cause.Error())
}

func (e transportError) Unwrap() error {
	return e.cause
}

func (e transportError) Is(target error) bool {
	t, ok := target.(imkitError)
	return ok && t.errCode == ErrTransport.errCode
}

// WrapErrTransport 将传输层返回的错误包装为 ErrTransport。
// err 为 nil 时返回 nil。
func WrapErrTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransport) {
		return err
	}
	return transportError{op: op, cause: err}
}

func wrapFields(err imkitError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err imkitError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}
