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
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

type codedErr struct {
	code int32
}

func (e *codedErr) Error() string { return "coded" }

func (s *ErrSuite) TestCode() {
	err := WrapErrNotConnected("CreateGroup", "disconnected")
	err = errors.Wrap(err, "failed to create group")
	s.ErrorIs(err, ErrNotConnected)
	s.Equal(Code(ErrNotConnected), Code(err))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errUnexpected))
	s.Equal(int32(0), Code(nil))

	sameCodeErr := newIMKitError("new error", ErrNotConnected.errCode, false)
	s.True(sameCodeErr.Is(ErrNotConnected))
}

func (s *ErrSuite) TestWrap() {
	s.ErrorIs(WrapErrNotInitialized("ConnectUser"), ErrNotInitialized)
	s.ErrorIs(WrapErrAlreadyInitialized(100, "init twice"), ErrAlreadyInitialized)
	s.ErrorIs(WrapErrAlreadyConnecting("u1"), ErrAlreadyConnecting)
	s.ErrorIs(WrapErrAlreadyConnected("u1"), ErrAlreadyConnected)
	s.ErrorIs(WrapErrNotConnected("JoinGroup", "initialized"), ErrNotConnected)
	s.ErrorIs(WrapErrConnectAborted("u1"), ErrConnectAborted)
	s.ErrorIs(WrapErrParameterInvalid("non-empty", "", "member list"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidMsg("bad group id %q", "a b"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidErr("groupID", errors.New("too long")), ErrParameterInvalid)
	s.Nil(WrapErrParameterInvalidErr("groupID", nil))

	s.NotErrorIs(WrapErrNotConnected("JoinGroup", "initialized"), ErrNotInitialized)
}

func (s *ErrSuite) TestTransport() {
	cause := &codedErr{code: 6000001}
	err := WrapErrTransport("Login", cause)
	s.ErrorIs(err, ErrTransport)
	s.Equal(ErrTransport.errCode, Code(err))

	var target *codedErr
	s.True(errors.As(err, &target))
	s.Equal(int32(6000001), target.code)

	// wrapping twice keeps a single marker.
	s.Equal(err, WrapErrTransport("Login", err))
	s.Nil(WrapErrTransport("Login", nil))
	s.NotErrorIs(err, ErrNotConnected)
}

func (s *ErrSuite) TestRetryableAndType() {
	s.True(IsRetryableErr(WrapErrAlreadyConnecting("u1")))
	s.False(IsRetryableErr(WrapErrAlreadyInitialized(1)))
	s.False(IsRetryableErr(errors.New("plain")))

	s.Equal(InputError, GetErrorType(WrapErrParameterInvalidMsg("x")))
	s.Equal(SystemError, GetErrorType(ErrNotConnected))
	s.Equal(InputError, GetErrorType(WrapErrAsInputError(ErrNotConnected)))
	s.Equal("input_error", InputError.String())

	s.True(IsCanceledOrTimeout(errors.Wrap(context.Canceled, "stop")))
	s.False(IsCanceledOrTimeout(ErrNotConnected))
}

func (s *ErrSuite) TestCombine() {
	s.Nil(Combine(nil, nil))

	err := Combine(ErrNotConnected, nil, ErrParameterInvalid)
	s.ErrorIs(err, ErrNotConnected)
	s.ErrorIs(err, ErrParameterInvalid)
	s.Contains(err.Error(), ErrParameterInvalid.Error())
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
