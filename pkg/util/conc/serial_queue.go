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
package conc

import (
	"sync"

	"go.uber.org/zap"

	"github.com/lk2023060901/imkit-go/pkg/log"
)

// SerialQueue 在单个协程中按提交顺序依次执行任务。
//
// 队列长度不受限，Push 不会阻塞提交方。任务 panic 会被记录并跳过，
// 队列继续执行后续任务。
type SerialQueue struct {
	name string

	mu     sync.Mutex
	tasks  []func()
	closed bool

	signal chan struct{}
	done   chan struct{}
}

// NewSerialQueue 创建并启动一个串行队列。
func NewSerialQueue(name string) *SerialQueue {
	q := &SerialQueue{
		name:   name,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.loop()
	return q
}

// Push 追加一个任务，队列已关闭时返回 false。
func (q *SerialQueue) Push(task func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	q.notify()
	return true
}

// Len 返回尚未执行的任务数量。
func (q *SerialQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close 停止接收新任务。已入队的任务仍会执行完，之后协程退出。
// Close 不等待队列排空，可以在任务内部调用。
func (q *SerialQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.notify()
}

// Done 返回队列协程退出时关闭的 channel。
func (q *SerialQueue) Done() <-chan struct{} {
	return q.done
}

func (q *SerialQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *SerialQueue) loop() {
	defer close(q.done)
	for range q.signal {
		for {
			q.mu.Lock()
			if len(q.tasks) == 0 {
				closed := q.closed
				q.mu.Unlock()
				if closed {
					return
				}
				break
			}
			task := q.tasks[0]
			q.tasks[0] = nil
			q.tasks = q.tasks[1:]
			q.mu.Unlock()

			q.run(task)
		}
	}
}

func (q *SerialQueue) run(task func()) {
	defer func() {
		if x := recover(); x != nil {
			log.Error("serial queue task panicked", zap.String("queue", q.name), zap.Any("panic", x))
		}
	}()
	task()
}
