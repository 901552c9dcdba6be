package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
)

// TaskQueue 采集任务队列
// 调度器按提交间隔 Push, worker 并发 Pop
type TaskQueue struct {
	// 待处理任务
	pending chan models.ScrapeTask

	// 已提交的任务ID
	submitted map[string]bool

	// 保护 submitted 和 closed
	mu sync.RWMutex

	closed bool
}

// NewTaskQueue 创建任务队列
func NewTaskQueue(capacity int) *TaskQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &TaskQueue{
		pending:   make(chan models.ScrapeTask, capacity),
		submitted: make(map[string]bool),
	}
}

// Push 提交任务, 不阻塞
// 队列已关闭、已满或任务ID重复时返回错误
func (q *TaskQueue) Push(task models.ScrapeTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("队列已关闭")
	}
	if q.submitted[task.ID] {
		return fmt.Errorf("任务已提交: %s", task.ID)
	}

	select {
	case q.pending <- task:
		q.submitted[task.ID] = true
		return nil
	default:
		return fmt.Errorf("队列已满 (容量 %d)", cap(q.pending))
	}
}

// Pop 取出下一个任务
// 队列关闭且已取空, 或ctx取消时返回false
func (q *TaskQueue) Pop(ctx context.Context) (models.ScrapeTask, bool) {
	select {
	case <-ctx.Done():
		return models.ScrapeTask{}, false
	case task, ok := <-q.pending:
		return task, ok
	}
}

// Submitted 任务是否已提交过
func (q *TaskQueue) Submitted(id string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.submitted[id]
}

// PendingCount 当前待处理任务数
func (q *TaskQueue) PendingCount() int {
	return len(q.pending)
}

// Close 关闭队列, 已提交的任务仍可被取出
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		close(q.pending)
		q.closed = true
	}
}
