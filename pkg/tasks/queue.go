package tasks

import "container/heap"

type queueItem struct {
	task  *ScheduledTask
	seq   uint64
	index int
}

// taskQueue implements heap.Interface ordered by (priority, scheduled time,
// insertion order).
type taskQueue []*queueItem

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	a, b := q[i].task, q[j].task
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if !a.ScheduledTime.Equal(b.ScheduledTime) {
		return a.ScheduledTime.Before(b.ScheduledTime)
	}
	return q[i].seq < q[j].seq
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

func (q *taskQueue) peek() *queueItem {
	if len(*q) == 0 {
		return nil
	}
	return (*q)[0]
}

func (q *taskQueue) remove(item *queueItem) {
	if item.index >= 0 && item.index < len(*q) {
		heap.Remove(q, item.index)
	}
}
