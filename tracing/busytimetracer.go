package tracing

import (
	"container/list"
	"sort"
	"sync"

	"github.com/sarchlab/eeesim/sim/timing"
)

type taskTimeStartEnd struct {
	start, end timing.VTime
	completed  bool
}

// BusyTimeTracer traces the time that a domain spends on a kind of task. If
// tasks overlap, the overlapped time is only counted once. Filtering frame
// tasks gives the time a device has frames waiting; filtering a state task
// gives the time spent in that state.
type BusyTimeTracer struct {
	timeTeller    timing.TimeTeller
	filter        TaskFilter
	lock          sync.Mutex
	inflightTasks map[string]*list.Element
	taskTimes     *list.List
	busyTime      timing.VTime
}

// NewBusyTimeTracer creates a new BusyTimeTracer
func NewBusyTimeTracer(
	timeTeller timing.TimeTeller,
	filter TaskFilter,
) *BusyTimeTracer {
	return &BusyTimeTracer{
		timeTeller:    timeTeller,
		filter:        filter,
		inflightTasks: make(map[string]*list.Element),
		taskTimes:     list.New(),
	}
}

// BusyTime returns the total time has been spent on completed tasks.
func (t *BusyTimeTracer) BusyTime() timing.VTime {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.busyTime
}

// TerminateAllTasks will mark all the tasks as completed.
func (t *BusyTimeTracer) TerminateAllTasks(now timing.VTime) {
	t.lock.Lock()
	defer t.lock.Unlock()

	for e := t.taskTimes.Front(); e != nil; e = e.Next() {
		task := e.Value.(*taskTimeStartEnd)
		if !task.completed {
			task.completed = true
			task.end = now
		}
	}

	t.inflightTasks = make(map[string]*list.Element)
	t.collapse(now)
}

// StartTask records the task start time
func (t *BusyTimeTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()

	if t.filter != nil && !t.filter(task) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	elem := t.taskTimes.PushBack(&taskTimeStartEnd{start: task.StartTime})
	t.inflightTasks[task.ID] = elem
}

// StepTask does nothing
func (t *BusyTimeTracer) StepTask(_ Task) {
	// Do nothing
}

// EndTask records the end of the task
func (t *BusyTimeTracer) EndTask(task Task) {
	task.EndTime = t.timeTeller.CurrentTime()

	t.lock.Lock()
	defer t.lock.Unlock()

	elem, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	time := elem.Value.(*taskTimeStartEnd)
	time.end = task.EndTime
	time.completed = true
	delete(t.inflightTasks, task.ID)

	t.collapse(task.EndTime)
}

// collapse folds the completed tasks into the busy time once no incomplete
// task started before now.
func (t *BusyTimeTracer) collapse(now timing.VTime) {
	for e := t.taskTimes.Front(); e != nil; e = e.Next() {
		task := e.Value.(*taskTimeStartEnd)
		if !task.completed && task.start < now {
			return
		}
	}

	var finished []*taskTimeStartEnd

	var next *list.Element
	for e := t.taskTimes.Front(); e != nil; e = next {
		next = e.Next()

		task := e.Value.(*taskTimeStartEnd)
		if task.completed && task.end <= now {
			finished = append(finished, task)
			t.taskTimes.Remove(e)
		}
	}

	t.busyTime += mergedDuration(finished)
}

func mergedDuration(tasks []*taskTimeStartEnd) timing.VTime {
	if len(tasks) == 0 {
		return 0
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].start < tasks[j].start
	})

	var total timing.VTime

	start, end := tasks[0].start, tasks[0].end
	for _, task := range tasks[1:] {
		if task.start > end {
			total += end - start
			start, end = task.start, task.end

			continue
		}

		end = max(end, task.end)
	}

	return total + end - start
}
