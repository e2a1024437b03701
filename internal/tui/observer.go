package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// SchedulerObserver forwards scheduler lifecycle events into a running
// bubbletea program. It satisfies sched.Observer.
type SchedulerObserver struct {
	program *tea.Program
}

// NewSchedulerObserver creates an observer feeding the given program.
func NewSchedulerObserver(p *tea.Program) *SchedulerObserver {
	return &SchedulerObserver{program: p}
}

func (o *SchedulerObserver) TaskCreated(taskID string, final bool) {
	o.program.Send(TaskEvent{TaskID: taskID, State: StateCreated, Final: final})
}

func (o *SchedulerObserver) TaskParked(taskID, futureID string) {
	o.program.Send(TaskEvent{TaskID: taskID, FutureID: futureID, State: StateParked})
}

func (o *SchedulerObserver) TaskResumed(taskID string) {
	o.program.Send(TaskEvent{TaskID: taskID, State: StateRunning})
}

func (o *SchedulerObserver) TaskFinished(taskID string, err error) {
	o.program.Send(TaskEvent{TaskID: taskID, State: StateFinished, Err: err})
}
