package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TaskState is the lifecycle stage reported for a scheduled task.
type TaskState string

const (
	StateCreated  TaskState = "created"
	StateParked   TaskState = "parked"
	StateRunning  TaskState = "running"
	StateFinished TaskState = "finished"
)

// TaskEvent reports a scheduler lifecycle transition to the monitor.
type TaskEvent struct {
	TaskID   string
	FutureID string
	State    TaskState
	Final    bool
	Err      error
}

// LogMessage appends a line to the monitor's log pane.
type LogMessage struct {
	Message string
}

// taskStatus tracks one in-flight task.
type taskStatus struct {
	id      string
	state   TaskState
	started time.Time
}

type Model struct {
	tasks        map[string]*taskStatus
	order        []string
	logs         []string
	spinner      spinner.Model
	width        int
	height       int
	quit         bool
	errorCount   int
	successCount int
}

func NewModel() Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		tasks:   make(map[string]*taskStatus),
		order:   []string{},
		logs:    []string{},
		spinner: sp,
		width:   80,
		height:  24,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.handleKeyMsg(msg) {
			m.quit = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TaskEvent:
		m = m.handleTaskEvent(msg)

	case LogMessage:
		m = m.handleLogMessage(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "ctrl+c":
		return true
	}
	return false
}

func (m Model) handleTaskEvent(msg TaskEvent) Model {
	switch msg.State {
	case StateCreated:
		m.tasks[msg.TaskID] = &taskStatus{
			id:      msg.TaskID,
			state:   StateCreated,
			started: time.Now(),
		}
		m.order = append(m.order, msg.TaskID)

	case StateFinished:
		delete(m.tasks, msg.TaskID)
		for i, id := range m.order {
			if id == msg.TaskID {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
		if msg.Err != nil {
			m.errorCount++
		} else {
			m.successCount++
		}

	default:
		if status, exists := m.tasks[msg.TaskID]; exists {
			status.state = msg.State
		}
	}
	return m
}

func (m Model) handleLogMessage(msg LogMessage) Model {
	m.logs = append(m.logs, fmt.Sprintf("[%s] %s",
		time.Now().Format("15:04:05"), msg.Message))
	if len(m.logs) > 10 {
		m.logs = m.logs[len(m.logs)-10:]
	}
	return m
}

func (m Model) View() string {
	if m.quit {
		return "Shutting down...\n"
	}

	var s strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).
		MarginBottom(1)

	s.WriteString(headerStyle.Render("Slack Bridge Monitor"))
	s.WriteString("\n\n")

	summaryStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))

	summary := fmt.Sprintf("In flight: %d | Completed: %d | Errors: %d",
		len(m.tasks), m.successCount, m.errorCount)
	s.WriteString(summaryStyle.Render(summary))
	s.WriteString("\n\n")

	taskSectionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1).
		Width(m.width - 2)

	var taskLines strings.Builder
	taskLines.WriteString("Active Tasks\n")
	taskLines.WriteString(strings.Repeat("─", 60) + "\n")

	for _, id := range m.order {
		status, exists := m.tasks[id]
		if !exists {
			continue
		}
		taskLines.WriteString(fmt.Sprintf("%s %-38s %-8s %s\n",
			m.spinner.View(),
			truncate(id, 38),
			status.state,
			time.Since(status.started).Round(time.Millisecond)))
	}
	if len(m.order) == 0 {
		taskLines.WriteString("(idle)\n")
	}

	s.WriteString(taskSectionStyle.Render(taskLines.String()))
	s.WriteString("\n")

	if len(m.logs) > 0 {
		logStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
		s.WriteString(logStyle.Render(strings.Join(m.logs, "\n")))
		s.WriteString("\n")
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	s.WriteString(helpStyle.Render("Press q to quit"))

	return s.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
