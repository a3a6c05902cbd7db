package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nanobanan/banana/internal/db/models"
	"github.com/nanobanan/banana/internal/db/repos"
	"github.com/nanobanan/banana/internal/events"
)

// refreshInterval is the fallback poll period when no events arrive
const refreshInterval = 2 * time.Second

// tableLimit bounds how many jobs the dashboard shows
const tableLimit = 100

// statusFilters is the cycle order for the 'f' key; Unknown means all
var statusFilters = []models.JobStatus{
	models.JobStatusUnknown,
	models.JobStatusQueued,
	models.JobStatusRunning,
	models.JobStatusCompleted,
	models.JobStatusFailed,
}

type (
	jobsLoadedMsg struct {
		jobs   []models.Job
		counts map[models.JobStatus]int64
	}
	jobEventMsg   events.Event
	tickMsg       time.Time
	submittedMsg  string
	statusLineMsg string
	errMsg        struct{ err error }
)

type model struct {
	ctx  context.Context
	opts Options
	ch   <-chan events.Event

	table   table.Model
	input   textinput.Model
	spin    spinner.Model
	jobs    []models.Job
	counts  map[models.JobStatus]int64
	filter  int // index into statusFilters
	detail  *models.Job
	status  string
	width   int
	height  int
	writing bool // input focused
}

func newModel(ctx context.Context, opts Options, ch <-chan events.Event) model {
	columns := []table.Column{
		{Title: "ID", Width: 12},
		{Title: "KIND", Width: 8},
		{Title: "STATUS", Width: 10},
		{Title: "TRY", Width: 4},
		{Title: "PROMPT", Width: 42},
		{Title: "CREATED", Width: 16},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	t.SetStyles(tableStyles())

	ti := textinput.New()
	ti.Placeholder = "describe an image and press enter"
	ti.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		ctx:    ctx,
		opts:   opts,
		ch:     ch,
		table:  t,
		input:  ti,
		spin:   sp,
		counts: map[models.JobStatus]int64{},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.loadJobs(), m.waitForEvent(), m.tick(), m.spin.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetHeight(max(4, m.height-9))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case jobsLoadedMsg:
		m.jobs = msg.jobs
		m.counts = msg.counts
		m.table.SetRows(jobRows(msg.jobs))
		return m, nil

	case jobEventMsg:
		// Any persisted change invalidates the snapshot; reload and keep
		// listening.
		return m, tea.Batch(m.loadJobs(), m.waitForEvent())

	case tickMsg:
		return m, tea.Batch(m.loadJobs(), m.tick())

	case submittedMsg:
		m.status = fmt.Sprintf("submitted %s", string(msg))
		return m, m.loadJobs()

	case statusLineMsg:
		m.status = string(msg)
		return m, m.loadJobs()

	case errMsg:
		m.status = msg.err.Error()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.writing {
		switch msg.String() {
		case "esc":
			m.writing = false
			m.input.Blur()
			return m, nil
		case "enter":
			prompt := m.input.Value()
			m.input.SetValue("")
			m.writing = false
			m.input.Blur()
			if prompt == "" {
				return m, nil
			}
			return m, m.submit(prompt)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if m.detail != nil {
		switch msg.String() {
		case "esc", "q", "enter":
			m.detail = nil
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "n":
		if m.opts.Engine == nil {
			m.status = "no API key configured; submissions disabled"
			return m, nil
		}
		m.writing = true
		return m, m.input.Focus()
	case "enter":
		if job := m.selectedJob(); job != nil {
			m.detail = job
		}
		return m, nil
	case "c":
		if job := m.selectedJob(); job != nil {
			return m, m.cancel(job.ID)
		}
		return m, nil
	case "f":
		m.filter = (m.filter + 1) % len(statusFilters)
		return m, m.loadJobs()
	case "r":
		return m, m.loadJobs()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) selectedJob() *models.Job {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.jobs) {
		return nil
	}
	job := m.jobs[idx]
	return &job
}

func (m model) loadJobs() tea.Cmd {
	return func() tea.Msg {
		filter := repos.Filter{Status: statusFilters[m.filter]}
		jobs, err := m.opts.Queries.List(m.ctx, filter, &models.ListOptions{Limit: tableLimit})
		if err != nil {
			return errMsg{err}
		}
		counts, err := m.opts.Queries.Counts(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		return jobsLoadedMsg{jobs: jobs, counts: counts}
	}
}

func (m model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return nil
		case ev, ok := <-m.ch:
			if !ok {
				return nil
			}
			return jobEventMsg(ev)
		}
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) submit(prompt string) tea.Cmd {
	cfg := m.opts.Config
	eng := m.opts.Engine
	return func() tea.Msg {
		params := models.Params{
			Model:       cfg.API.Model,
			AspectRatio: cfg.Defaults.AspectRatio,
			Size:        cfg.Defaults.Size,
			NumImages:   cfg.Defaults.NumImages,
		}
		id, err := eng.SubmitGenerate(m.ctx, prompt, params)
		if err != nil {
			return errMsg{err}
		}
		return submittedMsg(id)
	}
}

func (m model) cancel(id string) tea.Cmd {
	eng := m.opts.Engine
	return func() tea.Msg {
		if eng == nil {
			return errMsg{fmt.Errorf("no API key configured; cancel disabled")}
		}
		if err := eng.Cancel(m.ctx, id); err != nil {
			return errMsg{err}
		}
		return statusLineMsg(fmt.Sprintf("cancelled %s", id))
	}
}

func jobRows(jobs []models.Job) []table.Row {
	rows := make([]table.Row, len(jobs))
	for i, job := range jobs {
		rows[i] = table.Row{
			job.ID,
			string(job.Kind),
			job.Status.String(),
			fmt.Sprintf("%d", job.Attempts),
			job.PromptPreview(40),
			job.CreatedAt.Local().Format("2006-01-02 15:04"),
		}
	}
	return rows
}
