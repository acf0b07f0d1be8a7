package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ProducerMatt/stampy-chat/client"
	"github.com/ProducerMatt/stampy-chat/logger"
	"github.com/ProducerMatt/stampy-chat/render"
)

// resultIDPrefix plus the positional index identifies a list row. Positions
// are stable because every search replaces the whole collection.
const resultIDPrefix = "search-result-"

const updateBufferSize = 8

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// Submitter is the slice of the search controller the page drives.
type Submitter interface {
	Submit(ctx context.Context, query string, ui client.UIState) error
}

type setLoadingMsg struct {
	loading bool
}

type setQueryTextMsg struct {
	text string
}

type setResultsMsg struct {
	entries []client.ResultEntry
}

type submitFinishedMsg struct {
	err error
}

type entryItem struct {
	id    string
	entry render.RenderedEntry
}

func (i entryItem) Title() string       { return i.entry.Title }
func (i entryItem) Description() string { return i.entry.Byline }
func (i entryItem) FilterValue() string { return i.entry.Title }

// Page is the interactive search screen: a query box on top, the result list
// below it and the selected entry's full text underneath. State mutations
// triggered by a submission travel back to the update loop as messages over
// the updates channel, so they apply in the order the controller issued them.
type Page struct {
	controller Submitter
	logger     logger.Logger

	input   textinput.Model
	spin    spinner.Model
	results list.Model
	detail  viewport.Model

	updates chan tea.Msg

	entries  []render.RenderedEntry
	loading  bool
	searched bool
	status   string
	width    int
	height   int
}

func NewPage(controller Submitter, logger logger.Logger) *Page {
	input := textinput.New()
	input.Placeholder = "Search the alignment corpus..."
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(statusStyle))

	results := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	results.Title = "Results"
	results.SetShowStatusBar(false)
	results.SetFilteringEnabled(false)
	results.SetShowHelp(false)

	return &Page{
		controller: controller,
		logger:     logger,
		input:      input,
		spin:       spin,
		results:    results,
		detail:     viewport.New(0, 0),
		updates:    make(chan tea.Msg, updateBufferSize),
	}
}

// uiState adapts the controller's setters onto the updates channel. The
// setters run on the submission goroutine; the channel hands their effects to
// the update loop one at a time.
func (p *Page) uiState() client.UIState {
	return client.UIState{
		SetQueryText: func(text string) { p.updates <- setQueryTextMsg{text: text} },
		SetLoading:   func(loading bool) { p.updates <- setLoadingMsg{loading: loading} },
		SetResults:   func(entries []client.ResultEntry) { p.updates <- setResultsMsg{entries: entries} },
	}
}

func (p *Page) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return <-p.updates
	}
}

func (p *Page) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, p.waitForUpdate())
}

func (p *Page) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		p.layout()
		p.refreshDetail()
		return p, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return p, tea.Quit
		case tea.KeyEnter:
			p.status = ""
			return p, p.submit(p.input.Value())
		case tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			p.results, cmd = p.results.Update(msg)
			p.refreshDetail()
			return p, cmd
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			p.detail, cmd = p.detail.Update(msg)
			return p, cmd
		default:
			var cmd tea.Cmd
			p.input, cmd = p.input.Update(msg)
			return p, cmd
		}

	case setLoadingMsg:
		p.loading = msg.loading
		cmds := []tea.Cmd{p.waitForUpdate()}
		if p.loading {
			cmds = append(cmds, p.spin.Tick)
		}
		return p, tea.Batch(cmds...)

	case setQueryTextMsg:
		p.input.SetValue(msg.text)
		return p, p.waitForUpdate()

	case setResultsMsg:
		p.setEntries(msg.entries)
		return p, p.waitForUpdate()

	case submitFinishedMsg:
		if msg.err != nil {
			p.logger.Error("search failed", "error", msg.err.Error())
			p.status = msg.err.Error()
		}
		return p, nil

	case spinner.TickMsg:
		if !p.loading {
			return p, nil
		}
		var cmd tea.Cmd
		p.spin, cmd = p.spin.Update(msg)
		return p, cmd
	}

	return p, nil
}

// submit hands the typed query to the controller on its own goroutine. The
// controller's setters stream back through the updates channel while this
// command is in flight.
func (p *Page) submit(query string) tea.Cmd {
	ui := p.uiState()
	return func() tea.Msg {
		return submitFinishedMsg{err: p.controller.Submit(context.Background(), query, ui)}
	}
}

func (p *Page) setEntries(entries []client.ResultEntry) {
	p.searched = true
	p.entries = make([]render.RenderedEntry, len(entries))
	items := make([]list.Item, len(entries))
	for i, entry := range entries {
		rendered := render.Entry(entry)
		p.entries[i] = rendered
		items[i] = entryItem{id: resultIDPrefix + strconv.Itoa(i), entry: rendered}
	}
	p.results.SetItems(items)
	p.results.Select(0)
	p.refreshDetail()
}

func (p *Page) refreshDetail() {
	index := p.results.Index()
	if index < 0 || index >= len(p.entries) {
		p.detail.SetContent("")
		return
	}
	p.detail.SetContent(render.Text(p.entries[index], p.detail.Width))
	p.detail.GotoTop()
}

func (p *Page) layout() {
	inputWidth := p.width - 4
	if inputWidth < 20 {
		inputWidth = p.width
	}
	p.input.Width = inputWidth

	listHeight := (p.height - 4) / 2
	if listHeight < 5 {
		listHeight = 5
	}
	p.results.SetSize(p.width, listHeight)

	detailHeight := p.height - 4 - listHeight
	if detailHeight < 3 {
		detailHeight = 3
	}
	p.detail.Width = p.width
	p.detail.Height = detailHeight
}

func (p *Page) View() string {
	var status string
	switch {
	case p.loading:
		status = statusStyle.Render(p.spin.View() + " searching...")
	case p.status != "":
		status = errorStyle.Render(p.status)
	case !p.searched:
		status = statusStyle.Render("Type a question and press Enter")
	case len(p.entries) == 0:
		status = statusStyle.Render("No results found")
	default:
		status = statusStyle.Render(fmt.Sprintf("%d results", len(p.entries)))
	}

	return lipgloss.JoinVertical(
		lipgloss.Top,
		p.input.View(),
		status,
		p.results.View(),
		p.detail.View(),
	)
}

// Run drives the interactive page until the user quits.
func Run(controller Submitter, logger logger.Logger) error {
	program := tea.NewProgram(NewPage(controller, logger), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run search page: %w", err)
	}

	return nil
}
