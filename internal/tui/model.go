package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/theakshaypant/gaps/internal/core"
	"github.com/theakshaypant/gaps/internal/freetime"
	"github.com/theakshaypant/gaps/internal/util"
)

// KeyMap defines the keybindings for the TUI
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Open       key.Binding
	Refresh    key.Binding
	NextWeek   key.Binding
	PrevWeek   key.Binding
	Today      key.Binding
	Tab        key.Binding
	Quit       key.Binding
	Help       key.Binding
}

var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑", "prev day"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓", "next day"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("ctrl+u", "scroll up"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("ctrl+d", "scroll down"),
	),
	Open: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open next event"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	NextWeek: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→", "next horizon"),
	),
	PrevWeek: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←", "prev horizon"),
	),
	Today: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "today"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch panel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

// PanelFocus selects the panel shown in compact mode.
type PanelFocus int

const (
	FocusList PanelFocus = iota
	FocusDetail
)

// Loader computes a plan for the horizon starting on reference's day.
type Loader func(ctx context.Context, reference time.Time) (*core.Plan, error)

// Model is the Bubble Tea model for browsing free time day by day.
type Model struct {
	plan        *core.Plan
	days        []core.Day
	selectedIdx int
	reference   time.Time
	now         func() time.Time
	horizon     int

	width         int
	height        int
	listWidth     int
	detailWidth   int
	contentHeight int

	keys          KeyMap
	load          Loader
	loading       bool
	err           error
	listView      viewport.Model
	detailView    viewport.Model
	viewportReady bool
	compactMode   bool
	focusedPanel  PanelFocus
	showHelp      bool
}

// NewModel creates a model that starts on reference. horizon is the number of
// days one plan covers, used to page between horizons.
func NewModel(load Loader, reference time.Time, horizon int) Model {
	if horizon < 1 {
		horizon = 7
	}
	return Model{
		reference: reference,
		now:       time.Now,
		horizon:   horizon,
		keys:      DefaultKeyMap,
		load:      load,
		loading:   true,
	}
}

type planLoadedMsg struct {
	plan *core.Plan
	err  error
}

type tickMsg time.Time

func (m Model) loadPlan() tea.Cmd {
	ref := m.reference
	load := m.load
	return func() tea.Msg {
		plan, err := load(context.Background(), ref)
		return planLoadedMsg{plan: plan, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadPlan(), tickCmd())
}

func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// todayIdx returns the index of today in the loaded days, or 0.
func (m Model) todayIdx() int {
	now := m.now()
	for i, d := range m.days {
		if sameDay(d.Date, now) {
			return i
		}
	}
	return 0
}

func (m *Model) calculateLayout() {
	height := max(m.height, 10)

	// header, help bar and padding take ~6 lines
	m.contentHeight = max(height-6, 5)
	m.compactMode = m.width < 70

	if m.compactMode {
		m.listWidth = max(m.width-4, 20)
		m.detailWidth = m.listWidth
		return
	}

	m.listWidth = min(max(m.width*30/100, 30), 40)
	m.detailWidth = max(m.width-m.listWidth-5, 35)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.calculateLayout()

		listW, listH := max(m.listWidth-4, 10), max(m.contentHeight-4, 1)
		detailW, detailH := max(m.detailWidth-4, 10), max(m.contentHeight-4, 1)

		if !m.viewportReady {
			m.listView = viewport.New(listW, listH)
			m.detailView = viewport.New(detailW, detailH)
			m.viewportReady = true
		} else {
			m.listView.Width, m.listView.Height = listW, listH
			m.detailView.Width, m.detailView.Height = detailW, detailH
		}
		m.updateListContent()
		m.updateDetailContent()
		return m, nil

	case planLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil && msg.plan != nil {
			m.plan = msg.plan
			m.days = msg.plan.Days()
			m.selectedIdx = m.todayIdx()
			m.updateListContent()
			m.updateDetailContent()
			m.detailView.GotoTop()
		}
		return m, nil

	case tickMsg:
		m.updateListContent()
		m.updateDetailContent()
		return m, tickCmd()

	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
			return m, nil

		case key.Matches(msg, m.keys.Up):
			if m.selectedIdx > 0 {
				m.selectDay(m.selectedIdx - 1)
			}
			return m, nil

		case key.Matches(msg, m.keys.Down):
			if m.selectedIdx < len(m.days)-1 {
				m.selectDay(m.selectedIdx + 1)
			}
			return m, nil

		case key.Matches(msg, m.keys.ScrollUp):
			if m.compactMode && m.focusedPanel == FocusList {
				m.listView.ViewUp()
			} else {
				m.detailView.ViewUp()
			}
			return m, nil

		case key.Matches(msg, m.keys.ScrollDown):
			if m.compactMode && m.focusedPanel == FocusList {
				m.listView.ViewDown()
			} else {
				m.detailView.ViewDown()
			}
			return m, nil

		case key.Matches(msg, m.keys.NextWeek):
			m.reference = m.reference.AddDate(0, 0, m.horizon)
			m.loading = true
			return m, m.loadPlan()

		case key.Matches(msg, m.keys.PrevWeek):
			m.reference = m.reference.AddDate(0, 0, -m.horizon)
			m.loading = true
			return m, m.loadPlan()

		case key.Matches(msg, m.keys.Today):
			now := m.now()
			if len(m.days) > 0 && sameDay(m.days[0].Date, now) {
				m.selectDay(m.todayIdx())
				return m, nil
			}
			m.reference = now
			m.loading = true
			return m, m.loadPlan()

		case key.Matches(msg, m.keys.Tab):
			if m.focusedPanel == FocusList {
				m.focusedPanel = FocusDetail
			} else {
				m.focusedPanel = FocusList
			}
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			m.loading = true
			return m, m.loadPlan()

		case key.Matches(msg, m.keys.Open):
			if e, ok := m.nextEvent(); ok && e.URL != "" {
				return m, openURL(e.URL)
			}
			return m, nil
		}
	}
	return m, nil
}

func (m *Model) selectDay(i int) {
	m.selectedIdx = i
	m.updateListContent()
	m.scrollListToSelection()
	m.updateDetailContent()
	m.detailView.GotoTop()
}

// nextEvent returns the first event of the selected day that has not ended.
func (m Model) nextEvent() (core.Event, bool) {
	if m.selectedIdx >= len(m.days) {
		return core.Event{}, false
	}
	now := m.now()
	for _, e := range m.days[m.selectedIdx].Events {
		if e.End.After(now) {
			return e, true
		}
	}
	return core.Event{}, false
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string
	switch {
	case m.loading:
		content = lipgloss.NewStyle().
			Width(m.width-4).
			Height(m.contentHeight).
			Align(lipgloss.Center, lipgloss.Center).
			Render("Computing free time...")
	case m.err != nil:
		content = lipgloss.NewStyle().
			Width(m.width - 4).
			Height(m.contentHeight).
			Foreground(errorColor).
			Render(ansi.Wordwrap(fmt.Sprintf("Error: %v", m.err), m.width-4, ""))
	case m.compactMode:
		switch {
		case m.showHelp:
			content = m.renderHelpPanel()
		case m.focusedPanel == FocusList:
			content = m.renderListPanel()
		default:
			content = m.renderDetailPanel()
		}
	default:
		right := m.renderDetailPanel()
		if m.showHelp {
			right = m.renderHelpPanel()
		}
		content = lipgloss.JoinHorizontal(lipgloss.Top, m.renderListPanel(), " ", right)
	}

	return AppStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), content, m.renderHelp()),
	)
}

func (m Model) renderHeader() string {
	title := HeaderStyle.Render("gaps")

	span := ""
	if len(m.days) > 0 {
		first, last := m.days[0].Date, m.days[len(m.days)-1].Date
		span = fmt.Sprintf("%s – %s", first.Format("Mon Jan 2"), last.Format("Mon Jan 2"))
		if m.plan != nil {
			span += fmt.Sprintf("  •  %s free", formatMinutes(freetime.Total(m.plan.Free)))
		}
	}
	date := lipgloss.NewStyle().Foreground(mutedColor).Render(span)

	indicator := ""
	if m.compactMode {
		label := " [Days]"
		if m.focusedPanel == FocusDetail {
			label = " [Timeline]"
		}
		indicator = lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render(label)
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", date, indicator)
}

func (m *Model) updateListContent() {
	if !m.viewportReady {
		return
	}
	if len(m.days) == 0 {
		m.listView.SetContent(NormalDayStyle.Render("No days loaded"))
		return
	}

	now := m.now()
	items := make([]string, 0, len(m.days))
	for i, d := range m.days {
		items = append(items, renderDayItem(d, i == m.selectedIdx, now))
	}
	m.listView.SetContent(strings.Join(items, "\n"))
}

func renderDayItem(d core.Day, selected bool, now time.Time) string {
	label := d.Date.Format("Mon Jan 2")
	if sameDay(d.Date, now) {
		label = "Today"
	}

	total := "no gaps"
	totalStyle := NoFreeTimeStyle
	if minutes := d.FreeMinutes(); minutes > 0 {
		total = formatMinutes(minutes) + " free"
		totalStyle = FreeTotalStyle
	}

	past := d.Date.AddDate(0, 0, 1).Before(now)
	switch {
	case selected:
		return SelectedDayStyle.Render(DayLabelStyle.Render(label) + " " + total)
	case past:
		return PastDayStyle.Render(DayLabelStyle.Render(label) + " " + total)
	default:
		return NormalDayStyle.Render(DayLabelStyle.Render(label) + " " + totalStyle.Render(total))
	}
}

func (m *Model) scrollListToSelection() {
	if !m.viewportReady {
		return
	}
	top := m.listView.YOffset
	bottom := top + m.listView.Height
	if m.selectedIdx < top {
		m.listView.SetYOffset(m.selectedIdx)
	}
	if m.selectedIdx+1 > bottom {
		m.listView.SetYOffset(m.selectedIdx + 1 - m.listView.Height)
	}
}

func (m Model) renderListPanel() string {
	header := lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render("Days")
	return ListPanelStyle.Width(m.listWidth).Height(m.contentHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, m.listView.View()),
	)
}

// slot is one row of a day's timeline.
type slot struct {
	start, end time.Time
	free       *freetime.FreeInterval
	event      *core.Event
}

func daySlots(d core.Day) []slot {
	slots := make([]slot, 0, len(d.Free)+len(d.Events))
	for i := range d.Free {
		slots = append(slots, slot{start: d.Free[i].Start, end: d.Free[i].End, free: &d.Free[i]})
	}
	for i := range d.Events {
		slots = append(slots, slot{start: d.Events[i].Start, end: d.Events[i].End, event: &d.Events[i]})
	}
	slices.SortStableFunc(slots, func(a, b slot) int { return a.start.Compare(b.start) })
	return slots
}

func (m *Model) updateDetailContent() {
	if !m.viewportReady || len(m.days) == 0 || m.selectedIdx >= len(m.days) {
		return
	}

	d := m.days[m.selectedIdx]
	width := m.detailView.Width
	var lines []string

	lines = append(lines, TitleStyle.Render(d.Date.Format("Monday, January 2")))

	slots := daySlots(d)
	if len(slots) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(mutedColor).Render("Nothing scheduled, no gaps computed"))
	}

	for _, s := range slots {
		when := SlotTimeStyle.Render(formatSpan(s.start, s.end))
		textWidth := max(width-lipgloss.Width(when)-1, 10)

		if s.free != nil {
			lines = append(lines, when+" "+FreeSlotStyle.Render("free "+formatMinutes(s.free.Duration)))
			continue
		}

		e := s.event
		title := util.TruncateText(e.Title, textWidth)
		if title == "" {
			title = "(busy)"
		}
		style := BusySlotStyle
		if e.Status == core.StatusTentative || e.Status == core.StatusAwaiting {
			style = TentativeStyle
		}
		text := style.Render(title)
		if e.URL != "" {
			text = util.MakeHyperlink(e.URL, LinkStyle.Render(title))
		}
		if e.Status == core.StatusRejected {
			text = lipgloss.NewStyle().Foreground(mutedColor).Strikethrough(true).Render(title)
		}
		if e.InProgress(m.now()) {
			text += " " + TentativeStyle.Render("● now")
		}
		lines = append(lines, when+" "+text)
	}

	if m.plan != nil && len(m.plan.Skipped) > 0 {
		lines = append(lines, "")
		msg := fmt.Sprintf("%d event(s) without usable times were ignored", len(m.plan.Skipped))
		lines = append(lines, WarningStyle.Render(ansi.Wordwrap(msg, width, "")))
	}

	m.detailView.SetContent(strings.Join(lines, "\n"))
}

func (m Model) renderDetailPanel() string {
	scrollInfo := ""
	if m.viewportReady && m.detailView.TotalLineCount() > m.detailView.Height {
		scrollInfo = lipgloss.NewStyle().
			Foreground(mutedColor).
			Render(fmt.Sprintf(" (%d%%)", int(m.detailView.ScrollPercent()*100)))
	}

	header := lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render("Timeline") + scrollInfo
	return DetailPanelStyle.Width(m.detailWidth).Height(m.contentHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, "", m.detailView.View()),
	)
}

func (m Model) renderHelp() string {
	keys := []string{
		HelpKeyStyle.Render("↑/↓") + " day",
		HelpKeyStyle.Render("←/→") + " horizon",
		HelpKeyStyle.Render("tab") + " panel",
		HelpKeyStyle.Render("t") + " today",
		HelpKeyStyle.Render("enter") + " open",
		HelpKeyStyle.Render("r") + " refresh",
		HelpKeyStyle.Render("q") + " quit",
	}

	full := strings.Join(keys, "  •  ")
	if lipgloss.Width(full) > m.width-4 {
		return HelpStyle.Render(HelpKeyStyle.Render("?") + " help")
	}
	return HelpStyle.Render(full)
}

func (m Model) renderHelpPanel() string {
	header := lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render("Keyboard Shortcuts")

	lines := []string{
		"",
		HelpKeyStyle.Render("  ↑ / k      ") + " Previous day",
		HelpKeyStyle.Render("  ↓ / j      ") + " Next day",
		HelpKeyStyle.Render("  ctrl+u/d   ") + " Scroll timeline",
		HelpKeyStyle.Render("  → / l      ") + " Next horizon",
		HelpKeyStyle.Render("  ← / h      ") + " Previous horizon",
		HelpKeyStyle.Render("  t          ") + " Jump to today",
		HelpKeyStyle.Render("  tab        ") + " Switch panel",
		HelpKeyStyle.Render("  enter      ") + " Open the day's next event",
		HelpKeyStyle.Render("  r          ") + " Recompute",
		HelpKeyStyle.Render("  q / ctrl+c ") + " Quit",
		"",
		lipgloss.NewStyle().Foreground(mutedColor).Italic(true).Render("  Press any key to close"),
	}

	width := m.detailWidth
	if m.compactMode {
		width = m.listWidth
	}
	return DetailPanelStyle.Width(width).Height(m.contentHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, strings.Join(lines, "\n")),
	)
}

// formatMinutes renders a minute count as "2h 30m".
func formatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = -minutes
	}
	days, hours, mins := minutes/(24*60), minutes/60%24, minutes%60

	switch {
	case days > 0 && hours > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case days > 0:
		return fmt.Sprintf("%dd", days)
	case hours > 0 && mins > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

// formatSpan prints start-end, adding the end's weekday when it falls on another day.
func formatSpan(start, end time.Time) string {
	if start.IsZero() {
		return "--:--"
	}
	if sameDay(start, end) {
		return fmt.Sprintf("%s – %s", start.Format("15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s – %s", start.Format("15:04"), end.In(start.Location()).Format("Mon 15:04"))
}

func openURL(url string) tea.Cmd {
	return func() tea.Msg {
		_ = util.OpenBrowser(url)
		return nil
	}
}
