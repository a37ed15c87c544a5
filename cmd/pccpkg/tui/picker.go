package tui

import (
	"fmt"
	"strings"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/types"
)

// PickerModel lists the extensions of an installation and tracks which are
// selected for building.
type PickerModel struct {
	title      string
	extensions []types.ExtensionInfo
	cursor     int
	selected   map[int]bool
	offset     int
	width      int
	height     int
}

// NewPickerModel creates a picker over exts.
func NewPickerModel(title string, exts []types.ExtensionInfo) PickerModel {
	return PickerModel{
		title:      title,
		extensions: exts,
		selected:   make(map[int]bool),
		width:      80,
		height:     24,
	}
}

// SetDimensions updates the terminal size.
func (m *PickerModel) SetDimensions(width, height int) {
	m.width = width
	m.height = height
	m.ensureVisible()
}

// HandleKey moves the cursor or changes the selection.
func (m *PickerModel) HandleKey(key string) {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureVisible()
		}

	case "down", "j":
		if m.cursor < len(m.extensions)-1 {
			m.cursor++
			m.ensureVisible()
		}

	case " ", "x":
		m.Toggle(m.cursor)

	case "a":
		m.SelectAll()

	case "n":
		m.SelectNone()

	case "home", "g":
		m.cursor = 0
		m.offset = 0

	case "end", "G":
		if len(m.extensions) > 0 {
			m.cursor = len(m.extensions) - 1
			m.ensureVisible()
		}

	case "pgup":
		m.cursor -= m.visibleRows()
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.ensureVisible()

	case "pgdown":
		m.cursor += m.visibleRows()
		if m.cursor >= len(m.extensions) {
			m.cursor = len(m.extensions) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.ensureVisible()
	}
}

// Toggle flips the selection of the extension at index i.
func (m *PickerModel) Toggle(i int) {
	if i < 0 || i >= len(m.extensions) {
		return
	}
	if m.selected[i] {
		delete(m.selected, i)
	} else {
		m.selected[i] = true
	}
}

// SelectAll selects every extension.
func (m *PickerModel) SelectAll() {
	for i := range m.extensions {
		m.selected[i] = true
	}
}

// SelectNone clears the selection.
func (m *PickerModel) SelectNone() {
	m.selected = make(map[int]bool)
}

// HasSelection reports whether anything is selected.
func (m PickerModel) HasSelection() bool {
	return len(m.selected) > 0
}

// SelectedCount returns the number of selected extensions.
func (m PickerModel) SelectedCount() int {
	return len(m.selected)
}

// Selected returns the names of the selected extensions in list order.
func (m PickerModel) Selected() []string {
	var out []string
	for i, e := range m.extensions {
		if m.selected[i] {
			out = append(out, e.Name)
		}
	}
	return out
}

// Current returns the extension under the cursor.
func (m PickerModel) Current() (types.ExtensionInfo, bool) {
	if m.cursor < 0 || m.cursor >= len(m.extensions) {
		return types.ExtensionInfo{}, false
	}
	return m.extensions[m.cursor], true
}

func (m PickerModel) visibleRows() int {
	// border, title, help bar, three dividers and the footer
	rows := m.height - 8
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *PickerModel) ensureVisible() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// View renders the picker.
func (m PickerModel) View() string {
	width := m.width - 4
	if width < 40 {
		width = 40
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(truncate(m.title, width)))
	b.WriteString("\n")
	b.WriteString(renderDivider(width))
	b.WriteString("\n")
	b.WriteString(renderHelp("↑/↓", "move", "space", "select", "a/n", "all/none", "enter", "build", "q", "quit"))
	b.WriteString("\n")
	b.WriteString(renderDivider(width))
	b.WriteString("\n")

	if len(m.extensions) == 0 {
		b.WriteString(mutedTextStyle.Render("No buildable extensions found."))
		b.WriteString("\n")
	}

	end := m.offset + m.visibleRows()
	if end > len(m.extensions) {
		end = len(m.extensions)
	}
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(i, width))
		b.WriteString("\n")
	}

	b.WriteString(renderDivider(width))
	b.WriteString("\n")
	b.WriteString(mutedTextStyle.Render(fmt.Sprintf("%d of %d selected", m.SelectedCount(), len(m.extensions))))

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

func (m PickerModel) renderRow(i, width int) string {
	e := m.extensions[i]

	cursor := "  "
	if i == m.cursor {
		cursor = cursorStyle.Render("> ")
	}
	box := uncheckedStyle.Render("[ ]")
	if m.selected[i] {
		box = checkedStyle.Render("[x]")
	}

	label := e.Name
	if e.Version != "" {
		label += " " + e.Version
	}
	label = truncate(label, width-18)
	if i == m.cursor {
		label = selectedItemStyle.Render(label)
	} else {
		label = normalItemStyle.Render(label)
	}
	return cursor + box + " " + typeStyle.Render(e.Type) + " " + label
}
