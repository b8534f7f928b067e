package ui

import (
	"fmt"
	"strings"

	"lecturemate/internal/hotkey"
	"lecturemate/internal/util/format"
)

func (m Model) View() string {
	parts := []string{m.viewHeader(), m.viewPlayer(), m.viewGate()}
	if m.st.noting {
		parts = append(parts, m.styles.Label.Render("Note @ "+format.FormatClock(m.st.noteAt))+"\n"+m.input.View())
	}
	if m.st.completed {
		parts = append(parts, m.styles.Banner.Render("✓ Lecture complete"))
	}
	parts = append(parts, m.viewStatus(), m.viewHelp())
	return strings.Join(parts, "\n\n")
}

func (m Model) viewHeader() string {
	title := m.styles.Title.Render("lecturemate")
	lecture := m.lecture.Title
	if lecture == "" {
		lecture = m.lecture.LectureID
	}
	sub := m.styles.Subtitle.Render(fmt.Sprintf("%s • %s", m.lecture.CourseID, truncate(lecture, 48)))
	return title + "\n" + sub
}

func (m Model) viewPlayer() string {
	ps := m.player.State()
	state := "▶ playing"
	switch {
	case ps.Ended:
		state = "■ ended"
	case ps.Paused:
		state = "❚❚ paused"
	}

	pos := fmt.Sprintf("%s / %s", format.FormatClock(ps.Position), format.FormatClock(ps.Duration))
	credited := ps.Rate
	if credited > 1 {
		credited = 1
	}
	rate := m.styles.Rate.Render(fmt.Sprintf("%.2fx", ps.Rate))
	if credited != ps.Rate {
		rate += m.styles.Faint.Render(fmt.Sprintf(" (credited %.2fx)", credited))
	}

	p := m.st.progress
	watched := fmt.Sprintf("watched %s • %s", format.FormatClock(p.WatchedTime), format.Percent(p.Completion))
	bar := m.bar.ViewAs(clamp01(p.Completion))

	return m.styles.Box.Render(
		m.styles.Info.Render(state) + "  " + pos + "  " + rate + "\n" +
			bar + "\n" +
			m.styles.Label.Render(watched),
	)
}

func (m Model) viewGate() string {
	g := m.st.gate
	flag := func(name string, ok bool) string {
		if ok {
			return m.styles.GateOn.Render("● " + name)
		}
		return m.styles.GateOff.Render("○ " + name)
	}
	return strings.Join([]string{
		flag("playing", g.Playing),
		flag("unmuted", g.Unmuted),
		flag("visible", g.Visible),
		flag("on screen", g.InViewport),
		flag("steady", g.DeltaValid),
	}, "  ")
}

func (m Model) viewStatus() string {
	var b strings.Builder
	if m.st.err != nil {
		b.WriteString(m.styles.Error.Render(m.st.status))
	} else {
		b.WriteString(m.styles.Info.Render(m.st.status))
	}
	if m.st.notes > 0 {
		b.WriteString(m.styles.Faint.Render(fmt.Sprintf("  (%d notes this session)", m.st.notes)))
	}
	for _, l := range m.st.logs {
		b.WriteString("\n")
		b.WriteString(m.styles.Warning.Render(l))
	}
	return b.String()
}

func (m Model) viewHelp() string {
	keys := []string{
		chordLabel(m.bindings, hotkey.ActionPlayPause) + " play/pause",
		chordLabel(m.bindings, hotkey.ActionSeekBackward) + "/" + chordLabel(m.bindings, hotkey.ActionSeekForward) + " ±10s",
		chordLabel(m.bindings, hotkey.ActionAddNote) + " note",
		"+/- rate",
		"m mute",
		"v tab",
		"o scroll",
		"q quit",
	}
	return m.styles.Faint.Render(strings.Join(keys, " • "))
}

func clamp01(f float64) float64 {
	if f < 0 || f != f {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 || len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
