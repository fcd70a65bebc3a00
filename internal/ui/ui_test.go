package ui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

func TestBold_ContainsText(t *testing.T) {
	Init(false)
	result := Bold("hello")
	if !strings.Contains(result, "hello") {
		t.Errorf("Bold output should contain 'hello', got %q", result)
	}
}

func TestColorDisabled_PlainText(t *testing.T) {
	Init(true) // no color
	defer Init(false)

	if Bold("hello") != "hello" {
		t.Errorf("expected plain text when color disabled, got %q", Bold("hello"))
	}
	if Red("error") != "error" {
		t.Errorf("expected plain text, got %q", Red("error"))
	}
	if Yellow("warn") != "warn" {
		t.Errorf("expected plain text, got %q", Yellow("warn"))
	}
	if Dim("dim") != "dim" {
		t.Errorf("expected plain text, got %q", Dim("dim"))
	}
}

func TestLoggerInitialized(t *testing.T) {
	Init(false)
	if Logger == nil {
		t.Error("Logger should be initialized after Init()")
	}
}

func TestSetLevel(t *testing.T) {
	Init(true)
	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel(debug): %v", err)
	}
	if Logger.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v, want debug", Logger.GetLevel())
	}
	if err := SetLevel("shouting"); err == nil {
		t.Error("expected error for unknown level")
	}
	if Logger.GetLevel() != log.InfoLevel {
		t.Errorf("level = %v, want info after unknown name", Logger.GetLevel())
	}
}

func TestTable(t *testing.T) {
	Init(true)
	var buf bytes.Buffer
	Table(&buf, []string{"DEVICE", "CAPTURE"}, [][]string{{"a", "1"}, {"long-device", "2"}})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "DEVICE") || !strings.Contains(lines[2], "long-device  2") {
		t.Errorf("unexpected table:\n%s", buf.String())
	}
}

func TestRenderMarkdown_ContainsText(t *testing.T) {
	Init(true)
	var buf bytes.Buffer
	RenderMarkdown(&buf, "# Heading\n\nbody text\n")
	if !strings.Contains(buf.String(), "body text") {
		t.Errorf("rendered output should contain body text, got %q", buf.String())
	}
}

func TestConfirmModel_Keys(t *testing.T) {
	Init(true)
	m := confirmModel{prompt: "Overwrite?"}
	next, _ := m.Update(keyMsg("n"))
	if got := next.(confirmModel); !got.decided || got.accepted {
		t.Errorf("'n' should decline, got %+v", got)
	}
	next, _ = m.Update(keyMsg("right"))
	next, _ = next.(confirmModel).Update(keyMsg("enter"))
	if got := next.(confirmModel); !got.decided || got.accepted {
		t.Errorf("right+enter should decline, got %+v", got)
	}
	next, _ = m.Update(keyMsg("y"))
	if got := next.(confirmModel); !got.accepted {
		t.Errorf("'y' should accept, got %+v", got)
	}
	if !strings.Contains(m.View(), "Overwrite?") {
		t.Error("view should contain the prompt")
	}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}
