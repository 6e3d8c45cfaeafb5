package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"
	"github.com/reelcut/reelcut-agent/internal/editor"
)

type Tray struct {
	session *editor.Session
	logger  *slog.Logger

	statusItem *Item
	editsItem  *Item

	mu sync.Mutex

	onQuit func()
}

// Item aliases the systray menu item so callers outside this package never
// import systray directly.
type Item = systray.MenuItem

type TrayConfig struct {
	Session *editor.Session
	Logger  *slog.Logger
	OnQuit  func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		session: cfg.Session,
		logger:  cfg.Logger,
		onQuit:  cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Reelcut")
	systray.SetTooltip("Reelcut Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current editor status")
	t.statusItem.Disable()

	t.editsItem = systray.AddMenuItem("Edits: 0", "Edits applied this session")
	t.editsItem.Disable()

	systray.AddSeparator()

	refreshItem := systray.AddMenuItem("Refresh", "Refresh status")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Reelcut Agent")

	go func() {
		for {
			select {
			case <-refreshItem.ClickedCh:
				t.Refresh()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

// Refresh re-renders the menu from the session snapshot.
func (t *Tray) Refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.statusItem == nil {
		return
	}

	st := t.session.Status()
	switch {
	case st.Playing:
		t.statusItem.SetTitle("Status: Playing")
	case st.Loaded:
		t.statusItem.SetTitle("Status: Editing")
	default:
		t.statusItem.SetTitle("Status: Idle")
	}
	t.editsItem.SetTitle(fmt.Sprintf("Edits: %d", st.EditCount))
}

func (t *Tray) Quit() {
	systray.Quit()
}
