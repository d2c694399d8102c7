// Package ui shows the agent's composition state in the system tray.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/getlantern/systray"

	"github.com/moments/moments-agent/internal/compose"
	"github.com/moments/moments-agent/internal/project"
	"github.com/moments/moments-agent/internal/studio"
)

// Session is the composition session shown in the tray.
type Session interface {
	Subscribe() (<-chan studio.Snapshot, func())
	Cancel() bool
}

// ProjectWatcher streams the saved project list.
type ProjectWatcher interface {
	Watch(ctx context.Context) <-chan []*project.Project
}

type Tray struct {
	session  Session
	projects ProjectWatcher
	logger   *slog.Logger

	statusItem   *systray.MenuItem
	projectsItem *systray.MenuItem
	cancelItem   *systray.MenuItem

	mu     sync.Mutex
	ctx    context.Context
	stop   context.CancelFunc
	latest []*project.Project

	onOpenLibrary func() error
	onQuit        func()
}

type TrayConfig struct {
	Session       Session
	Projects      ProjectWatcher
	Logger        *slog.Logger
	OnOpenLibrary func() error
	OnQuit        func()
}

func NewTray(cfg TrayConfig) *Tray {
	ctx, stop := context.WithCancel(context.Background())
	return &Tray{
		session:       cfg.Session,
		projects:      cfg.Projects,
		logger:        cfg.Logger,
		ctx:           ctx,
		stop:          stop,
		onOpenLibrary: cfg.OnOpenLibrary,
		onQuit:        cfg.OnQuit,
	}
}

// Run blocks on the platform event loop until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Moments")
	systray.SetTooltip("Moments Agent")

	t.statusItem = systray.AddMenuItem(StatusLabel(studio.Snapshot{Result: compose.Idle{}}), "Current composition")
	t.statusItem.Disable()

	t.projectsItem = systray.AddMenuItem(ProjectsLabel(nil, time.Now()), "Saved projects")
	t.projectsItem.Disable()

	systray.AddSeparator()

	t.cancelItem = systray.AddMenuItem("Cancel Composition", "Stop the running composition")
	t.cancelItem.Disable()

	libraryItem := systray.AddMenuItem("Open Library...", "Show saved videos")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Moments Agent")

	go t.followSession()
	go t.followProjects()

	go func() {
		for {
			select {
			case <-t.cancelItem.ClickedCh:
				if t.session != nil && t.session.Cancel() {
					t.logger.Info("composition cancelled from tray")
				}
			case <-libraryItem.ClickedCh:
				t.handleOpenLibrary()
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
	t.stop()
	t.logger.Info("system tray exiting")
}

func (t *Tray) followSession() {
	if t.session == nil {
		return
	}
	snaps, unsubscribe := t.session.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-t.ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			t.UpdateStatus(snap)
		}
	}
}

// followProjects refreshes the projects line on every change, and once a
// minute so the relative save time stays current.
func (t *Tray) followProjects() {
	if t.projects == nil {
		return
	}
	lists := t.projects.Watch(t.ctx)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case list, ok := <-lists:
			if !ok {
				return
			}
			t.mu.Lock()
			t.latest = list
			t.mu.Unlock()
			t.UpdateProjects(list)
		case <-ticker.C:
			t.mu.Lock()
			list := t.latest
			t.mu.Unlock()
			t.UpdateProjects(list)
		}
	}
}

func (t *Tray) handleOpenLibrary() {
	if t.onOpenLibrary != nil {
		if err := t.onOpenLibrary(); err != nil {
			t.logger.Error("failed to open library", "error", err)
		}
	}
}

func (t *Tray) UpdateStatus(snap studio.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.statusItem.SetTitle(StatusLabel(snap))
	if _, running := snap.Result.(compose.Progress); running {
		t.cancelItem.Enable()
	} else {
		t.cancelItem.Disable()
	}
}

func (t *Tray) UpdateProjects(list []*project.Project) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.projectsItem.SetTitle(ProjectsLabel(list, time.Now()))
}

func (t *Tray) Quit() {
	systray.Quit()
}

// StatusLabel renders a session snapshot as a menu line.
func StatusLabel(snap studio.Snapshot) string {
	switch v := snap.Result.(type) {
	case compose.Progress:
		return fmt.Sprintf("Status: Composing %d%%", v.Percent)
	case compose.Success:
		if snap.ProjectID == "" {
			return "Status: Done (not saved)"
		}
		return "Status: Saved"
	case compose.Failure:
		return "Status: Failed: " + v.Message
	}
	return "Status: Idle"
}

// ProjectsLabel counts saved projects and says when the newest was saved.
// list is newest first.
func ProjectsLabel(list []*project.Project, now time.Time) string {
	switch len(list) {
	case 0:
		return "Projects: none yet"
	case 1:
		return "Projects: 1, saved " + humanize.RelTime(list[0].CreatedAt, now, "ago", "from now")
	}
	return fmt.Sprintf("Projects: %s, last saved %s",
		humanize.Comma(int64(len(list))),
		humanize.RelTime(list[0].CreatedAt, now, "ago", "from now"))
}
