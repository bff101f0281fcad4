package app

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/liveevent/internal/config"
	"github.com/dshills/liveevent/internal/event"
)

var (
	statusStyle = tcell.StyleDefault.Reverse(true)
	dialogStyle = tcell.StyleDefault.Bold(true)
)

// subscribe registers the application's own observers. They live as long
// as the application owner.
func (app *Application) subscribe() error {
	if err := app.events.Dialog.Observe(app.owner, event.NewObserver(app.showDialog)); err != nil {
		return err
	}
	return app.events.ConfigReloaded.Observe(app.owner, event.NewObserver(app.applyConfig))
}

// showDialog runs on the UI thread.
func (app *Application) showDialog(msg string) {
	app.lastDialog = msg
	app.logger.Info().Str("message", msg).Msg("dialog")
	app.drawStatus()
}

// applyConfig runs on the UI thread.
func (app *Application) applyConfig(cfg config.Config) {
	changed := app.cfg.UI.Title != cfg.UI.Title
	// Logging, headless mode and the metrics listener are fixed at startup.
	cfg.Log = app.cfg.Log
	cfg.UI.Headless = app.cfg.UI.Headless
	cfg.Metrics = app.cfg.Metrics

	app.cfgMu.Lock()
	app.cfg = cfg
	app.cfgMu.Unlock()

	app.logger.Info().
		Str("title", cfg.UI.Title).
		Msg("config applied")

	if changed {
		app.drawStatus()
	}
}

// drawStatus redraws the title and the last dialog. It runs on the UI
// thread and does nothing headless.
func (app *Application) drawStatus() {
	if app.screen == nil {
		return
	}

	_, height := app.screen.Size()
	app.screen.Clear()

	app.screen.FillLine(0, statusStyle)
	x := app.screen.DrawText(1, 0, statusStyle, app.cfg.UI.Title)
	app.screen.DrawText(x+2, 0, statusStyle, "q: quit")

	if app.lastDialog != "" && height > 2 {
		app.screen.DrawText(1, 2, dialogStyle, app.lastDialog)
	}
	app.screen.Show()
}
