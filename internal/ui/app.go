// Package ui is the fyne desktop client: the painter widget, its toolbar and
// the dialogs that save drawings, manage the background and sign in.
package ui

import (
	"context"
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"PaintingOnWeb/internal/background"
	pcanvas "PaintingOnWeb/internal/canvas"
	"PaintingOnWeb/internal/cloud"
	"PaintingOnWeb/internal/state"
)

type Options struct {
	Title         string
	Width, Height float32
	Layer         *background.Layer
	Syncer        *cloud.Syncer
	// Watch subscribes to live background changes once the server is online.
	Watch bool
	Log   *slog.Logger
}

// RunApp opens the painting window and blocks until it is closed or ctx is
// cancelled.
func RunApp(ctx context.Context, opts Options) error {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	log := opts.Log.With("component", "ui")

	surface, err := pcanvas.New(opts.Width, opts.Height, 1)
	if err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	tools := state.NewToolState()

	myApp := app.New()
	myWindow := myApp.NewWindow(opts.Title)
	myWindow.Resize(fyne.NewSize(opts.Width, opts.Height+110))

	painter := NewPainterWidget(surface, tools, opts.Layer)
	painter.OnStroke = func(info pcanvas.StrokeInfo) {
		log.Debug("stroke", "id", info.ID, "points", info.Points, "bounds", info.Bounds)
	}

	status := widget.NewLabel("Connecting...")
	setStatus := func(text string) {
		fyne.Do(func() { status.SetText(text) })
	}

	toolbar, cloudButton := newToolbar(myWindow, tools, toolbarActions{
		Clear: painter.Clear,
		Save:  func() { showSaveDialog(myWindow, painter, setStatus) },
		UploadBackground: func() {
			showUploadDialog(ctx, myWindow, opts.Syncer, painter, setStatus)
		},
		RemoveBackground: func() {
			opts.Layer.Clear()
			painter.Refresh()
			setStatus("Background removed")
		},
		CloudAccess: func() { showAuthDialog(ctx, myWindow, opts.Syncer) },
	})

	opts.Syncer.OnChange(func() { fyne.Do(painter.Refresh) })
	go startSync(ctx, opts, painter, cloudButton, setStatus, log)

	go func() {
		<-ctx.Done()
		fyne.Do(myApp.Quit)
	}()

	myWindow.SetContent(container.NewBorder(toolbar, status, nil, nil, painter))
	myWindow.ShowAndRun()
	return nil
}

func startSync(ctx context.Context, opts Options, painter *PainterWidget, cloudButton *widget.Button,
	setStatus func(string), log *slog.Logger) {
	if err := opts.Syncer.Start(ctx); err != nil {
		setStatus("Offline: backgrounds stay on this machine")
		return
	}
	fyne.Do(func() {
		cloudButton.Show()
		painter.Refresh()
	})
	setStatus("Connected")

	if !opts.Watch {
		return
	}
	if err := opts.Syncer.Watch(ctx); err != nil {
		log.Warn("background watch stopped", "err", err)
		setStatus("Live background updates stopped")
	}
}
