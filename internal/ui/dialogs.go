package ui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"PaintingOnWeb/internal/cloud"
	"PaintingOnWeb/internal/export"
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}

func showSaveDialog(w fyne.Window, painter *PainterWidget, setStatus func(string)) {
	// Snapshot now so strokes made while the dialog is open are not saved.
	img := painter.Snapshot()
	d := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if writer == nil {
			return
		}
		name := writer.URI().Name()
		err = export.Write(writer, name, img)
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		setStatus("Saved " + name)
	}, w)
	d.SetFileName(export.DefaultName)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".pdf"}))
	d.Show()
}

func showUploadDialog(ctx context.Context, w fyne.Window, syncer *cloud.Syncer, painter *PainterWidget, setStatus func(string)) {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if reader == nil {
			return
		}
		setStatus("Loading background...")
		go func() {
			defer reader.Close()
			name := reader.URI().Name()
			data, err := io.ReadAll(reader)
			if err == nil {
				err = syncer.Upload(ctx, name, data)
			}
			fyne.Do(func() {
				if err != nil {
					dialog.ShowError(fmt.Errorf("could not use %s as background: %w", name, err), w)
					return
				}
				painter.Refresh()
			})
			if err == nil {
				setStatus("Background set to " + name)
			}
		}()
	}, w)
	d.SetFilter(storage.NewExtensionFileFilter(imageExtensions))
	d.Show()
}

func showAuthDialog(ctx context.Context, w fyne.Window, syncer *cloud.Syncer) {
	username := widget.NewEntry()
	password := widget.NewPasswordEntry()
	items := []*widget.FormItem{
		widget.NewFormItem("Username", username),
		widget.NewFormItem("Password", password),
	}
	dialog.ShowForm("Cloud access", "Sign in", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		user := username.Text
		pass := password.Text
		go func() {
			res, err := syncer.Auth(ctx, user, pass)
			fyne.Do(func() {
				switch {
				case errors.Is(err, cloud.ErrInvalidPassword):
					dialog.ShowError(errors.New("invalid password"), w)
				case err != nil:
					dialog.ShowError(err, w)
				case res.Mode == "registered":
					dialog.ShowInformation("Cloud access", "Registered as "+user, w)
				default:
					dialog.ShowInformation("Cloud access", "Signed in as "+user, w)
				}
			})
		}()
	}, w)
}
