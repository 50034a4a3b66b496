package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Format(timeLayout)
}

func (a *App) Login(ctx context.Context) error {
	secret, err := GetPassword(a.reader, "Enter master secret", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	ws, err := a.gate.Login(ctx, string(secret))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", ws.Keys.Identity())

	if exists, err := ws.Mirror.RemoteExists(ctx); err == nil && exists {
		fmt.Fprintln(a.out, "A remote backup exists for this secret; use 'restore' to load it.")
	}
	return nil
}

func (a *App) GenKey(ctx context.Context) error {
	kp, err := a.gate.GenerateIdentity()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Private key: %s\nPublic key:  %s\n", kp.PrivateKey, kp.PublicKey)
	fmt.Fprintln(a.out, "Keep the private key safe; it is your master secret and cannot be recovered.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	if err := a.gate.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) List(ctx context.Context) error {
	ws, err := a.workspace()
	if err != nil {
		return err
	}
	files, err := ws.Files.List(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No files.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tUPDATED")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.ID, f.Title, formatMillis(f.UpdatedAt))
	}
	return tw.Flush()
}

func (a *App) Create(ctx context.Context) error {
	ws, err := a.workspace()
	if err != nil {
		return err
	}
	title, err := a.ask("Enter title")
	if err != nil {
		return err
	}

	exists, err := ws.Files.TitleExists(ctx, title)
	if err != nil {
		return err
	}
	if exists {
		unique, err := ws.Files.UniqueTitle(ctx, title)
		if err != nil {
			return err
		}
		if !Confirm(a.reader, fmt.Sprintf("%q is taken. Use %q instead?", title, unique), a.out) {
			return nil
		}
		title = unique
	}

	content, err := GetMultiline(a.reader, "Enter content", a.out)
	if err != nil {
		return err
	}
	rec, err := ws.Files.Create(ctx, title, content)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s (%s)\n", rec.Title, rec.ID)
	return nil
}

func (a *App) pick(ctx context.Context, prompt string) (*models.FileRecord, error) {
	ws, err := a.workspace()
	if err != nil {
		return nil, err
	}
	id, err := a.ask(prompt)
	if err != nil {
		return nil, err
	}
	return ws.Files.Get(ctx, id)
}

func (a *App) Show(ctx context.Context) error {
	rec, err := a.pick(ctx, "Enter file id to show")
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s\ncreated %s, updated %s\n\n%s\n", rec.Title, formatMillis(rec.CreatedAt), formatMillis(rec.UpdatedAt), rec.Content)
	return nil
}

func (a *App) Edit(ctx context.Context) error {
	rec, err := a.pick(ctx, "Enter file id to edit")
	if err != nil {
		return err
	}
	content, err := GetMultiline(a.reader, "Enter new content", a.out)
	if err != nil {
		return err
	}
	ws, err := a.workspace()
	if err != nil {
		return err
	}
	if _, err := ws.Files.UpdateContent(ctx, rec.ID, content); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Saved.")
	return nil
}

func (a *App) Rename(ctx context.Context) error {
	ws, err := a.workspace()
	if err != nil {
		return err
	}
	id, err := a.ask("Enter file id to rename")
	if err != nil {
		return err
	}
	title, err := a.ask("Enter new title")
	if err != nil {
		return err
	}
	rec, err := ws.Files.Rename(ctx, id, title)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Renamed to %s\n", rec.Title)
	return nil
}

func (a *App) Delete(ctx context.Context) error {
	ws, err := a.workspace()
	if err != nil {
		return err
	}
	id, err := a.ask("Enter file id to delete")
	if err != nil {
		return err
	}
	if !Confirm(a.reader, "Delete "+id+"?", a.out) {
		return nil
	}
	if err := ws.Files.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted.")
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	ws, err := a.workspace()
	if err != nil {
		return err
	}
	cid, err := ws.Mirror.Sync(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Backed up as %s\n", cid)
	return nil
}

func (a *App) Restore(ctx context.Context) error {
	ws, err := a.workspace()
	if err != nil {
		return err
	}
	if !Confirm(a.reader, "Replace all local files with the remote backup?", a.out) {
		return nil
	}
	if err := ws.Mirror.Restore(ctx); err != nil {
		if errors.Is(err, common.ErrNotFound) && !errors.Is(err, common.ErrRemoteSync) {
			return fmt.Errorf("no remote backup for this secret: %w", err)
		}
		return err
	}
	fmt.Fprintln(a.out, "Restored from remote backup.")
	return nil
}
