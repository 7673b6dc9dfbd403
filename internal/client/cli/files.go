package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gatekeeper/internal/netx"
)

func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: upload <type> <path>")
		return nil
	}

	name, err := a.api.Upload(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded as %s\n", name)
	return nil
}

func (a *App) URL(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: url <object>")
		return nil
	}

	u, err := a.api.FileURL(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, u)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: delete <object>")
		return nil
	}

	if err := a.api.DeleteFile(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", args[0])
	return nil
}

// Download resolves a presigned URL for the object and saves it to path.
// A partially written file is removed on failure.
func (a *App) Download(ctx context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: download <object> <path>")
		return nil
	}
	object, path := args[0], args[1]

	u, err := a.api.FileURL(ctx, object)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	n, err := netx.Download(ctx, a.http, u, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}

	fmt.Fprintf(a.out, "Saved %d bytes to %s\n", n, path)
	return nil
}
