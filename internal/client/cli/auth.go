package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/client/client"
)

// getSimpleText and getPassword are indirections swapped out in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for the account details and creates the account. The
// server logs the new user in straight away.
func (a *App) Register(ctx context.Context) error {
	fullName, err := getSimpleText(a.reader, "Enter full name", a.out)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	err = a.api.Register(ctx, client.RegisterRequest{
		FullName: fullName,
		Username: username,
		Email:    email,
		Password: string(password),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered and logged in as %s\n", username)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	if err := a.api.Login(ctx, username, string(password)); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", username)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.api.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Tokens refreshed")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Me(ctx context.Context) error {
	p, err := a.api.Me(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "ID:        %s\n", p.ID)
	fmt.Fprintf(a.out, "Full name: %s\n", p.FullName)
	fmt.Fprintf(a.out, "Username:  %s\n", p.Username)
	fmt.Fprintf(a.out, "Email:     %s\n", p.Email)
	return nil
}
