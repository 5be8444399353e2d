package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophchat/internal/client/auth"
	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts the user for an email and password and attempts to create
// a new account via the AuthService.
//
// On success it prints "Success!" and returns nil. The password byte slice
// is securely wiped before returning.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.authService.Register(ctx, email, password); err != nil {
		switch {
		case errors.Is(err, client.ErrConflict):
			a.println(ErrorStyle.Render("An account with this email already exists"))
		case errors.Is(err, client.ErrValidation):
			a.println(ErrorStyle.Render("Invalid email or password (6 to 72 characters)"))
		default:
			a.println(ErrorStyle.Render("Registration failed: " + err.Error()))
		}
		return err
	}

	a.println(SuccessStyle.Render("Success! You can now log in."))
	return nil
}

// Login prompts for credentials and signs in. The auth service falls back
// to the cached verifier when the server is unreachable, in which case the
// app switches to offline mode.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		a.println("Already signed in. Use 'logout' first.")
		return auth.ErrBusy
	}

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	creds, err := a.authService.Login(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, client.ErrUnavailable):
			a.println(ErrorStyle.Render("Server unavailable and no cached sign-in for this account"))
		case errors.Is(err, client.ErrUnauthorized):
			a.println(ErrorStyle.Render("Invalid credentials"))
		default:
			a.println(ErrorStyle.Render("Login unsuccessful: " + err.Error()))
		}
		return err
	}

	a.signedIn(ctx, creds)
	return nil
}

// Logout signs out and wipes every piece of cached state.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		a.println(ErrorStyle.Render("Logout failed on the server: " + err.Error()))
		return err
	}
	a.println("Logged out.")
	return nil
}
