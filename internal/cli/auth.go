package cli

import (
	"context"
	"errors"
	"time"

	"github.com/idilsaglam/neontodo/internal/api"
	"github.com/idilsaglam/neontodo/internal/session"
)

// ---------------------------------------------------
// Auth subcommands
// ---------------------------------------------------

func (a *app) doLogin(args []string) int {
	if len(args) > 1 {
		a.out.Fail("usage: neontodo login [email]")
		return ExitUsage
	}
	var email string
	if len(args) == 1 {
		email = args[0]
	} else {
		var err error
		if email, err = a.prompt("Email: "); err != nil {
			a.out.Fail("read email: " + err.Error())
			return ExitError
		}
	}
	password, err := a.password("Password: ")
	if err != nil {
		a.out.Fail("read password: " + err.Error())
		return ExitError
	}

	s, err := a.client.Login(context.Background(), email, password)
	switch {
	case errors.Is(err, api.ErrMissingCredentials):
		a.out.Fail("email and password are required")
		return ExitUsage
	case err != nil:
		a.out.Fail(loginError(err))
		return ExitError
	}
	if err := a.sess.Begin(s); err != nil {
		a.out.Fail("save session: " + err.Error())
		return ExitError
	}
	a.out.OK("Signed in as " + s.User.Email)
	if a.sess.Source() == session.SourceEnv {
		a.out.Hint(session.EnvToken + " is set and overrides the saved token")
	}
	return ExitOK
}

func loginError(err error) string {
	if api.IsTransport(err) {
		return "Could not connect to the server. Is the backend running?"
	}
	if se, ok := api.AsStatus(err); ok && se.Detail != "" {
		return "login: " + se.Detail
	}
	return "login: " + err.Error()
}

func (a *app) doLogout(args []string) int {
	if len(args) != 0 {
		a.out.Fail("usage: neontodo logout")
		return ExitUsage
	}
	envSet := a.sess.Source() == session.SourceEnv
	if err := a.sess.Teardown(); err != nil {
		a.out.Fail("logout: " + err.Error())
		return ExitError
	}
	a.out.OK("signed out")
	if envSet {
		a.out.Hint(session.EnvToken + " is still set; unset it to stay signed out")
	}
	return ExitOK
}

func (a *app) doStatus(args []string) int {
	th := a.out.Theme
	a.out.Printf("api:     %s\n", a.client.BaseURL())
	a.out.Printf("config:  %s\n", orNone(a.cfg.Path))
	a.out.Printf("session: %s\n", a.store.Path())
	if !a.sess.Authenticated() {
		a.out.Println(th.Muted.Render("not signed in"))
		a.out.Println("Run: neontodo login")
		return ExitOK
	}
	a.out.Printf("user:    %s\n", orNone(a.sess.User().Email))
	a.out.Printf("source:  %s\n", a.sess.Source())
	if claims, err := a.sess.Claims(); err == nil && claims.Expiry() != nil {
		a.out.Printf("expires: %s\n", expiry(*claims.Expiry()))
	} else {
		a.out.Println("expires: (unknown)")
	}
	a.out.Printf("env override: %s\n", session.EnvToken)
	return ExitOK
}

func expiry(t time.Time) string {
	s := t.UTC().Format(time.RFC3339)
	if time.Until(t) <= 0 {
		return s + " (expired)"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// whoami decodes the token locally; opaque tokens print what the session knows.
func (a *app) doWhoAmI(args []string) int {
	if !a.requireAuth() {
		return ExitError
	}
	u := a.sess.User()
	claims, err := a.sess.Claims()
	if err != nil {
		a.out.Println("Opaque token (cannot introspect locally).")
		a.out.Printf("email:  %s\n", orNone(u.Email))
		a.out.Printf("source: %s\n", a.sess.Source())
		return ExitOK
	}
	a.out.Printf("email:   %s\n", orNone(firstNonEmpty(claims.Email, u.Email)))
	a.out.Printf("subject: %s\n", orNone(claims.Subject))
	if claims.IssuedAt != nil {
		a.out.Printf("issued:  %s\n", claims.IssuedAt.UTC().Format(time.RFC3339))
	}
	if exp := claims.Expiry(); exp != nil {
		a.out.Printf("expires: %s\n", expiry(*exp))
	}
	a.out.Printf("source:  %s\n", a.sess.Source())
	return ExitOK
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
