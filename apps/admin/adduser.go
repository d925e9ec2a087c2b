package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/goosen-x/lms/core"
	"github.com/goosen-x/lms/core/access"
	"github.com/goosen-x/lms/core/user"
)

// addUser updates or creates the user.User owning `email`, and activates it.
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	r, err := access.ParseRole(role)
	if err != nil {
		return errors.Wrapf(err, "parsing role %q", role)
	}

	now := user.NowFunc().UTC()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	created := false
	switch errors.Cause(err) {
	case nil:
	case user.ErrNotFound:
		created = true
		usr = user.User{Email: email, CreatedAt: now}
	default:
		return errors.Wrap(err, "getting user")
	}

	usr.Name = name
	usr.Role = r
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}

	if created {
		usr, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		usr, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	if err != nil {
		return errors.Wrap(err, "saving user")
	}
	cli.printf("user %s (%s) saved\n", usr.Email, usr.Role)
	return nil
}
