package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/activecm/rita-threats/intelapi"
	"github.com/urfave/cli"
)

func init() {
	refresh := cli.Command{
		Name:  "refresh-feeds",
		Usage: "Ask the backend to pull its threat feeds again (admins only)",
		Flags: []cli.Flag{
			configFlag,
		},
		Action: refreshFeeds,
	}

	addUser := cli.Command{
		Name:  "add-user",
		Usage: "Create a backend user (admins only)",
		Flags: []cli.Flag{
			configFlag,
			cli.StringFlag{
				Name:  "username, u",
				Usage: "create the user `USER`",
			},
			cli.StringFlag{
				Name:  "password, p",
				Usage: "use `PASSWORD` instead of prompting for it",
			},
			cli.StringFlag{
				Name:  "role",
				Usage: "give the user `ROLE` (user or admin)",
				Value: "user",
			},
		},
		Action: addUser,
	}

	bootstrapCommands(refresh, addUser)
}

// adminError turns a failed admin call into the message shown to the user
func adminError(action string, err error) error {
	if errors.Is(err, intelapi.ErrForbidden) {
		return cli.NewExitError("Admins only", -1)
	}
	var statusErr *intelapi.StatusError
	if errors.As(err, &statusErr) && statusErr.Detail != "" {
		return cli.NewExitError(action+": "+statusErr.Detail, -1)
	}
	return cli.NewExitError(action+": "+err.Error(), -1)
}

func refreshFeeds(c *cli.Context) error {
	res, err := initResources(c)
	if err != nil {
		return err
	}
	ctx := context.Background()

	token, err := defaultToken(ctx, res)
	if err != nil {
		return adminError("Could not refresh feeds", err)
	}
	status, err := res.Client.RefreshFeeds(ctx, token)
	if err != nil {
		res.Log.WithError(err).Error("Feed refresh failed")
		return adminError("Could not refresh feeds", err)
	}
	fmt.Fprintln(stdout(c), status)
	return nil
}

func addUser(c *cli.Context) error {
	user := intelapi.NewUser{
		Username: c.String("username"),
		Password: c.String("password"),
		Role:     c.String("role"),
	}
	if user.Username == "" {
		return cli.NewExitError("Specify a username with -u", -1)
	}
	if user.Role != "user" && user.Role != "admin" {
		return cli.NewExitError("--role must be user or admin", -1)
	}
	if user.Password == "" {
		var err error
		user.Password, err = readPassword(stdout(c))
		if err != nil {
			return cli.NewExitError("Could not read password: "+err.Error(), -1)
		}
	}

	res, err := initResources(c)
	if err != nil {
		return err
	}
	ctx := context.Background()

	token, err := defaultToken(ctx, res)
	if err != nil {
		return adminError("Could not create user", err)
	}
	status, err := res.Client.CreateUser(ctx, user, token)
	if err != nil {
		res.Log.WithField("username", user.Username).WithError(err).Error("Creating user failed")
		return adminError("Could not create user", err)
	}
	fmt.Fprintf(stdout(c), "%s: %s\n", status, user.Username)
	return nil
}
