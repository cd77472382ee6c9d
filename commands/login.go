package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/activecm/rita-threats/intelapi"
	"github.com/urfave/cli"
	"golang.org/x/term"
)

// passwordInput is where login reads a password that was not passed as a flag
var passwordInput io.Reader = os.Stdin

func init() {
	loginCommand := cli.Command{
		Name:  "login",
		Usage: "Log in to the threat backend and store the token in the local credential store",
		Flags: []cli.Flag{
			configFlag,
			cli.StringFlag{
				Name:  "username, u",
				Usage: "log in as `USER`",
			},
			cli.StringFlag{
				Name:  "password, p",
				Usage: "use `PASSWORD` instead of prompting for it",
			},
		},
		Action: login,
	}

	logoutCommand := cli.Command{
		Name:  "logout",
		Usage: "Remove the token from the local credential store",
		Flags: []cli.Flag{
			configFlag,
		},
		Action: func(c *cli.Context) error {
			res, err := initResources(c)
			if err != nil {
				return err
			}
			if err := res.TokenStore().Remove(); err != nil {
				return cli.NewExitError(err.Error(), -1)
			}
			fmt.Fprintln(stdout(c), "Logged out")
			return nil
		},
	}

	bootstrapCommands(loginCommand, logoutCommand)
}

func login(c *cli.Context) error {
	username := c.String("username")
	if username == "" {
		return cli.NewExitError("Specify a username with -u", -1)
	}

	password := c.String("password")
	if password == "" {
		var err error
		password, err = readPassword(stdout(c))
		if err != nil {
			return cli.NewExitError("Could not read password: "+err.Error(), -1)
		}
	}

	res, err := initResources(c)
	if err != nil {
		return err
	}

	tok, err := res.Client.Login(context.Background(), username, password)
	if err != nil {
		res.Log.WithField("username", username).WithError(err).Error("Login failed")
		if errors.Is(err, intelapi.ErrUnauthorized) {
			return cli.NewExitError("Incorrect username or password", -1)
		}
		return cli.NewExitError("Login failed: "+err.Error(), -1)
	}

	store := res.TokenStore()
	if err := store.Save(tok); err != nil {
		return cli.NewExitError("Could not save token: "+err.Error(), -1)
	}

	fmt.Fprintf(stdout(c), "Logged in as %s. Token saved to %s\n", username, store.Path)
	return nil
}

// readPassword prompts on a terminal without echo, otherwise reads one line
func readPassword(prompt io.Writer) (string, error) {
	if f, ok := passwordInput.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		return string(raw), err
	}

	line, err := bufio.NewReader(passwordInput).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}
