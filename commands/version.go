package commands

import (
	"fmt"
	"time"

	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{
		Name:  "version",
		Usage: "Show rita-threats version and check for updates",
		Flags: []cli.Flag{
			configFlag,
		},
		Action: func(c *cli.Context) error {
			res, err := initResources(c)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout(c), "%s version %s\n", c.App.Name, c.App.Version)
			fmt.Fprint(stdout(c), updateCheck(res, time.Now()))
			return nil
		},
	}

	bootstrapCommands(command)
}

// GlobalFlags are accepted before the command name
func GlobalFlags() []cli.Flag {
	return []cli.Flag{configFlag}
}
