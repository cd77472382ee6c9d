package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli"
	yaml "gopkg.in/yaml.v2"
)

func init() {
	command := cli.Command{
		Flags: []cli.Flag{
			configFlag,
		},
		Name:   "test-config",
		Usage:  "Check the configuration file for validity",
		Action: testConfiguration,
	}

	bootstrapCommands(command)
}

// testConfiguration prints out the result of parsing the config file and
// whether each enabled kind has a credential available
func testConfiguration(c *cli.Context) error {
	res, err := initResources(c)
	if err != nil {
		return err
	}
	w := stdout(c)

	staticConfig, err := yaml.Marshal(res.Config.S)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%s\n", string(staticConfig))

	for _, kind := range res.Kinds() {
		status := "credential available"
		creds, err := res.Credentials(kind)
		if err == nil {
			_, err = creds.Token(context.Background())
		}
		if err != nil {
			status = "no credential: " + err.Error()
		}
		fmt.Fprintf(w, "[-] %s: %s (%s)\n", kind.Labels.Title, kind.Endpoint, status)
	}
	return nil
}
