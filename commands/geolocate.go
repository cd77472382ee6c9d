package commands

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{
		Name:      "geolocate",
		Usage:     "Look up where an IP indicator is located",
		ArgsUsage: "<ip>",
		Flags: []cli.Flag{
			configFlag,
		},
		Action: geolocate,
	}

	bootstrapCommands(command)
}

func geolocate(c *cli.Context) error {
	ip := c.Args().Get(0)
	if net.ParseIP(ip) == nil {
		return cli.NewExitError("Specify an IP address to look up", -1)
	}

	res, err := initResources(c)
	if err != nil {
		return err
	}
	ctx := context.Background()

	token, err := defaultToken(ctx, res)
	if err != nil {
		return cli.NewExitError("Failed to geolocate "+ip+": "+err.Error(), -1)
	}
	loc, err := res.Client.Geocode(ctx, ip, token)
	if err != nil {
		res.Log.WithField("ip", ip).WithError(err).Error("Failed to geolocate")
		return cli.NewExitError("Failed to geolocate "+ip+".", -1)
	}

	if loc.Lat == nil || loc.Lon == nil {
		fmt.Fprintf(stdout(c), "%s location unknown\n", ip)
		return nil
	}
	fmt.Fprintf(stdout(c), "%s,%s,%s\n", ip,
		strconv.FormatFloat(*loc.Lat, 'f', -1, 64),
		strconv.FormatFloat(*loc.Lon, 'f', -1, 64))
	return nil
}
