package commands

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/activecm/rita-threats/config"
	"github.com/activecm/rita-threats/resources"
	"github.com/blang/semver"
	"github.com/google/go-github/github"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	yaml "gopkg.in/yaml.v2"
)

//Strings used for informing the user of a new version.
var informFmtStr = "\nThere's a new %s version of rita-threats %s available at:\nhttps://github.com/activecm/rita-threats/releases\n"
var versions = []string{"Major", "Minor", "Patch"}

// getRemoteVersion is swapped out in tests
var getRemoteVersion = latestReleaseTag

// updateState is persisted between runs so the remote is only asked every
// UpdateCheckFrequency days
type updateState struct {
	LastCheck     string `yaml:"LastCheck"`
	NewestVersion string `yaml:"NewestVersion"`
}

//GetVersionPrinter prints the version and, if one is available, the notice
//about a newer release
func GetVersionPrinter() func(*cli.Context) {
	return func(c *cli.Context) {
		fmt.Fprintf(stdout(c), "%s version %s\n", c.App.Name, c.App.Version)
		res, err := resources.InitResources(c.GlobalString("config"))
		if err != nil {
			return
		}
		fmt.Fprint(stdout(c), updateCheck(res, time.Now()))
	}
}

// updateCheck returns a string indicating the new version if one is available
func updateCheck(res *resources.Resources, now time.Time) string {
	delta := res.Config.S.UserConfig.UpdateCheckFrequency
	if delta <= 0 {
		return ""
	}

	statePath := res.Config.S.UserConfig.StateFile
	state := loadUpdateState(statePath)

	newVersion, err := semver.ParseTolerant(state.NewestVersion)
	lastCheck, timeErr := time.Parse(time.RFC3339, state.LastCheck)

	if err != nil || timeErr != nil || now.Sub(lastCheck).Hours()/24 > float64(delta) {
		newVersion, err = getRemoteVersion(context.Background())
		if err != nil {
			res.Log.WithError(err).Debug("Could not check for a new version")
			return ""
		}

		res.Log.WithFields(log.Fields{
			"Message":         "Checking versions...",
			"LastUpdateCheck": now,
			"NewestVersion":   fmt.Sprint(newVersion),
		}).Info("Checking for new version")

		state = updateState{LastCheck: now.Format(time.RFC3339), NewestVersion: newVersion.String()}
		if err := saveUpdateState(statePath, state); err != nil {
			res.Log.WithError(err).Warn("Could not save update check state")
		}
	}

	configVersion, err := semver.ParseTolerant(config.Version)
	if err != nil {
		return ""
	}

	if newVersion.GT(configVersion) {
		return informUser(configVersion, newVersion)
	}
	return ""
}

// Returns the first index where v1 is greater than v2
func versionDiffIndex(v1 semver.Version, v2 semver.Version) int {
	if v1.Major > v2.Major {
		return 0
	}
	if v1.Minor > v2.Minor {
		return 1
	}
	return 2
}

func latestReleaseTag(ctx context.Context) (semver.Version, error) {
	client := github.NewClient(nil)
	refs, _, err := client.Git.GetRefs(ctx, "activecm", "rita-threats", "refs/tags/v")
	if err != nil {
		return semver.Version{}, err
	}
	return newestTag(refs)
}

// newestTag returns the highest version among the tag refs. Refs come back in
// lexical order, which puts v1.9.0 after v1.10.0, so every tag is compared.
// Tags that aren't versions are skipped
func newestTag(refs []*github.Reference) (semver.Version, error) {
	var newest semver.Version
	found := false
	for _, ref := range refs {
		v, err := semver.ParseTolerant(strings.TrimPrefix(ref.GetRef(), "refs/tags/"))
		if err != nil {
			continue
		}
		if !found || v.GT(newest) {
			newest = v
			found = true
		}
	}
	if !found {
		return semver.Version{}, fmt.Errorf("no release tags found")
	}
	return newest, nil
}

// Assembles a notice for the user informing them of an upgrade.
func informUser(local semver.Version, remote semver.Version) string {
	return fmt.Sprintf(informFmtStr,
		versions[versionDiffIndex(remote, local)],
		fmt.Sprint(remote))
}

func loadUpdateState(path string) updateState {
	var state updateState
	contents, err := ioutil.ReadFile(path)
	if err != nil {
		return state
	}
	yaml.Unmarshal(contents, &state)
	return state
}

func saveUpdateState(path string, state updateState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	contents, err := yaml.Marshal(state)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, contents, 0600)
}
